package realtime

import (
	"context"
	"encoding/json"

	"github.com/TSHgroup/hh25-backend/internal/infra/logging"
)

// Conn is the client side of a realtime connection.
type Conn interface {
	Sender
	// ReadMessage blocks for the next text frame; any error ends Serve.
	ReadMessage() ([]byte, error)
}

// Serve opens a session for conn and processes its frames in arrival order until the client goes
// away. The session is always released before Serve returns.
func (r *Registry) Serve(ctx context.Context, id string, conn Conn) {
	log := logging.With(logging.WithConnID(ctx, id), r.log)
	s, err := r.Open(ctx, id, conn)
	if err != nil {
		log.Error().Err(err).Msg("realtime session open failed")
		_ = conn.Send(ServerFrame{Type: FrameError, Error: err.Error()})
		return
	}
	defer s.wait()
	defer s.Close(ReasonDisconnect)

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("client disconnected")
			return
		}
		r.handleFrame(s, conn, raw)
	}
}

// handleFrame answers frames that arrive after the session ended with ErrNoSession.
func (r *Registry) handleFrame(s *Session, out Sender, raw []byte) {
	if _, ok := r.Get(s.ID()); !ok || s.Closed() {
		_ = out.Send(ServerFrame{Type: FrameError, Error: ErrNoSession.Error()})
		return
	}
	s.Touch()
	var f ClientFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		_ = out.Send(ServerFrame{Type: FrameError, Error: "invalid message: " + err.Error()})
		return
	}
	switch f.Type {
	case FrameAudio:
		if err := s.SendAudio(f.Data); err != nil {
			s.log.Warn().Err(err).Msg("audio frame rejected")
			_ = out.Send(ServerFrame{Type: FrameError, Error: err.Error()})
		}
	case FrameEndConversation:
		s.End()
	}
}
