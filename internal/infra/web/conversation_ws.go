package web

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/TSHgroup/hh25-backend/internal/infra/logging"
)

// handleConversationWS relays a realtime voice conversation. Everything after the upgrade is
// owned by the realtime registry.
func (s *Server) handleConversationWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		upgradeRequired(w)
		return
	}
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		logging.With(r.Context(), s.log).Debug().Err(err).Msg("conversation upgrade failed")
		return
	}
	conn := newWSConn(c, s.opts.MaxFrameSize, s.opts.PongWait)
	defer conn.Close()

	id := newRequestID()
	l := logging.With(logging.WithConnID(r.Context(), id), s.log)
	l.Info().Msg("conversation socket opened")
	s.deps.Realtime.Serve(r.Context(), id, conn)
	l.Info().Msg("conversation socket closed")
}
