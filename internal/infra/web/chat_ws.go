package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"
	"github.com/TSHgroup/hh25-backend/internal/usecase"
)

// Chat frame types.
const (
	chatStart         = "start"
	chatMessage       = "message"
	chatAudio         = "audio"
	chatEnd           = "end"
	chatStarted       = "started"
	chatResponse      = "response"
	chatTranscription = "transcription"
	chatEnded         = "ended"
	chatError         = "error"
)

const (
	msgNotStarted     = `Chat session not started. Send a "start" message first.`
	msgAlreadyStarted = "Chat session already started"
	msgNoSession      = "No active chat session"
	msgEnded          = "Chat session ended successfully"
)

type chatClientFrame struct {
	Type       string `json:"type"`
	ScenarioID string `json:"scenarioId,omitempty"`
	RoundID    string `json:"roundId,omitempty"`
	Content    string `json:"content,omitempty"`
	AudioData  string `json:"audioData,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}

type chatServerFrame struct {
	Type           string `json:"type"`
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	RoundID        string `json:"roundId,omitempty"`
	Audio          string `json:"audio,omitempty"`
	AudioError     string `json:"audioError,omitempty"`
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		upgradeRequired(w)
		return
	}
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.With(r.Context(), s.log).Debug().Err(err).Msg("chat upgrade failed")
		return
	}
	conn := newWSConn(c, s.opts.MaxFrameSize, s.opts.PongWait)
	defer conn.Close()

	userID, err := s.deps.Tokens.ParseAccess(socketToken(r))
	if err != nil {
		_ = conn.Send(chatServerFrame{Type: chatError, Content: "Invalid or missing access token"})
		return
	}
	ctx := logging.WithConnID(logging.WithUserID(r.Context(), userID), newRequestID())
	h := &chatConn{
		uc:     s.deps.Chat,
		conn:   conn,
		userID: userID,
		log:    logging.With(ctx, s.log),
	}
	h.log.Info().Msg("chat socket opened")
	defer h.close(ctx)
	h.serve(ctx)
}

// chatConn is the per-connection state machine. Frames are handled one at a time by serve.
type chatConn struct {
	uc      usecase.ChatUseCase
	conn    *wsConn
	userID  string
	session *model.ChatSession
	log     *zerolog.Logger
}

func (h *chatConn) serve(ctx context.Context) {
	for {
		raw, err := h.conn.ReadMessage()
		if err != nil {
			h.log.Debug().Err(err).Msg("chat client disconnected")
			return
		}
		var f chatClientFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			h.fail("Invalid message format")
			continue
		}
		h.handle(ctx, f)
	}
}

func (h *chatConn) handle(ctx context.Context, f chatClientFrame) {
	switch f.Type {
	case chatStart:
		h.start(ctx, f)
	case chatMessage:
		if h.session == nil {
			h.fail(msgNotStarted)
			return
		}
		h.reply(ctx, f.Content, nil)
	case chatAudio:
		h.audio(ctx, f)
	case chatEnd:
		h.end(ctx)
	default:
		h.fail("Unknown message type")
	}
}

func (h *chatConn) start(ctx context.Context, f chatClientFrame) {
	if h.session != nil {
		h.fail(msgAlreadyStarted)
		return
	}
	if f.ScenarioID == "" {
		h.fail("scenarioId is required")
		return
	}
	s, err := h.uc.Start(ctx, h.userID, f.ScenarioID, f.RoundID)
	if err != nil {
		h.failErr(err, "Failed to start chat session")
		return
	}
	h.session = s
	h.send(chatServerFrame{Type: chatStarted, ConversationID: s.ConversationID, RoundID: s.RoundID})
}

func (h *chatConn) audio(ctx context.Context, f chatClientFrame) {
	if h.session == nil {
		h.fail(msgNotStarted)
		return
	}
	if f.AudioData == "" {
		h.fail("Audio data is required")
		return
	}
	data, err := base64.StdEncoding.DecodeString(f.AudioData)
	if err != nil {
		h.fail("Audio data must be base64")
		return
	}
	text, ref, err := h.uc.Transcribe(ctx, h.session, data, f.MimeType)
	if err != nil {
		h.failErr(err, "Failed to process audio")
		return
	}
	h.send(chatServerFrame{Type: chatTranscription, Content: text})
	h.reply(ctx, text, ref)
}

func (h *chatConn) reply(ctx context.Context, text string, ref *adapter.FileRef) {
	res, err := h.uc.Reply(ctx, h.session, text, ref)
	if errors.Is(err, domain.ErrInvalidArgument) {
		h.fail("Message content is required")
		return
	}
	if err != nil {
		h.failErr(err, "Failed to process message")
		return
	}
	out := chatServerFrame{Type: chatResponse, Content: res.Content}
	if res.Audio.IsDegraded() {
		out.AudioError = res.Audio.Cause.Error()
	} else {
		out.Audio = res.Audio.Value
	}
	h.send(out)
}

func (h *chatConn) end(ctx context.Context) {
	if h.session == nil {
		h.fail(msgNoSession)
		return
	}
	s := h.session
	h.session = nil
	if err := h.uc.End(ctx, s); err != nil {
		h.failErr(err, "Failed to end chat session")
		return
	}
	h.send(chatServerFrame{Type: chatEnded, Content: msgEnded})
}

// close writes back the elapsed time of a session the client never ended.
func (h *chatConn) close(ctx context.Context) {
	if h.session == nil {
		h.log.Info().Msg("chat socket closed")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.uc.End(ctx, h.session); err != nil {
		h.log.Error().Err(err).Str("conversation_id", h.session.ConversationID).Msg("failed to save chat length")
	}
	h.session = nil
	h.log.Info().Msg("chat socket closed")
}

func (h *chatConn) send(f chatServerFrame) {
	if err := h.conn.Send(f); err != nil {
		h.log.Debug().Err(err).Str("type", f.Type).Msg("chat frame not delivered")
	}
}

func (h *chatConn) fail(msg string) {
	h.send(chatServerFrame{Type: chatError, Content: msg})
}

// failErr reports known domain errors verbatim and hides anything else behind fallback.
func (h *chatConn) failErr(err error, fallback string) {
	for _, m := range errTable {
		if errors.Is(err, m.target) {
			msg := m.msg
			if msg == "" {
				msg = err.Error()
			}
			h.fail(msg)
			return
		}
	}
	h.log.Error().Err(err).Msg(fallback)
	h.fail(fallback)
}
