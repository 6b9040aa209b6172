package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/audio"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
)

// Session is one live voice conversation bound to a client connection.
type Session struct {
	id       string
	upstream adapter.LiveSession
	out      Sender
	log      *zerolog.Logger
	idle     *idleTimer
	events   chan adapter.LiveEvent
	ctx      context.Context
	cancel   context.CancelFunc
	onClose  func(id string)

	mu     sync.Mutex
	closed bool
	reason string
	wg     sync.WaitGroup

	// outMu orders client writes against teardown: nothing follows conversation_ended.
	outMu sync.Mutex
}

func newSession(id string, up adapter.LiveSession, out Sender, idle time.Duration, log *zerolog.Logger, onClose func(string)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       id,
		upstream: up,
		out:      out,
		log:      log,
		events:   make(chan adapter.LiveEvent, 64),
		ctx:      ctx,
		cancel:   cancel,
		onClose:  onClose,
	}
	s.idle = newIdleTimer(idle, s.expire)
	return s
}

func (s *Session) ID() string { return s.id }

// start launches the receive pump and the turn relay, then arms the idle timer.
func (s *Session) start() {
	s.wg.Add(2)
	go s.pump()
	go s.relay()
	s.idle.Reset()
}

// Touch rearms the idle timer; call it for every inbound frame before processing.
func (s *Session) Touch() { s.idle.Reset() }

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SendAudio normalizes a base64 WAV frame and forwards it upstream.
func (s *Session) SendAudio(b64 string) error {
	if s.Closed() {
		return domain.ErrSessionClosed
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("decode audio: %w", err)
	}
	pcm, err := audio.NormalizeWAV(raw)
	if err != nil {
		return err
	}
	return s.upstream.SendAudio(pcm, audio.InputMIME)
}

// End is the client-requested close.
func (s *Session) End() {
	s.finish(ReasonClientRequest, true)
}

// Close tears the session down without notifying the client. Safe to call more than once.
func (s *Session) Close(reason string) {
	s.finish(reason, false)
}

func (s *Session) expire() {
	s.log.Info().Msg("silence timeout, ending conversation")
	s.finish(ReasonSilenceTimeout, true)
}

// finish is the single teardown path; only the first caller sends the ended frame.
func (s *Session) finish(reason string, notify bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.reason = reason
	s.mu.Unlock()

	s.idle.Stop()
	if notify {
		s.outMu.Lock()
		s.send(ServerFrame{Type: FrameConversationEnded, Reason: reason})
		s.outMu.Unlock()
	}
	s.cancel()
	if err := s.upstream.Close(); err != nil {
		s.log.Debug().Err(err).Msg("upstream close")
	}
	if s.onClose != nil {
		s.onClose(s.id)
	}
	metrics.IncRealtimeEnded(reason)
	s.log.Info().Str("reason", reason).Msg("realtime session closed")
}

// wait blocks until the pump and relay goroutines exit.
func (s *Session) wait() { s.wg.Wait() }

func (s *Session) pump() {
	defer s.wg.Done()
	defer close(s.events)
	for {
		ev, err := s.upstream.Receive()
		if err != nil {
			if !s.Closed() {
				s.log.Warn().Err(err).Msg("upstream receive failed")
				s.emit(ServerFrame{Type: FrameError, Error: err.Error()})
				s.Close(ReasonUpstreamError)
			}
			return
		}
		select {
		case s.events <- ev:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) relay() {
	defer s.wg.Done()
	for {
		pcm, err := Collect(s.ctx, s.events)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, ErrStreamClosed) {
				s.log.Warn().Err(err).Msg("turn aggregation failed")
			}
			return
		}
		if len(pcm) == 0 {
			continue
		}
		wav, err := audio.EncodeWAV(pcm, audio.OutputRate)
		if err != nil {
			if !s.emit(ServerFrame{Type: FrameError, Error: err.Error()}) {
				return
			}
			continue
		}
		if !s.emit(ServerFrame{Type: FrameAudioResponse, Data: base64.StdEncoding.EncodeToString(wav)}) {
			return
		}
		metrics.IncRealtimeTurn()
	}
}

// emit sends f unless the session has already closed; it reports whether the frame went out.
func (s *Session) emit(f ServerFrame) bool {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.Closed() {
		return false
	}
	s.send(f)
	return true
}

func (s *Session) send(f ServerFrame) {
	if err := s.out.Send(f); err != nil {
		s.log.Debug().Err(err).Str("frame", f.Type).Msg("client send failed")
	}
}
