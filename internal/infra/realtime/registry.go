package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
)

var ErrNoSession = errors.New("realtime: no live session for connection")

// Registry tracks open sessions by connection id.
type Registry struct {
	dialer adapter.LiveDialer
	idle   time.Duration
	log    *zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(dialer adapter.LiveDialer, idle time.Duration, log *zerolog.Logger) *Registry {
	if idle <= 0 {
		idle = 3 * time.Minute
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Registry{dialer: dialer, idle: idle, log: log, sessions: map[string]*Session{}}
}

// Open performs the upstream handshake, sends session_opened and starts relaying.
func (r *Registry) Open(ctx context.Context, id string, out Sender) (*Session, error) {
	up, err := r.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	l := r.log.With().Str("conn_id", id).Logger()
	s := newSession(id, up, out, r.idle, &l, r.remove)

	r.mu.Lock()
	if _, dup := r.sessions[id]; dup {
		r.mu.Unlock()
		_ = up.Close()
		return nil, fmt.Errorf("realtime: connection %s already has a session", id)
	}
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.SetRealtimeSessions(n)

	if err := out.Send(ServerFrame{Type: FrameSessionOpened}); err != nil {
		s.Close(ReasonDisconnect)
		return nil, err
	}
	s.start()
	l.Info().Msg("realtime session opened")
	return s, nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Close ends the session for id; unknown ids are a no-op.
func (r *Registry) Close(id, reason string) {
	if s, ok := r.Get(id); ok {
		s.Close(reason)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll ends every session; used on shutdown.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()
	for _, s := range all {
		s.Close(reason)
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.SetRealtimeSessions(n)
}
