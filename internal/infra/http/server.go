// Package http serves the operational endpoints (health and metrics) on the admin port.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
)

// Pinger is a dependency whose liveness /health reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Server struct {
	port   int
	checks map[string]Pinger
	server *http.Server
	log    *zerolog.Logger
}

func NewServer(port int, checks map[string]Pinger, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "admin").Logger()
	s := &Server{port: port, checks: checks, log: &l}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealthCheck)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("admin server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var failed []string
	for name, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Str("check", name).Msg("health check failed")
			failed = append(failed, name)
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if len(failed) > 0 {
		sort.Strings(failed)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "UNAVAILABLE: %s", strings.Join(failed, ","))
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
