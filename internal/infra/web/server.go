package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/infra/catalog"
	"github.com/TSHgroup/hh25-backend/internal/infra/realtime"
	"github.com/TSHgroup/hh25-backend/internal/usecase"
)

// VoiceLister serves /ai/voices.
type VoiceLister interface {
	Voices() []catalog.Voice
}

type Deps struct {
	Auth      usecase.AuthUseCase
	Profiles  usecase.ProfileUseCase
	Scenarios usecase.ScenarioUseCase
	Personas  usecase.PersonaUseCase
	Analytics usecase.AnalyticsUseCase
	Tips      usecase.TipUseCase
	Chat      usecase.ChatUseCase
	Voices    VoiceLister
	Realtime  *realtime.Registry
	Tokens    *AuthManager
	Limiter   Limiter // nil disables auth rate limiting
}

type Options struct {
	RequestTimeout time.Duration
	AuthPerMinute  int
	AllowedOrigins []string
	MaxFrameSize   int64
	// PongWait is how long a socket may stay silent before it is dropped; pings go out at 9/10 of it.
	PongWait time.Duration
}

type Server struct {
	deps     Deps
	opts     Options
	validate *validator.Validate
	upgrader websocket.Upgrader
	log      *zerolog.Logger
}

func NewServer(deps Deps, opts Options, logger *zerolog.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = 16 << 20
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	l := logger.With().Str("component", "web").Logger()
	s := &Server{deps: deps, opts: opts, validate: newValidator(), log: &l}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		Subprotocols:    []string{accessTokenProtocol},
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Router builds the full HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, TraceID(), RequestLog(s.log), Recover(s.log))
	Register(r, s)
	return r
}

// Register mounts every /v1 route on r.
func Register(r chi.Router, s *Server) {
	authed := RequireAuth(s.deps.Tokens, s.log)
	limit := func(action string) Middleware {
		return RateLimit(s.deps.Limiter, action, s.opts.AuthPerMinute, s.log)
	}

	r.Route("/v1", func(r chi.Router) {
		// sockets are long-lived and stay outside the request timeout
		r.Get("/ai/conversation", s.handleConversationWS)
		r.Get("/ai/chat", s.handleChatWS)

		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.opts.RequestTimeout))

			r.Route("/auth", func(r chi.Router) {
				r.With(limit("register")).Post("/register", s.handleRegister)
				r.With(limit("login")).Post("/login", s.handleLogin)
				r.With(limit("refresh")).Post("/refresh", s.handleRefresh)
				r.With(limit("email_verify"), authed).Get("/emailVerify", s.handleResendVerification)
				r.With(limit("email_verify"), authed).Post("/emailVerify", s.handleResendVerification)
				r.With(limit("email_verify")).Put("/emailVerify", s.handleConfirmVerification)
				r.Get("/google", s.handleGoogleRedirect)
				r.Get("/google/callback", s.handleGoogleCallback)
				r.With(limit("google_token")).Get("/google/token", s.handleGoogleToken)
				r.With(limit("google_token")).Post("/google/token", s.handleGoogleToken)
			})

			r.Get("/ai/voices", s.handleVoices)
			r.Get("/daily-tip", s.handleDailyTip)

			r.Group(func(r chi.Router) {
				r.Use(authed)

				r.Get("/user/me", s.handleMe)
				r.Put("/user/profile", s.handleUpdateProfile)
				r.Get("/user/me/conversations", s.handleMyConversations)

				r.Get("/analytics", s.handleAnalytics)

				r.Route("/scenario", func(r chi.Router) {
					r.Get("/", s.handleListScenarios)
					r.Post("/", s.handleCreateScenario)
					r.Get("/user/me", s.handleMyScenarios)
					r.Get("/user/{userId}", s.handleUserScenarios)
					r.Get("/{id}", s.handleGetScenario)
					r.Put("/{id}", s.handleUpdateScenario)
					r.Delete("/{id}", s.handleDeleteScenario)
					r.Post("/{id}/publish", s.handlePublishScenario(true))
					r.Delete("/{id}/publish", s.handlePublishScenario(false))
				})

				r.Route("/persona", func(r chi.Router) {
					r.Get("/", s.handleListPersonas)
					r.Post("/", s.handleCreatePersona)
					r.Get("/user/me", s.handleMyPersonas)
					r.Get("/user/{userId}", s.handleUserPersonas)
					r.Get("/{id}", s.handleGetPersona)
					r.Put("/{id}", s.handleUpdatePersona)
					r.Delete("/{id}", s.handleDeletePersona)
					r.Post("/{id}/publish", s.handlePublishPersona(true))
					r.Delete("/{id}/publish", s.handlePublishPersona(false))
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
