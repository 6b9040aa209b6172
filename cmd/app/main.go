// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/config"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	aiAdapters "github.com/TSHgroup/hh25-backend/internal/infra/adapters/ai"
	"github.com/TSHgroup/hh25-backend/internal/infra/adapters/google"
	"github.com/TSHgroup/hh25-backend/internal/infra/catalog"
	pg "github.com/TSHgroup/hh25-backend/internal/infra/db/postgres"
	httpapi "github.com/TSHgroup/hh25-backend/internal/infra/http"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"
	"github.com/TSHgroup/hh25-backend/internal/infra/mail"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
	"github.com/TSHgroup/hh25-backend/internal/infra/realtime"
	red "github.com/TSHgroup/hh25-backend/internal/infra/redis"
	"github.com/TSHgroup/hh25-backend/internal/infra/sched"
	"github.com/TSHgroup/hh25-backend/internal/infra/scheduler"
	"github.com/TSHgroup/hh25-backend/internal/infra/security"
	"github.com/TSHgroup/hh25-backend/internal/infra/web"
	"github.com/TSHgroup/hh25-backend/internal/infra/worker"
	"github.com/TSHgroup/hh25-backend/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, mail to log)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	if cfg.Database.Migrate {
		if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	// ---- Security ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		if !cfg.Runtime.Dev {
			return errors.New("security.encryption_key must be 32 bytes")
		}
		logger.Warn().Msg("security.encryption_key not set or not 32 bytes; using dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	cipher, err := security.NewEncryptionService(encKey)
	if err != nil {
		return fmt.Errorf("encryption: %w", err)
	}

	// ---- Catalogs ----
	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	prompts, err := catalog.LoadPrompts(cfg.Prompts.Dir)
	if err != nil {
		return fmt.Errorf("prompts: %w", err)
	}
	mailTemplates, err := mail.LoadTemplates()
	if err != nil {
		return fmt.Errorf("mail templates: %w", err)
	}

	// ---- Repositories ----
	accounts := pg.NewAccountRepo(pool)
	verifications := pg.NewVerificationRepo(pool)
	profiles := pg.NewProfileRepo(pool)
	personas := pg.NewPersonaRepo(pool)
	scenarios := pg.NewScenarioRepoCacheDecorator(pg.NewScenarioRepo(pool, personas), redisClient, cfg.Redis.TTL, logger)
	conversations := pg.NewConversationRepo(pool)
	tips := pg.NewDailyTipRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- AI ----
	gemini, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, aiAdapters.GeminiOptions{
		ChatModel:       cfg.AI.ChatModel,
		TTSModel:        cfg.AI.TTSModel,
		ScoringModel:    cfg.AI.ScoringModel,
		LiveModel:       cfg.AI.LiveModel,
		LiveInstruction: cfg.AI.LiveInstruction,
		Timeout:         cfg.AI.RequestTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("gemini adapter: %w", err)
	}
	byProvider := map[string]adapter.AIServiceAdapter{"gemini": gemini}
	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, "", cfg.AI.RequestTimeout)
		if err != nil {
			return fmt.Errorf("openai adapter: %w", err)
		}
		byProvider["openai"] = oa
	}
	chatAI := aiAdapters.NewLimitedAI(
		aiAdapters.NewMultiAIAdapter("gemini", byProvider, cat.ModelProviders()),
		cfg.AI.ConcurrentLimit, 1,
	)

	// ---- Workers ----
	workers := worker.NewPool(cfg.Mail.Workers, logger)
	workers.Start(ctx)
	defer workers.Stop()
	mailer := mail.NewAsyncMailer(mail.NewMailer(cfg.Mail, logger, cfg.Runtime.Dev), workers)

	// ---- Use cases ----
	authDeps := usecase.AuthDeps{
		Accounts:      accounts,
		Verifications: verifications,
		TM:            tm,
		Hasher:        security.NewPasswordHasher(cfg.Auth.BcryptCost),
		Mailer:        mailer,
		Templates:     mailTemplates,
		Locker:        red.NewLocker(redisClient),
		States:        red.NewOAuthStateStore(redisClient, 0),
		Cipher:        cipher,
	}
	if cfg.Google.ClientID != "" {
		v, err := google.NewVerifier(google.Options{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			PublicURL:    cfg.Server.PublicURL,
			TokenInfoURL: cfg.Google.TokenInfoURL,
		})
		if err != nil {
			return fmt.Errorf("google sign-in: %w", err)
		}
		authDeps.Google = v
	} else {
		logger.Info().Msg("google sign-in disabled")
	}
	tokens := web.NewAuthManager(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	authDeps.Tokens = tokens

	scoring := usecase.NewScoring(gemini, prompts.Rubric(), logger)
	chatUC := usecase.NewChatUseCase(usecase.ChatDeps{
		Scenarios:     scenarios,
		Profiles:      profiles,
		Accounts:      accounts,
		Conversations: conversations,
		Chat:          chatAI,
		Media:         gemini,
		Tokens:        aiAdapters.NewTiktokenCounter(),
		Scoring:       scoring,
		Prompts:       prompts,
	}, usecase.ChatOptions{DefaultVoice: cfg.AI.DefaultVoice, UploadsDir: cfg.Uploads.Dir}, logger)

	registry := realtime.NewRegistry(gemini, cfg.Realtime.IdleTimeout, logger)

	srv := web.NewServer(web.Deps{
		Auth:      usecase.NewAuthUseCase(authDeps, cfg.Auth.VerificationTTL, logger),
		Profiles:  usecase.NewProfileUseCase(profiles, conversations, cat, logger),
		Scenarios: usecase.NewScenarioUseCase(scenarios, personas, cat, logger),
		Personas:  usecase.NewPersonaUseCase(personas, cat, logger),
		Analytics: usecase.NewAnalyticsUseCase(conversations, logger),
		Tips:      usecase.NewTipUseCase(tips),
		Chat:      chatUC,
		Voices:    cat,
		Realtime:  registry,
		Tokens:    tokens,
		Limiter:   red.NewRateLimiter(redisClient),
	}, web.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		AuthPerMinute:  cfg.RateLimit.AuthPerMinute,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxFrameSize:   cfg.Realtime.MaxFrameSize,
		PongWait:       cfg.Realtime.PongWait,
	}, logger)

	// ---- Periodic jobs ----
	sweeper := scheduler.NewScheduler(cfg.Scheduler.VerificationSweepInterval, sched.NewVerificationSweeper(verifications), logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()
	poolStats := scheduler.NewScheduler(15*time.Second, sched.NewPoolStats(pool), logger)
	poolStats.Start(ctx)
	defer poolStats.Stop()

	// ---- HTTP ----
	api := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	admin := httpapi.NewServer(cfg.Admin.Port, map[string]httpapi.Pinger{
		"postgres": httpapi.PingFunc(func(ctx context.Context) error { return pingPool(ctx, pool) }),
		"redis":    redisClient,
	}, logger)

	errc := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", api.Addr).Msg("api server listening")
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		if err := admin.Start(); err != nil {
			errc <- fmt.Errorf("admin server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		return err
	}

	// ---- Graceful shutdown ----
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	registry.CloseAll(realtime.ReasonShutdown)
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api shutdown")
	}
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin shutdown")
	}
	logger.Info().Msg("bye")
	return nil
}

func pingPool(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.Conn().Ping(ctx)
}
