package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/arogya-ai/clinic-intake/internal/agent"
	"github.com/arogya-ai/clinic-intake/internal/api/router"
	"github.com/arogya-ai/clinic-intake/internal/appointments"
	appconfig "github.com/arogya-ai/clinic-intake/internal/config"
	"github.com/arogya-ai/clinic-intake/internal/identity"
	"github.com/arogya-ai/clinic-intake/internal/intake"
	"github.com/arogya-ai/clinic-intake/internal/notify"
	"github.com/arogya-ai/clinic-intake/internal/observability/metrics"
	"github.com/arogya-ai/clinic-intake/internal/session"
	"github.com/arogya-ai/clinic-intake/internal/webchat"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()

	// Storage: Postgres when configured, in-memory otherwise (local dev).
	var (
		ticketRepo    appointments.Repository
		identityStore identity.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		ticketRepo = appointments.NewPostgresRepository(pool)
		identityStore = identity.NewPostgresStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		ticketRepo = appointments.NewInMemoryRepository()
		identityStore = identity.NewInMemoryStore()
	}

	// Session cache
	var sessions identity.SessionCache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, profile caching disabled", "error", err)
		} else {
			sessions = session.NewStore(redisClient, cfg.SessionTTL, nil)
		}
	}

	// Conversation agent
	geminiClient, err := agent.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, logger)
	if err != nil {
		logger.Error("failed to initialize gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	// Metrics
	intakeMetrics := metrics.NewIntakeMetrics(nil)

	// Identity
	issuer := identity.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	identityService := identity.NewService(identityStore, issuer, sessions, logger)
	authHandler := identity.NewHandler(identityService, logger)

	// Notifications
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		logger.Warn("SENDGRID_API_KEY not set, decision emails disabled")
		emailSender = notify.NewStubEmailSender(logger)
	}
	notifyService := notify.NewService(emailSender, identityStore, logger)

	// Intake flow
	controller := intake.NewController(geminiClient, ticketRepo, intakeMetrics, logger)
	intakeHandler := intake.NewHandler(controller, logger)

	// Handlers
	appointmentsHandler := appointments.NewHandler(ticketRepo, notifyService, logger)
	webchatHandler := webchat.NewHandler(controller, identityService, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:              logger,
		AuthHandler:         authHandler,
		Authenticator:       identityService,
		IntakeHandler:       intakeHandler,
		AppointmentsHandler: appointmentsHandler,
		WebchatHandler:      webchatHandler,
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerSecond:  cfg.RateLimitPerSecond,
		RateLimitBurst:      cfg.RateLimitBurst,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
