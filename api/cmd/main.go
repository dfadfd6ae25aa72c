package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baechuer/cityevents/services/analytics-service/internal/audit"
	"github.com/baechuer/cityevents/services/analytics-service/internal/config"
	"github.com/baechuer/cityevents/services/analytics-service/internal/infrastructure/postgres"
	"github.com/baechuer/cityevents/services/analytics-service/internal/infrastructure/rabbitmq"
	"github.com/baechuer/cityevents/services/analytics-service/internal/infrastructure/redis"
	"github.com/baechuer/cityevents/services/analytics-service/internal/notifier"
	"github.com/baechuer/cityevents/services/analytics-service/internal/pkg/logger"
	"github.com/baechuer/cityevents/services/analytics-service/internal/security"
	"github.com/baechuer/cityevents/services/analytics-service/internal/service"
	"github.com/baechuer/cityevents/services/analytics-service/internal/transport/rest"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	}

	logger.Init()
	log := logger.Logger.With().
		Str("service", "analytics-service").
		Str("env", cfg.AppEnv).
		Logger()

	// Root ctx with signal cancellation
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	dbPool, err := pgxpool.New(rootCtx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres pool create failed")
	}
	defer dbPool.Close()

	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		defer cancel()

		if err := dbPool.Ping(pingCtx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		log.Info().Msg("postgres connected")
	}

	repo := postgres.New(dbPool)
	{
		schemaCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		defer cancel()

		if err := repo.EnsureSchema(schemaCtx); err != nil {
			log.Fatal().Err(err).Msg("schema setup failed")
		}
	}

	// ---- Redis (ingest rate limiting) ----
	cache := redis.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		defer cancel()

		// Best-effort ping; the limiter fails open without redis
		if err := cache.Client.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed (continuing)")
		} else {
			log.Info().Msg("redis connected")
		}
	}

	// ---- Ingestion queue (publisher side) ----
	queue, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbitmq publisher setup failed")
	}
	defer queue.Close()

	// ---- Outbound collector webhook ----
	webhook := notifier.NewWebhook(cfg.WebhookURL, cfg.WebhookTimeout)
	if cfg.WebhookURL == "" {
		log.Info().Msg("collector webhook not configured, notifications disabled")
	}

	// ---- Consumer: persist then notify ----
	consumer := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue, repo, webhook)
	if err := consumer.Start(rootCtx); err != nil {
		log.Fatal().Err(err).Msg("rabbitmq consumer start failed")
	}
	log.Info().Str("queue", cfg.RabbitQueue).Msg("ingestion consumer started")

	// ---- Application service ----
	svc := service.NewAnalyticsService(repo, queue, audit.New(log))
	h := rest.NewHandler(svc, repo)

	// ---- JWT verifier ----
	verifier := security.NewHS256Verifier(cfg.JWTSecret)

	// ---- Router ----
	httpHandler := rest.NewRouter(rest.RouterDeps{
		Cache:            cache,
		Handler:          h,
		Verifier:         verifier,
		JWTIssuer:        cfg.JWTIssuer,
		RateLimitEnabled: cfg.RLEnabled,
		RateLimitMax:     cfg.RLLimit,
		RateLimitWindow:  cfg.RLWindow,
	})

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server crash
	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
