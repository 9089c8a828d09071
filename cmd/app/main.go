// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shortform-video-orchestrator/internal/application"
	"shortform-video-orchestrator/internal/config"
	pg "shortform-video-orchestrator/internal/infra/db/postgres"
	"shortform-video-orchestrator/internal/infra/logging"
	"shortform-video-orchestrator/internal/infra/metrics"
	red "shortform-video-orchestrator/internal/infra/redis"
	"shortform-video-orchestrator/internal/infra/renderer"
	"shortform-video-orchestrator/internal/infra/sched"
	"shortform-video-orchestrator/internal/infra/web"
	"shortform-video-orchestrator/internal/infra/worker"
	"shortform-video-orchestrator/internal/usecase"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	dbPool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer dbPool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	jobRepo := pg.NewJobRepoCacheDecorator(pg.NewJobRepo(dbPool), redisClient, cfg.Redis.TTL)
	renderRepo := pg.NewRenderJobRepo(dbPool)
	txm := pg.NewTxManager(dbPool)

	// ---- Use cases ----
	jobUC := usecase.NewJobUseCase(jobRepo, logger).WithTxManager(txm)
	gateway := renderer.NewModalGateway(&cfg.Renderer, logger)
	renderUC := usecase.NewRenderUseCase(renderRepo, gateway, logger)

	// ---- Facade ----
	facade := application.NewQueueFacade(jobUC, renderUC)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", 30*time.Minute)
	srv := web.NewServer(jobUC, renderUC, facade, rateLimiter, auth, cfg.Webhook.RateLimit, cfg.Webhook.RateLimitWindow, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Background workers ----
	workers := worker.NewPool(cfg.Server.Workers, logger)
	workers.Start(ctx)

	cleanup := sched.NewCleanupWorker(jobUC, locker, cfg.Scheduler.CleanupInterval, cfg.Scheduler.CleanupMaxAgeDays, logger)
	_ = workers.Submit(cleanup.Run)

	stale := sched.NewStaleWatcher(jobUC, locker, cfg.Scheduler.StaleCheckInterval, logger)
	_ = workers.Submit(stale.Run)

	_ = workers.Submit(func(ctx context.Context) error {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				st := dbPool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	})

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	cancel()
	workers.Stop()
}
