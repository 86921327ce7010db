package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sentinel-iga/sentinel/internal/app"
	"github.com/sentinel-iga/sentinel/internal/auth"
	"github.com/sentinel-iga/sentinel/internal/directory"
	"github.com/sentinel-iga/sentinel/internal/mining"
	mininghttp "github.com/sentinel-iga/sentinel/internal/mining/http"
	"github.com/sentinel-iga/sentinel/internal/observability"
	"github.com/sentinel-iga/sentinel/internal/platform/cache"
	"github.com/sentinel-iga/sentinel/internal/platform/db"
	"github.com/sentinel-iga/sentinel/internal/sod"
	"github.com/sentinel-iga/sentinel/jobs"
	"github.com/sentinel-iga/sentinel/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	sodEngine := sod.NewEngine(sod.NewRepository(pool))
	directoryService := directory.NewService(directory.NewRepository(pool))
	miner := mining.NewMiner(sodEngine, mining.NewRegistry(), logger)
	resultCache := mining.NewCache(redisClient, cfg.ResultCacheTTL)
	miningService := mining.NewService(mining.NewRepository(pool), directoryService, miner, resultCache, jobClient, logger)

	var pdfClient *report.Client
	if cfg.GotenbergURL != "" {
		pdfClient = report.NewClient(cfg.GotenbergURL)
	}
	miningHandler := mininghttp.NewHandler(logger, miningService, pdfClient)

	metrics := observability.NewMetrics()
	guard := auth.NewMiddleware(cfg.APITokenHash, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Auth:          guard,
		MiningHandler: miningHandler,
		JobHandler:    jobHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
