package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/sentinel-iga/sentinel/internal/app"
	"github.com/sentinel-iga/sentinel/internal/directory"
	jobmetrics "github.com/sentinel-iga/sentinel/internal/jobs"
	"github.com/sentinel-iga/sentinel/internal/mining"
	"github.com/sentinel-iga/sentinel/internal/platform/cache"
	"github.com/sentinel-iga/sentinel/internal/platform/db"
	"github.com/sentinel-iga/sentinel/internal/sod"
	"github.com/sentinel-iga/sentinel/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
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

	metrics := jobmetrics.NewMetrics(nil)
	runJob := mining.NewRunJob(miningService, metrics, logger)
	scheduledJob := mining.NewScheduledJob(miningService, logger)

	var cron []jobs.CronRegistration
	if cfg.MiningScheduleCron != "" {
		task, err := jobs.NewMiningScheduledTask(jobs.MiningScheduledPayload{
			Algorithm:   cfg.MiningScheduleAlgorithm,
			RequestedBy: "scheduler",
		})
		if err != nil {
			logger.Error("build scheduled mining task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.MiningScheduleCron,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMiningRun, Handler: runJob.Handle},
			{Type: jobs.TaskMiningScheduled, Handler: scheduledJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
