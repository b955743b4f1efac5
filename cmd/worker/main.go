package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/convertline/convertline/internal/app"
	jobmetrics "github.com/convertline/convertline/internal/jobs"
	"github.com/convertline/convertline/internal/ledger"
	"github.com/convertline/convertline/internal/legacy"
	"github.com/convertline/convertline/internal/platform/cache"
	"github.com/convertline/convertline/internal/platform/db"
	"github.com/convertline/convertline/internal/report"
	"github.com/convertline/convertline/internal/shared"
	"github.com/convertline/convertline/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	mapping, err := legacy.LoadMapping(cfg.LegacyMappingFile)
	if err != nil {
		logger.Error("load legacy mapping", slog.String("file", cfg.LegacyMappingFile), slog.Any("error", err))
		os.Exit(1)
	}

	metrics := jobmetrics.NewMetrics(nil)
	reportCache := report.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := report.NewService(ledger.NewReader(pool), reportCache, logger)
	sink := legacy.NewPgSink(pool)

	importJob := &jobs.LegacyImportJob{
		NewRunner: func(dir string) jobs.LegacyRunner {
			return legacy.NewDirImporter(mapping, dir, sink, logger)
		},
		DefaultDir:  cfg.LegacyDataDir,
		Invalidator: reportCache,
		Logger:      logger,
		Metrics:     metrics,
	}
	warmupJob := jobs.NewReportWarmupJob(reportService, logger, metrics)
	cleanupJob := &jobs.IdempotencyCleanupJob{
		Store:   shared.NewIdempotencyStore(),
		DB:      pool,
		Logger:  logger,
		Metrics: metrics,
	}

	cron := []jobs.CronRegistration{
		{Spec: "30 3 * * *", Task: jobs.NewIdempotencyCleanupTask()},
	}
	if cfg.ReportWarmupCron != "" {
		task, err := jobs.NewReportWarmupTask(jobs.ReportWarmupPayload{})
		if err != nil {
			logger.Error("build warmup task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.ReportWarmupCron, Task: task})
	}
	if cfg.LegacyImportCron != "" {
		task, err := jobs.NewLegacyImportTask(jobs.LegacyImportPayload{})
		if err != nil {
			logger.Error("build legacy import task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.LegacyImportCron, Task: task, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.AsynqRedis(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLegacyImport, Handler: importJob.Handle},
			{Type: jobs.TaskReportWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
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
