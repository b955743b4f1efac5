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

	"github.com/convertline/convertline/cmd/convertline/cli"
	"github.com/convertline/convertline/internal/app"
	"github.com/convertline/convertline/internal/ledger"
	"github.com/convertline/convertline/internal/observability"
	"github.com/convertline/convertline/internal/orders"
	"github.com/convertline/convertline/internal/platform/cache"
	"github.com/convertline/convertline/internal/platform/db"
	"github.com/convertline/convertline/internal/progress"
	"github.com/convertline/convertline/internal/registry"
	"github.com/convertline/convertline/internal/report"
	"github.com/convertline/convertline/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(cfg.AsynqRedis())
		code := jobsCLI.Command(ctx, os.Args[2:], os.Stdout)
		_ = jobsCLI.Close()
		os.Exit(code)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	metrics := observability.NewMetrics()
	reportCache := report.NewCache(redisClient, cfg.ReportCacheTTL)

	registryService := registry.NewService(registry.NewRepository(dbpool))
	ordersService := orders.NewService(orders.NewRepository(dbpool), cfg.Policy())
	ledgerService := ledger.NewService(ledger.NewRepository(dbpool), logger, metrics, reportCache)
	ledgerReader := ledger.NewReader(dbpool)
	reportService := report.NewService(ledgerReader, reportCache, logger)
	progressService := progress.NewService(progress.NewRepository(dbpool), ledgerReader)

	inspector := asynq.NewInspector(cfg.AsynqRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(cfg.AsynqRedis())
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		RegistryHandler: registry.NewHandler(logger, registryService),
		OrdersHandler:   orders.NewHandler(logger, ordersService),
		LedgerHandler:   ledger.NewHandler(logger, ledgerService),
		ReportHandler:   report.NewHandler(logger, reportService, cfg.RateLimitPerMinute),
		ProgressHandler: progress.NewHandler(logger, progressService),
		JobHandler:      jobs.NewHandler(inspector, jobClient, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("job_order_policy", string(cfg.Policy())))
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
