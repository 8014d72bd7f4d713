package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
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
	logger := app.NewLogger(cfg, "ledger-worker")

	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backends", slog.Any("error", err))
		os.Exit(1)
	}
	defer backends.Close()

	metrics := observability.NewMetrics()
	store, err := backends.AccountStore(cfg, metrics.Ledger())
	if err != nil {
		logger.Error("init account store", slog.Any("error", err))
		os.Exit(1)
	}
	ensureJob := jobs.NewEnsureSystemAccountsJob(store, logger, metrics.Jobs())

	var cron []jobs.CronRegistration
	if cfg.LedgerSystemManifest != "" {
		manifest, err := jobs.LoadManifest(cfg.LedgerSystemManifest)
		if err != nil {
			logger.Error("load system account manifest", slog.String("path", cfg.LedgerSystemManifest), slog.Any("error", err))
			os.Exit(1)
		}
		cron, err = manifest.Cron()
		if err != nil {
			logger.Error("build ensure task", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("system account manifest loaded", slog.Int("tenants", len(manifest.Tenants)), slog.String("schedule", manifest.Schedule))
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskEnsureSystemAccounts, Handler: ensureJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
