package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/atlas-hr/atlas-hr/internal/app"
	"github.com/atlas-hr/atlas-hr/internal/documents"
	jobmetrics "github.com/atlas-hr/atlas-hr/internal/jobs"
	"github.com/atlas-hr/atlas-hr/internal/platform/cache"
	"github.com/atlas-hr/atlas-hr/internal/platform/db"
	"github.com/atlas-hr/atlas-hr/internal/shared"
	"github.com/atlas-hr/atlas-hr/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
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

	mailer := jobs.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	sendJob := jobs.SendEmailJob{Mailer: mailer, Logger: logger}

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	documentsRepo := documents.NewRepository(pool)
	documentsService := documents.NewService(documentsRepo, auditLogger, cfg.ExpiryWarnWindow)

	metrics := jobmetrics.NewMetrics(nil)
	scanJob := jobs.NewExpiryScanJob(documentsService, client, redisClient, logger, metrics, cfg.ExpiryWarnWindow)
	maintenanceJob := jobs.NewMaintenanceJob(shared.NewIdempotencyStore(pool), logger, metrics)

	scanTask, err := jobs.NewExpiryScanTask(jobs.ExpiryScanPayload{})
	if err != nil {
		logger.Error("build expiry scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: sendJob.Handle},
			{Type: jobs.TaskTypeExpiryScan, Handler: scanJob.Handle},
			{Type: jobs.TaskTypeMaintenance, Handler: maintenanceJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExpiryScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * 0", Task: jobs.NewMaintenanceTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
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
