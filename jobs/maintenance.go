package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/atlas-hr/atlas-hr/internal/jobs"
)

// defaultKeyRetention bounds how long processed idempotency keys are kept.
// Clients retry for minutes, not weeks.
const defaultKeyRetention = 7 * 24 * time.Hour

// KeyStore prunes stale idempotency keys. Satisfied by
// shared.IdempotencyStore.
type KeyStore interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// MaintenanceJob runs periodic housekeeping that does not belong to any
// single domain module.
type MaintenanceJob struct {
	Keys      KeyStore
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Retention time.Duration
}

// NewMaintenanceJob constructs the job. A zero retention falls back to a
// week.
func NewMaintenanceJob(keys KeyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *MaintenanceJob {
	return &MaintenanceJob{Keys: keys, Logger: logger, Metrics: metrics, Retention: defaultKeyRetention}
}

// Handle processes TaskTypeMaintenance tasks.
func (j *MaintenanceJob) Handle(ctx context.Context, t *asynq.Task) error {
	retention := j.Retention
	if retention <= 0 {
		retention = defaultKeyRetention
	}

	tracker := j.Metrics.Track(TaskTypeMaintenance)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.Keys.Cleanup(ctx, retention); err != nil {
		resultErr = err
		j.Logger.Error("prune idempotency keys", slog.Any("error", err))
		return resultErr
	}
	j.Logger.Info("maintenance complete", slog.Duration("retention", retention))
	return nil
}
