package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/atlas-hr/atlas-hr/internal/documents"
	jobmetrics "github.com/atlas-hr/atlas-hr/internal/jobs"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

const expiryScanLockTTL = 20 * time.Hour

// DocumentSource lists documents entering the expiring window. Satisfied by
// documents.Service.
type DocumentSource interface {
	ListExpiring(ctx context.Context, within time.Duration) ([]documents.Document, error)
}

// Enqueuer submits follow-up tasks. Satisfied by Client.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// ExpiryScanJob sweeps the document registry for upcoming expiries and
// queues one reminder mail per document with an owner address.
type ExpiryScanJob struct {
	Source   DocumentSource
	Enqueuer Enqueuer
	Redis    *redis.Client
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Window   time.Duration
	clock    func() time.Time
}

// NewExpiryScanJob initialises the sweep handler.
func NewExpiryScanJob(source DocumentSource, enqueuer Enqueuer, rdb *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics, window time.Duration) *ExpiryScanJob {
	return &ExpiryScanJob{
		Source:   source,
		Enqueuer: enqueuer,
		Redis:    rdb,
		Logger:   logger,
		Metrics:  metrics,
		Window:   window,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one sweep. A per-day redis lock keeps restarted workers
// and overlapping schedules from mailing owners twice.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload ExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := payload.Window
	if window <= 0 {
		window = j.Window
	}

	now := j.clock()
	if j.Redis != nil {
		key := shared.ExpiryScanLockKey(now.Format("2006-01-02"))
		acquired, err := j.Redis.SetNX(ctx, key, "1", expiryScanLockTTL).Result()
		if err != nil {
			return err
		}
		if !acquired {
			j.Logger.Info("expiry scan already ran today", slog.String("lock", key))
			return nil
		}
	}

	tracker := j.Metrics.Track(TaskTypeExpiryScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	docs, err := j.Source.ListExpiring(ctx, window)
	if err != nil {
		resultErr = err
		j.Logger.Error("expiry scan failed", slog.Any("error", err))
		return resultErr
	}

	byType := make(map[string]int)
	queued := 0
	for _, doc := range docs {
		byType[doc.Type]++
		if doc.OwnerEmail == "" {
			continue
		}
		daysLeft := int(doc.ExpiresAt.Sub(now).Hours() / 24)
		payload := SendEmailPayload{
			To:      doc.OwnerEmail,
			Subject: fmt.Sprintf("Document %q expires in %d day(s)", doc.Title, daysLeft),
			Body: fmt.Sprintf("Hello %s,\n\nYour document %q (%s) expires on %s. Please arrange a renewal.\n",
				doc.OwnerName, doc.Title, doc.Number, doc.ExpiresAt.Format("2006-01-02")),
		}
		if _, err := j.Enqueuer.EnqueueSendEmail(ctx, payload); err != nil {
			j.Logger.Error("enqueue reminder", slog.Int64("document_id", doc.ID), slog.Any("error", err))
			continue
		}
		queued++
	}
	for docType, count := range byType {
		j.Metrics.AddExpiring(docType, count)
	}

	j.Logger.Info("expiry scan finished",
		slog.Int("expiring", len(docs)),
		slog.Int("reminders_queued", queued),
		slog.Duration("window", window),
	)
	return nil
}
