package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-hr/atlas-hr/internal/documents"
)

type stubSource struct {
	docs []documents.Document
	got  time.Duration
}

func (s *stubSource) ListExpiring(ctx context.Context, within time.Duration) ([]documents.Document, error) {
	s.got = within
	return s.docs, nil
}

type stubEnqueuer struct {
	sent []SendEmailPayload
}

func (s *stubEnqueuer) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	s.sent = append(s.sent, payload)
	return &asynq.TaskInfo{}, nil
}

func newScanJob(t *testing.T, source *stubSource, enqueuer *stubEnqueuer) (*ExpiryScanJob, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewExpiryScanJob(source, enqueuer, rdb, logger, nil, 30*24*time.Hour)
	job.clock = func() time.Time { return time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC) }
	return job, rdb
}

func scanTask(t *testing.T, payload ExpiryScanPayload) *asynq.Task {
	t.Helper()
	task, err := NewExpiryScanTask(payload)
	require.NoError(t, err)
	return task
}

func TestExpiryScanQueuesReminders(t *testing.T) {
	source := &stubSource{docs: []documents.Document{
		{ID: 1, Title: "Work Permit", Number: "WP-9", Type: "permit",
			OwnerName: "Dana", OwnerEmail: "dana@atlas.local",
			ExpiresAt: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Title: "Lease", Type: "contract", OwnerName: "Ops",
			ExpiresAt: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)},
	}}
	enqueuer := &stubEnqueuer{}
	job, _ := newScanJob(t, source, enqueuer)

	require.NoError(t, job.Handle(context.Background(), scanTask(t, ExpiryScanPayload{})))

	// Only the document with an owner address gets a reminder.
	require.Len(t, enqueuer.sent, 1)
	assert.Equal(t, "dana@atlas.local", enqueuer.sent[0].To)
	assert.Contains(t, enqueuer.sent[0].Subject, "Work Permit")
	assert.Contains(t, enqueuer.sent[0].Subject, "6 day(s)")
	assert.Equal(t, 30*24*time.Hour, source.got)
}

func TestExpiryScanDailyLock(t *testing.T) {
	source := &stubSource{docs: []documents.Document{
		{ID: 1, Title: "Doc", Type: "permit", OwnerName: "A", OwnerEmail: "a@atlas.local",
			ExpiresAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
	}}
	enqueuer := &stubEnqueuer{}
	job, _ := newScanJob(t, source, enqueuer)

	require.NoError(t, job.Handle(context.Background(), scanTask(t, ExpiryScanPayload{})))
	require.NoError(t, job.Handle(context.Background(), scanTask(t, ExpiryScanPayload{})))

	// Second run on the same day is a no-op.
	assert.Len(t, enqueuer.sent, 1)
}

func TestExpiryScanPayloadWindowOverride(t *testing.T) {
	source := &stubSource{}
	job, _ := newScanJob(t, source, &stubEnqueuer{})

	require.NoError(t, job.Handle(context.Background(), scanTask(t, ExpiryScanPayload{Window: 7 * 24 * time.Hour})))
	assert.Equal(t, 7*24*time.Hour, source.got)
}

func TestExpiryScanMalformedPayloadSkipsRetry(t *testing.T) {
	job, _ := newScanJob(t, &stubSource{}, &stubEnqueuer{})
	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeExpiryScan, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
