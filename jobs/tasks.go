package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeExpiryScan is the nightly document expiry sweep.
	TaskTypeExpiryScan = "documents:expiry_scan"
	// TaskTypeMaintenance is the periodic housekeeping sweep.
	TaskTypeMaintenance = "system:maintenance"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// ExpiryScanPayload tunes a single expiry sweep. A zero window falls back
// to the configured default.
type ExpiryScanPayload struct {
	Window time.Duration `json:"window,omitempty"`
}

// NewExpiryScanTask constructs the nightly sweep task.
func NewExpiryScanTask(payload ExpiryScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeExpiryScan, data), nil
}

// NewMaintenanceTask constructs the housekeeping task. It carries no payload.
func NewMaintenanceTask() *asynq.Task {
	return asynq.NewTask(TaskTypeMaintenance, nil)
}
