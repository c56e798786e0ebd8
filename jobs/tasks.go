package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adevav/adevav-api/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRecord appends one entry to the audit trail.
	TaskAuditRecord = "audit:record"
	// TaskAuditPurge trims the audit trail to the retention window.
	TaskAuditPurge = "audit:purge"
)

// NewAuditRecordTask constructs an Asynq task carrying one audit entry.
func NewAuditRecordTask(entry audit.Entry) (*asynq.Task, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, body, asynq.Queue(QueueDefault)), nil
}

// AuditPurgePayload carries the retention window for a purge run.
type AuditPurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditPurgeTask constructs an Asynq task for the nightly purge.
func NewAuditPurgeTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(AuditPurgePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPurge, body, asynq.Queue(QueueDefault)), nil
}
