package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adevav/adevav-api/internal/audit"
	jobmetrics "github.com/adevav/adevav-api/internal/jobs"
	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/users"
)

// NewAuditRecordHandler returns the worker handler persisting audit entries.
func NewAuditRecordHandler(logger *audit.Logger, log *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("audit_record")
		var entry audit.Entry
		if err := json.Unmarshal(t.Payload(), &entry); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		if err := logger.Record(ctx, entry); err != nil {
			if log != nil {
				log.Error("audit record", slog.Any("error", err))
			}
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}

// NewAuditPurgeHandler returns the worker handler trimming the audit trail.
func NewAuditPurgeHandler(logger *audit.Logger, log *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("audit_purge")
		var payload AuditPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		removed, err := logger.Purge(ctx, payload.Retention)
		if err != nil {
			if log != nil {
				log.Error("audit purge", slog.Any("error", err))
			}
			return tracker.End(err)
		}
		if log != nil {
			log.Info("audit purge", slog.Int64("removed", removed))
		}
		return tracker.End(nil)
	}
}

// AuditEvents enqueues audit entries from the request path. It satisfies the
// auth handler's Events interface and supplies the policy guard's deny hook.
// Enqueue failures are logged and dropped; the request outcome never depends
// on the queue.
type AuditEvents struct {
	Client *Client
	Logger *slog.Logger
}

// LoginSucceeded records a successful login.
func (e *AuditEvents) LoginSucceeded(ctx context.Context, user *users.User) {
	e.enqueue(ctx, audit.Entry{
		ActorID:  user.ID.String(),
		Action:   "login",
		Entity:   "auth",
		EntityID: user.ID.String(),
		At:       time.Now().UTC(),
	})
}

// LoginFailed records a failed login attempt. The candidate email is kept so
// brute forcing is visible in the trail.
func (e *AuditEvents) LoginFailed(ctx context.Context, email string) {
	e.enqueue(ctx, audit.Entry{
		Action: "login_failed",
		Entity: "auth",
		Meta:   map[string]any{"email": email},
		At:     time.Now().UTC(),
	})
}

// PolicyDenied records a request stopped at the policy gate.
func (e *AuditEvents) PolicyDenied(r *http.Request, resource, action string, id policy.Identity) {
	entry := audit.Entry{
		Action: "policy_denied",
		Entity: resource,
		Meta:   map[string]any{"action": action, "path": r.URL.Path},
		At:     time.Now().UTC(),
	}
	if !id.Anonymous() {
		entry.ActorID = id.SubjectID.String()
		entry.Meta["role"] = id.Role.String()
	}
	e.enqueue(r.Context(), entry)
}

func (e *AuditEvents) enqueue(ctx context.Context, entry audit.Entry) {
	if e == nil || e.Client == nil {
		return
	}
	task, err := NewAuditRecordTask(entry)
	if err != nil {
		return
	}
	if _, err := e.Client.Enqueue(ctx, task); err != nil && e.Logger != nil {
		e.Logger.Warn("audit enqueue", slog.Any("error", err))
	}
}
