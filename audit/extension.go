package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/ext"
	"github.com/xraph/coalesce/gateway"
)

// Compile-time interface checks.
var (
	_ ext.Extension         = (*Extension)(nil)
	_ ext.WriteReceived     = (*Extension)(nil)
	_ ext.JobOpened         = (*Extension)(nil)
	_ ext.WriteAppended     = (*Extension)(nil)
	_ ext.AppendFallback    = (*Extension)(nil)
	_ ext.DirectoryDegraded = (*Extension)(nil)
	_ ext.WriteCompleted    = (*Extension)(nil)
	_ ext.WriteFailed       = (*Extension)(nil)
	_ ext.WriteDLQ          = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so this package does not depend on any concrete
// audit store — callers inject an adapter at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *Event) error
}

// Event is a local representation of an audit event.
type Event struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges write lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit" }

// ── Write lifecycle hooks ───────────────────────────

// OnWriteReceived implements ext.WriteReceived.
func (e *Extension) OnWriteReceived(ctx context.Context, op *event.Operation) error {
	return e.record(ctx, ActionWriteReceived, SeverityInfo, OutcomeSuccess,
		ResourceWrite, op.ID.String(), CategoryWrite, nil,
		"kind", string(op.Kind),
		"data_type", string(op.DataType),
		"workspace", op.Workspace,
		"user_key", op.UserKey,
	)
}

// OnJobOpened implements ext.JobOpened.
func (e *Extension) OnJobOpened(ctx context.Context, op *event.Operation, j *gateway.Job) error {
	return e.record(ctx, ActionJobOpened, SeverityInfo, OutcomeSuccess,
		ResourceJob, j.ID, CategoryJob, nil,
		"job_key", op.JobKey,
		"data_type", string(op.DataType),
		"workspace", op.Workspace,
		"closing_at", j.ClosingAt.Format(time.RFC3339),
	)
}

// OnWriteAppended implements ext.WriteAppended.
func (e *Extension) OnWriteAppended(ctx context.Context, op *event.Operation, jobID string) error {
	return e.record(ctx, ActionWriteAppended, SeverityInfo, OutcomeSuccess,
		ResourceWrite, op.ID.String(), CategoryWrite, nil,
		"job_id", jobID,
		"job_key", op.JobKey,
		"items", len(op.Items),
	)
}

// OnAppendFallback implements ext.AppendFallback.
func (e *Extension) OnAppendFallback(ctx context.Context, op *event.Operation, staleJobID string, appendErr error) error {
	return e.record(ctx, ActionAppendFallback, SeverityWarning, OutcomeFailure,
		ResourceWrite, op.ID.String(), CategoryWrite, appendErr,
		"stale_job_id", staleJobID,
		"job_key", op.JobKey,
	)
}

// OnDirectoryDegraded implements ext.DirectoryDegraded.
func (e *Extension) OnDirectoryDegraded(ctx context.Context, op *event.Operation, dirErr error) error {
	return e.record(ctx, ActionDirectoryDegraded, SeverityWarning, OutcomeFailure,
		ResourceDirectory, op.JobKey, CategoryDirectory, dirErr,
		"workspace", op.Workspace,
	)
}

// OnWriteCompleted implements ext.WriteCompleted.
func (e *Extension) OnWriteCompleted(ctx context.Context, op *event.Operation, elapsed time.Duration) error {
	return e.record(ctx, ActionWriteCompleted, SeverityInfo, OutcomeSuccess,
		ResourceWrite, op.ID.String(), CategoryWrite, nil,
		"kind", string(op.Kind),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnWriteFailed implements ext.WriteFailed.
func (e *Extension) OnWriteFailed(ctx context.Context, op *event.Operation, writeErr error) error {
	return e.record(ctx, ActionWriteFailed, SeverityCritical, OutcomeFailure,
		ResourceWrite, op.ID.String(), CategoryWrite, writeErr,
		"kind", string(op.Kind),
		"data_type", string(op.DataType),
		"workspace", op.Workspace,
		"user_key", op.UserKey,
	)
}

// OnWriteDLQ implements ext.WriteDLQ.
func (e *Extension) OnWriteDLQ(ctx context.Context, op *event.Operation, writeErr error) error {
	return e.record(ctx, ActionWriteDLQ, SeverityCritical, OutcomeFailure,
		ResourceWrite, op.ID.String(), CategoryWrite, writeErr,
		"workspace", op.Workspace,
		"user_key", op.UserKey,
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &Event{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
