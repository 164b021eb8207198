// Package ext defines the extension system for the forwarding pipeline.
// Extensions are notified of write lifecycle events (job opened, append
// fallback, terminal failure, etc.) and can react to them — audit logs,
// metrics, alerting, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/gateway"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Write lifecycle hooks
// ──────────────────────────────────────────────────

// WriteReceived is called after an event passes validation and mapping,
// before the lock is taken.
type WriteReceived interface {
	OnWriteReceived(ctx context.Context, op *event.Operation) error
}

// JobOpened is called after a create call opens a fresh upstream job.
type JobOpened interface {
	OnJobOpened(ctx context.Context, op *event.Operation, j *gateway.Job) error
}

// WriteAppended is called after items are appended to an existing job.
type WriteAppended interface {
	OnWriteAppended(ctx context.Context, op *event.Operation, jobID string) error
}

// AppendFallback is called when an append is rejected and the write
// falls back to opening a fresh job.
type AppendFallback interface {
	OnAppendFallback(ctx context.Context, op *event.Operation, staleJobID string, err error) error
}

// DirectoryDegraded is called when recording a fresh job in the
// directory fails after the upstream write already succeeded.
// Coalescing is lost for subsequent writes until a new job is opened.
type DirectoryDegraded interface {
	OnDirectoryDegraded(ctx context.Context, op *event.Operation, err error) error
}

// WriteCompleted is called after a write finishes successfully, via
// either the append or the create path.
type WriteCompleted interface {
	OnWriteCompleted(ctx context.Context, op *event.Operation, elapsed time.Duration) error
}

// WriteFailed is called when a write fails terminally and the error is
// surfaced to the caller.
type WriteFailed interface {
	OnWriteFailed(ctx context.Context, op *event.Operation, err error) error
}

// WriteDLQ is called when a failed write is captured into the dead
// letter queue.
type WriteDLQ interface {
	OnWriteDLQ(ctx context.Context, op *event.Operation, err error) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
