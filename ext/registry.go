package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/gateway"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type writeReceivedEntry struct {
	name string
	hook WriteReceived
}

type jobOpenedEntry struct {
	name string
	hook JobOpened
}

type writeAppendedEntry struct {
	name string
	hook WriteAppended
}

type appendFallbackEntry struct {
	name string
	hook AppendFallback
}

type directoryDegradedEntry struct {
	name string
	hook DirectoryDegraded
}

type writeCompletedEntry struct {
	name string
	hook WriteCompleted
}

type writeFailedEntry struct {
	name string
	hook WriteFailed
}

type writeDLQEntry struct {
	name string
	hook WriteDLQ
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	writeReceived     []writeReceivedEntry
	jobOpened         []jobOpenedEntry
	writeAppended     []writeAppendedEntry
	appendFallback    []appendFallbackEntry
	directoryDegraded []directoryDegradedEntry
	writeCompleted    []writeCompletedEntry
	writeFailed       []writeFailedEntry
	writeDLQ          []writeDLQEntry
	shutdown          []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(WriteReceived); ok {
		r.writeReceived = append(r.writeReceived, writeReceivedEntry{name, h})
	}
	if h, ok := e.(JobOpened); ok {
		r.jobOpened = append(r.jobOpened, jobOpenedEntry{name, h})
	}
	if h, ok := e.(WriteAppended); ok {
		r.writeAppended = append(r.writeAppended, writeAppendedEntry{name, h})
	}
	if h, ok := e.(AppendFallback); ok {
		r.appendFallback = append(r.appendFallback, appendFallbackEntry{name, h})
	}
	if h, ok := e.(DirectoryDegraded); ok {
		r.directoryDegraded = append(r.directoryDegraded, directoryDegradedEntry{name, h})
	}
	if h, ok := e.(WriteCompleted); ok {
		r.writeCompleted = append(r.writeCompleted, writeCompletedEntry{name, h})
	}
	if h, ok := e.(WriteFailed); ok {
		r.writeFailed = append(r.writeFailed, writeFailedEntry{name, h})
	}
	if h, ok := e.(WriteDLQ); ok {
		r.writeDLQ = append(r.writeDLQ, writeDLQEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Write event emitters
// ──────────────────────────────────────────────────

// EmitWriteReceived notifies all extensions that implement WriteReceived.
func (r *Registry) EmitWriteReceived(ctx context.Context, op *event.Operation) {
	for _, e := range r.writeReceived {
		if err := e.hook.OnWriteReceived(ctx, op); err != nil {
			r.logHookError("OnWriteReceived", e.name, err)
		}
	}
}

// EmitJobOpened notifies all extensions that implement JobOpened.
func (r *Registry) EmitJobOpened(ctx context.Context, op *event.Operation, j *gateway.Job) {
	for _, e := range r.jobOpened {
		if err := e.hook.OnJobOpened(ctx, op, j); err != nil {
			r.logHookError("OnJobOpened", e.name, err)
		}
	}
}

// EmitWriteAppended notifies all extensions that implement WriteAppended.
func (r *Registry) EmitWriteAppended(ctx context.Context, op *event.Operation, jobID string) {
	for _, e := range r.writeAppended {
		if err := e.hook.OnWriteAppended(ctx, op, jobID); err != nil {
			r.logHookError("OnWriteAppended", e.name, err)
		}
	}
}

// EmitAppendFallback notifies all extensions that implement AppendFallback.
func (r *Registry) EmitAppendFallback(ctx context.Context, op *event.Operation, staleJobID string, appendErr error) {
	for _, e := range r.appendFallback {
		if err := e.hook.OnAppendFallback(ctx, op, staleJobID, appendErr); err != nil {
			r.logHookError("OnAppendFallback", e.name, err)
		}
	}
}

// EmitDirectoryDegraded notifies all extensions that implement DirectoryDegraded.
func (r *Registry) EmitDirectoryDegraded(ctx context.Context, op *event.Operation, dirErr error) {
	for _, e := range r.directoryDegraded {
		if err := e.hook.OnDirectoryDegraded(ctx, op, dirErr); err != nil {
			r.logHookError("OnDirectoryDegraded", e.name, err)
		}
	}
}

// EmitWriteCompleted notifies all extensions that implement WriteCompleted.
func (r *Registry) EmitWriteCompleted(ctx context.Context, op *event.Operation, elapsed time.Duration) {
	for _, e := range r.writeCompleted {
		if err := e.hook.OnWriteCompleted(ctx, op, elapsed); err != nil {
			r.logHookError("OnWriteCompleted", e.name, err)
		}
	}
}

// EmitWriteFailed notifies all extensions that implement WriteFailed.
func (r *Registry) EmitWriteFailed(ctx context.Context, op *event.Operation, writeErr error) {
	for _, e := range r.writeFailed {
		if err := e.hook.OnWriteFailed(ctx, op, writeErr); err != nil {
			r.logHookError("OnWriteFailed", e.name, err)
		}
	}
}

// EmitWriteDLQ notifies all extensions that implement WriteDLQ.
func (r *Registry) EmitWriteDLQ(ctx context.Context, op *event.Operation, writeErr error) {
	for _, e := range r.writeDLQ {
		if err := e.hook.OnWriteDLQ(ctx, op, writeErr); err != nil {
			r.logHookError("OnWriteDLQ", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
