// Package ext defines the extension system for the forwarding pipeline.
//
// Extensions are notified of write lifecycle events and can react to
// them — recording metrics, writing audit logs, alerting on fallbacks,
// etc. Each lifecycle hook is a separate interface so extensions opt in
// only to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobOpened(ctx context.Context, op *event.Operation, j *gateway.Job) error {
//	    log.Printf("job %s opened for %s", j.ID, op.JobKey)
//	    return nil
//	}
//
// # Write Lifecycle Hooks
//
//   - [WriteReceived] — event passed validation and mapping
//   - [JobOpened] — a create call opened a fresh upstream job
//   - [WriteAppended] — items were appended to an existing job
//   - [AppendFallback] — an append was rejected; falling back to create
//   - [DirectoryDegraded] — the job record could not be written back
//   - [WriteCompleted] — the write finished successfully
//   - [WriteFailed] — the write failed terminally
//   - [WriteDLQ] — the failed write was captured to the dead letter queue
//
// # Other Hooks
//
//   - [Shutdown] — the coalescer is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
