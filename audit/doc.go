// Package audit is an extension that bridges write lifecycle events to
// an immutable audit trail backend.
//
// Every write, job, and directory lifecycle hook emits a structured
// audit event through the [Recorder] interface. The extension assigns
// appropriate severity levels (info for normal operations, warning for
// fallbacks and degradations, critical for terminal failures) and rich
// metadata (event kind, data type, workspace, job ids, errors).
//
// # Usage
//
//	audit.New(audit.RecorderFunc(func(ctx context.Context, evt *audit.Event) error {
//	    slog.InfoContext(ctx, "audit",
//	        "action", evt.Action,
//	        "resource", evt.Resource,
//	        "resource_id", evt.ResourceID,
//	        "outcome", evt.Outcome,
//	    )
//	    return nil
//	}))
//
// # Selective filtering
//
//	audit.New(recorder,
//	    audit.WithActions(
//	        audit.ActionAppendFallback,
//	        audit.ActionWriteFailed,
//	        audit.ActionWriteDLQ,
//	    ),
//	)
package audit
