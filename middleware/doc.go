// Package middleware provides composable middleware for write execution.
//
// A [Middleware] is a function that wraps the write state machine.
// Middleware are composed into a chain using [Chain] and applied before
// each write executes. They are applied right-to-left: the first
// middleware in the slice is the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs event kind, workspace, duration, and outcome
//   - [Recover] — catches panics and converts them to errors
//   - [Timeout] — cancels the write context after a configured duration
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-write duration and outcome counters
//   - [Scope] — injects the operation's workspace and user key into context
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, op *event.Operation, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
