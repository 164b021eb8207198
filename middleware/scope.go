package middleware

import (
	"context"

	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/scope"
)

// Scope returns middleware that restores the operation's workspace and
// user key into the context. Downstream components (gateway throttling,
// log enrichment) read them back with scope.Capture.
func Scope() Middleware {
	return func(ctx context.Context, op *event.Operation, next Handler) error {
		ctx = scope.Restore(ctx, op.Workspace, op.UserKey)
		return next(ctx)
	}
}
