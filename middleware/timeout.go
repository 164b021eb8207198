package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/coalesce/event"
)

// Timeout returns middleware that enforces a per-write execution deadline.
// If d is non-zero, a context.WithTimeout wraps the handler call. When the
// deadline is exceeded the context is cancelled and the handler should
// return context.DeadlineExceeded.
func Timeout(logger *slog.Logger, d time.Duration) Middleware {
	return func(ctx context.Context, op *event.Operation, next Handler) error {
		if d > 0 {
			logger.Debug("write timeout set",
				slog.String("op_id", op.ID.String()),
				slog.Duration("timeout", d),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
