package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/coalesce/event"
)

// Logging returns middleware that logs write start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, op *event.Operation, next Handler) error {
		logger.Info("write started",
			slog.String("kind", string(op.Kind)),
			slog.String("op_id", op.ID.String()),
			slog.String("workspace", op.Workspace),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("write failed",
				slog.String("kind", string(op.Kind)),
				slog.String("op_id", op.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("write completed",
				slog.String("kind", string(op.Kind)),
				slog.String("op_id", op.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
