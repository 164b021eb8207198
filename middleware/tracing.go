package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/coalesce/event"
)

// tracerName is the instrumentation scope name for coalesce tracing.
const tracerName = "github.com/xraph/coalesce"

// Tracing returns middleware that wraps write execution in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop tracer
// is used and this middleware becomes a pass-through with zero overhead.
//
// Span attributes include: coalesce.op.id, coalesce.event.kind,
// coalesce.data_type, coalesce.workspace, coalesce.job_key.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, op *event.Operation, next Handler) error {
		ctx, span := tracer.Start(ctx, "coalesce.write.forward",
			trace.WithAttributes(
				attribute.String("coalesce.op.id", op.ID.String()),
				attribute.String("coalesce.event.kind", string(op.Kind)),
				attribute.String("coalesce.data_type", string(op.DataType)),
				attribute.String("coalesce.workspace", op.Workspace),
				attribute.String("coalesce.job_key", op.JobKey),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
