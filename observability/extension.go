package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/ext"
	"github.com/xraph/coalesce/gateway"
)

const meterName = "github.com/xraph/coalesce/observability"

// Compile-time interface checks.
var (
	_ ext.Extension         = (*MetricsExtension)(nil)
	_ ext.WriteReceived     = (*MetricsExtension)(nil)
	_ ext.JobOpened         = (*MetricsExtension)(nil)
	_ ext.WriteAppended     = (*MetricsExtension)(nil)
	_ ext.AppendFallback    = (*MetricsExtension)(nil)
	_ ext.DirectoryDegraded = (*MetricsExtension)(nil)
	_ ext.WriteCompleted    = (*MetricsExtension)(nil)
	_ ext.WriteFailed       = (*MetricsExtension)(nil)
	_ ext.WriteDLQ          = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle counters via OpenTelemetry.
// Register it as a Coalesce extension to automatically track write arrival
// rates, bulk job opens, append counts, fallback frequency, directory
// degradations, completions, failures, and DLQ entries.
type MetricsExtension struct {
	WriteReceived     metric.Int64Counter
	JobOpened         metric.Int64Counter
	WriteAppended     metric.Int64Counter
	AppendFallback    metric.Int64Counter
	DirectoryDegraded metric.Int64Counter
	WriteCompleted    metric.Int64Counter
	WriteFailed       metric.Int64Counter
	WriteDLQ          metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global meter provider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided meter.
// Use this to bind the counters to a specific MeterProvider, or one backed by a
// manual reader for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name,
			metric.WithDescription(desc),
			metric.WithUnit("{write}"))
		_ = err // noop fallback guaranteed by the OTel API contract
		return c
	}
	m := &MetricsExtension{
		WriteReceived:     counter("coalesce.write.received", "Writes accepted for forwarding"),
		WriteAppended:     counter("coalesce.write.appended", "Writes appended to an open bulk job"),
		AppendFallback:    counter("coalesce.write.fallback", "Appends that fell back to opening a fresh job"),
		WriteCompleted:    counter("coalesce.write.completed", "Writes forwarded upstream"),
		WriteFailed:       counter("coalesce.write.failed", "Writes that failed terminally"),
		WriteDLQ:          counter("coalesce.write.dlq", "Writes moved to the dead letter queue"),
		DirectoryDegraded: counter("coalesce.directory.degraded", "Directory record writes that were skipped or lost"),
	}
	j, err := meter.Int64Counter("coalesce.job.opened",
		metric.WithDescription("Bulk jobs opened upstream"),
		metric.WithUnit("{job}"))
	_ = err
	m.JobOpened = j
	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Write lifecycle hooks ───────────────────────────

// OnWriteReceived implements ext.WriteReceived.
func (m *MetricsExtension) OnWriteReceived(ctx context.Context, _ *event.Operation) error {
	m.WriteReceived.Add(ctx, 1)
	return nil
}

// OnWriteAppended implements ext.WriteAppended.
func (m *MetricsExtension) OnWriteAppended(ctx context.Context, _ *event.Operation, _ string) error {
	m.WriteAppended.Add(ctx, 1)
	return nil
}

// OnAppendFallback implements ext.AppendFallback.
func (m *MetricsExtension) OnAppendFallback(ctx context.Context, _ *event.Operation, _ string, _ error) error {
	m.AppendFallback.Add(ctx, 1)
	return nil
}

// OnWriteCompleted implements ext.WriteCompleted.
func (m *MetricsExtension) OnWriteCompleted(ctx context.Context, _ *event.Operation, _ time.Duration) error {
	m.WriteCompleted.Add(ctx, 1)
	return nil
}

// OnWriteFailed implements ext.WriteFailed.
func (m *MetricsExtension) OnWriteFailed(ctx context.Context, _ *event.Operation, _ error) error {
	m.WriteFailed.Add(ctx, 1)
	return nil
}

// OnWriteDLQ implements ext.WriteDLQ.
func (m *MetricsExtension) OnWriteDLQ(ctx context.Context, _ *event.Operation, _ error) error {
	m.WriteDLQ.Add(ctx, 1)
	return nil
}

// ── Job and directory hooks ─────────────────────────

// OnJobOpened implements ext.JobOpened.
func (m *MetricsExtension) OnJobOpened(ctx context.Context, _ *event.Operation, _ *gateway.Job) error {
	m.JobOpened.Add(ctx, 1)
	return nil
}

// OnDirectoryDegraded implements ext.DirectoryDegraded.
func (m *MetricsExtension) OnDirectoryDegraded(ctx context.Context, _ *event.Operation, _ error) error {
	m.DirectoryDegraded.Add(ctx, 1)
	return nil
}
