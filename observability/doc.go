// Package observability provides an OpenTelemetry-based metrics extension
// for Coalesce. The MetricsExtension implements lifecycle hooks to record
// system-wide counters for write arrival, bulk job opens, appends, append
// fallbacks, directory degradations, completions, failures, and DLQ entries.
//
// For per-write tracing and latency histograms, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
