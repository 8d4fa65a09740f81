// Package instrumentation provides OpenTelemetry metrics and tracing for
// the exporter.
//
// The Provider wires exporters based on environment configuration:
// Prometheus (pull, exposed when a metrics listener is enabled), OTLP
// (push) or stdout (development). Metrics cover calendar API operations,
// retries, token refreshes and export pipeline progress. All recording
// methods are safe to call on an uninitialized Metrics value, in which
// case they are no-ops.
package instrumentation
