package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency.
const (
	attrOperation = "operation"
	attrStatus    = "status"
	attrReason    = "reason"
	attrResult    = "result"
	attrStage     = "stage"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a no-op recorder.
type Metrics struct {
	// Calendar API metrics
	apiOperationsTotal metric.Int64Counter
	apiRetriesTotal    metric.Int64Counter
	apiPagesTotal      metric.Int64Counter

	// OAuth metrics
	tokenRefreshTotal metric.Int64Counter

	// Export pipeline metrics
	exportEventsTotal metric.Int64Counter
	exportDuration    metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.apiOperationsTotal, err = meter.Int64Counter(
		"calendar_api_operations_total",
		metric.WithDescription("Total number of Calendar API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_operations_total counter: %w", err)
	}

	m.apiRetriesTotal, err = meter.Int64Counter(
		"calendar_api_retries_total",
		metric.WithDescription("Total number of Calendar API retries after quota or transient failures"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_retries_total counter: %w", err)
	}

	m.apiPagesTotal, err = meter.Int64Counter(
		"calendar_api_pages_total",
		metric.WithDescription("Total number of result pages fetched from the Calendar API"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_pages_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.exportEventsTotal, err = meter.Int64Counter(
		"export_events_total",
		metric.WithDescription("Total number of events processed by the export pipeline, by stage"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export_events_total counter: %w", err)
	}

	m.exportDuration, err = meter.Float64Histogram(
		"export_duration_seconds",
		metric.WithDescription("Export pipeline run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordAPIOperation records a Calendar API operation with its final status.
// Status should be one of: "success", "error".
func (m *Metrics) RecordAPIOperation(ctx context.Context, operation, status string) {
	if m == nil || m.apiOperationsTotal == nil {
		return // Instrumentation not initialized
	}

	m.apiOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}

// RecordRetry records a retried Calendar API failure.
// Reason should be one of: "quota", "transient".
func (m *Metrics) RecordRetry(ctx context.Context, operation, reason string) {
	if m == nil || m.apiRetriesTotal == nil {
		return // Instrumentation not initialized
	}

	m.apiRetriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrReason, reason),
	))
}

// RecordPage records a fetched result page.
func (m *Metrics) RecordPage(ctx context.Context, operation string) {
	if m == nil || m.apiPagesTotal == nil {
		return // Instrumentation not initialized
	}

	m.apiPagesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
	))
}

// RecordTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "error".
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordEvents records events moving through an export pipeline stage.
// Stage should be one of: "fetched", "exported", "skipped".
func (m *Metrics) RecordEvents(ctx context.Context, stage string, count int) {
	if m == nil || m.exportEventsTotal == nil {
		return // Instrumentation not initialized
	}

	m.exportEventsTotal.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String(attrStage, stage),
	))
}

// RecordExportDuration records the duration of one export pipeline run.
func (m *Metrics) RecordExportDuration(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.exportDuration == nil {
		return // Instrumentation not initialized
	}

	m.exportDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrStatus, status),
	))
}
