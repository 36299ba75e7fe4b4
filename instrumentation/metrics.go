package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the library
type Metrics struct {
	// HTTP layer metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Backend delegation metrics
	BackendCallsTotal   metric.Int64Counter
	BackendCallDuration metric.Float64Histogram
	BackendCallErrors   metric.Int64Counter

	// Protocol metrics
	UnknownActionsTotal metric.Int64Counter
	ClaimsCollected     metric.Int64Counter

	// Security metrics
	RateLimitExceeded metric.Int64Counter
	AuditEventsTotal  metric.Int64Counter
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	var err error
	m.HTTPRequestsTotal, err = inst.httpMeter.Int64Counter(
		"authrelay.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.requests.total counter: %w", err)
	}

	m.HTTPRequestDuration, err = inst.httpMeter.Float64Histogram(
		"authrelay.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.request.duration histogram: %w", err)
	}

	m.BackendCallsTotal, err = inst.backendMeter.Int64Counter(
		"authrelay.backend.calls.total",
		metric.WithDescription("Total number of backend delegation calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend.calls.total counter: %w", err)
	}

	m.BackendCallDuration, err = inst.backendMeter.Float64Histogram(
		"authrelay.backend.call.duration",
		metric.WithDescription("Backend call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend.call.duration histogram: %w", err)
	}

	m.BackendCallErrors, err = inst.backendMeter.Int64Counter(
		"authrelay.backend.call.errors.total",
		metric.WithDescription("Total number of failed backend calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend.call.errors.total counter: %w", err)
	}

	m.UnknownActionsTotal, err = inst.serverMeter.Int64Counter(
		"authrelay.action.unknown.total",
		metric.WithDescription("Number of backend responses carrying an action outside the handler's known set"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create action.unknown.total counter: %w", err)
	}

	m.ClaimsCollected, err = inst.serverMeter.Int64Counter(
		"authrelay.claims.collected.total",
		metric.WithDescription("Number of claim values collected from the host application"),
		metric.WithUnit("{claim}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create claims.collected.total counter: %w", err)
	}

	m.RateLimitExceeded, err = inst.securityMeter.Int64Counter(
		"authrelay.rate_limit.exceeded",
		metric.WithDescription("Number of rate limit violations"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	m.AuditEventsTotal, err = inst.securityMeter.Int64Counter(
		"authrelay.audit.events.total",
		metric.WithDescription("Total number of audit events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit.events.total counter: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, endpoint string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.Int("status", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, durationMs, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordBackendCall records one backend delegation call
func (m *Metrics) RecordBackendCall(ctx context.Context, path string, statusCode int, durationMs float64, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("path", path),
		attribute.Int("status", statusCode),
	}

	m.BackendCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.BackendCallDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("path", path),
	))

	if err != nil {
		errorType := "transport"
		if statusCode >= 400 && statusCode < 500 {
			errorType = "client_error"
		} else if statusCode >= 500 {
			errorType = "server_error"
		}

		m.BackendCallErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("path", path),
			attribute.String("error_type", errorType),
		))
	}
}

// RecordUnknownAction records a backend response whose action fell outside
// the handler's known set
func (m *Metrics) RecordUnknownAction(ctx context.Context, path, action string) {
	m.UnknownActionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("action", action),
	))
}

// RecordClaimsCollected records how many claim values a collection produced
func (m *Metrics) RecordClaimsCollected(ctx context.Context, count int) {
	m.ClaimsCollected.Add(ctx, int64(count))
}

// RecordRateLimitExceeded records a rate limit violation
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, limiterType string) {
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter_type", limiterType),
	))
}

// RecordAuditEvent records an audit event
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventType string) {
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}
