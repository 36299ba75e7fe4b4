// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for
// the authrelay library.
//
// This package enables observability across the library layers through:
// - Metrics: counters and histograms for HTTP endpoints and backend calls
// - Traces: spans around endpoint handling and backend delegation
//
// # Quick Start
//
//	import "github.com/authrelay/authrelay/instrumentation"
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "my-auth-frontend",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	// Pass to the library configuration
//	cfg.Instrumentation = inst
//
// # Available Metrics
//
// HTTP layer:
//   - authrelay.http.requests.total{method, endpoint, status}
//   - authrelay.http.request.duration{endpoint}
//
// Backend delegation:
//   - authrelay.backend.calls.total{path, status}
//   - authrelay.backend.call.duration{path}
//   - authrelay.backend.call.errors.total{path, error_type}
//
// Protocol:
//   - authrelay.action.unknown.total{path, action} - responses outside a
//     handler's known action set (each one indicates a version skew between
//     this library and the backend)
//   - authrelay.claims.collected.total
//
// Security:
//   - authrelay.rate_limit.exceeded{limiter_type}
//   - authrelay.audit.events.total{event_type}
//
// # Performance
//
// When instrumentation is not configured or disabled the library uses no-op
// providers: no allocations, no latency impact.
//
// # Security Considerations
//
// This package collects observability data, never credentials. Do not record
// access tokens, tickets, client secrets, or resource owner passwords as
// attribute values; only metadata (action names, operation paths, statuses).
// Client IP addresses may be PII in some jurisdictions - see
// Config.LogClientIPs.
package instrumentation
