package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never log actual sensitive values (access tokens,
// tickets, client secrets, resource owner passwords) in traces or metrics.
// Only log metadata such as action names, operation paths, and validation
// results. Traces are persisted for extended periods and replicated across
// monitoring infrastructure.
const (
	// Protocol attributes - SAFE to use for metadata only
	AttrClientID         = "oauth.client_id"         // Client identifier (non-secret)
	AttrSubject          = "oauth.subject"           // End-user subject (pseudonymous identifier)
	AttrScope            = "oauth.scope"             // Requested scopes
	AttrGrantType        = "oauth.grant_type"        // OAuth grant type
	AttrAction           = "oauth.action"            // Backend action discriminator
	AttrFailReason       = "oauth.fail_reason"       // Reason passed to a fail operation
	AttrError            = "oauth.error"             // Error code
	AttrErrorDescription = "oauth.error_description" // Error description

	// Backend attributes
	AttrBackendPath   = "backend.path"   // Backend operation path
	AttrBackendStatus = "backend.status" // Backend HTTP status

	// Security attributes
	AttrRateLimiterType = "security.rate_limiter.type"
	AttrClientIP        = "security.client_ip"
	AttrAuditEventType  = "security.audit.event_type"

	// HTTP attributes (in addition to standard semantic conventions)
	AttrHTTPEndpoint   = "http.endpoint"
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddActionAttributes adds the backend action resolution to a span (nil-safe)
func AddActionAttributes(span trace.Span, path string, action string) {
	SetSpanAttributes(span,
		attribute.String(AttrBackendPath, path),
		attribute.String(AttrAction, action),
	)
}

// AddHTTPAttributes adds HTTP request attributes to a span (nil-safe)
func AddHTTPAttributes(span trace.Span, method, endpoint string, statusCode int) {
	SetSpanAttributes(span,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
}

// AddSecurityAttributes adds security-related attributes to a span (nil-safe)
//
// PRIVACY NOTE: Client IP addresses may be PII. Check
// instrumentation.ShouldLogClientIPs() before calling.
func AddSecurityAttributes(span trace.Span, clientIP string) {
	if clientIP != "" {
		SetSpanAttributes(span, attribute.String(AttrClientIP, clientIP))
	}
}
