package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
)

// requestIDContextKey is the context key for storing request IDs
type requestIDContextKey struct{}

// RequestIDHeader is the HTTP header for request IDs
const RequestIDHeader = "X-Request-ID"

// requestIDPattern validates request IDs to prevent header injection.
// Allows alphanumeric, hyphens, underscores (1-128 chars), which accepts the
// common formats emitted by upstream proxies.
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// GenerateRequestID generates a cryptographically secure random request ID:
// 16 bytes of entropy encoded as a 22-character base64url string.
//
// The function panics if the system's random number generator fails, which
// indicates a critical system-level failure.
func GenerateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand.Read failed: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return requestID
	}
	return ""
}

// RequestIDFromHTTP returns a usable request ID for an inbound request:
// the validated value of the X-Request-ID header when present, or a freshly
// generated one. Invalid header values are discarded rather than propagated.
func RequestIDFromHTTP(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" && requestIDPattern.MatchString(id) {
		return id
	}
	return GenerateRequestID()
}
