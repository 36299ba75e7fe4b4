package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Audit event types emitted by the endpoint handlers.
const (
	EventTokenIssued       = "token_issued"
	EventTokenDenied       = "token_denied"
	EventRevocation        = "revocation"
	EventIntrospection     = "introspection"
	EventUserInfoAccess    = "userinfo_access"
	EventAuthorizationFail = "authorization_fail"
	EventBackendError      = "backend_error"
	EventRateLimitExceeded = "rate_limit_exceeded"
)

// Auditor handles security event logging with PII protection. End-user
// subjects are hashed before logging; access tokens and tickets are never
// logged at all.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event
type Event struct {
	Type      string
	Subject   string
	ClientID  string
	IPAddress string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with hashed PII
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"subject_hash", hashForLogging(event.Subject),
		"client_id", event.ClientID,
		"ip_address", event.IPAddress,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogTokenIssued logs a successful token issuance
func (a *Auditor) LogTokenIssued(clientID, ipAddress string) {
	a.LogEvent(Event{
		Type:      EventTokenIssued,
		ClientID:  clientID,
		IPAddress: ipAddress,
	})
}

// LogTokenDenied logs a rejected token request
func (a *Auditor) LogTokenDenied(clientID, ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      EventTokenDenied,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogRevocation logs a revocation request
func (a *Auditor) LogRevocation(clientID, ipAddress string) {
	a.LogEvent(Event{
		Type:      EventRevocation,
		ClientID:  clientID,
		IPAddress: ipAddress,
	})
}

// LogIntrospection logs an introspection request
func (a *Auditor) LogIntrospection(ipAddress string) {
	a.LogEvent(Event{
		Type:      EventIntrospection,
		IPAddress: ipAddress,
	})
}

// LogUserInfoAccess logs a userinfo request for the given subject
func (a *Auditor) LogUserInfoAccess(subject, ipAddress string) {
	a.LogEvent(Event{
		Type:      EventUserInfoAccess,
		Subject:   subject,
		IPAddress: ipAddress,
	})
}

// LogAuthorizationFail logs a failed authorization with its reason code
func (a *Auditor) LogAuthorizationFail(subject, ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      EventAuthorizationFail,
		Subject:   subject,
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogBackendError logs a failed backend delegation call
func (a *Auditor) LogBackendError(path string, err error) {
	a.LogEvent(Event{
		Type: EventBackendError,
		Details: map[string]any{
			"path":  path,
			"error": err.Error(),
		},
	})
}

// LogRateLimitExceeded logs a rate limit violation
func (a *Auditor) LogRateLimitExceeded(ipAddress, endpoint string) {
	a.LogEvent(Event{
		Type:      EventRateLimitExceeded,
		IPAddress: ipAddress,
		Details: map[string]any{
			"endpoint": endpoint,
		},
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
