package authrelay

import (
	"context"
	"net/http"

	"github.com/authrelay/authrelay/api"
)

// validatorTransportChallenge is the challenge used when the introspection
// call itself fails, as opposed to the backend rejecting the token.
const validatorTransportChallenge = `Bearer error="server_error",error_description="Introspection request to the authorization backend failed."`

// AccessTokenValidator validates a bearer token via the backend's
// introspection operation. It is a single-use-per-call accessor: Validate
// resets every output field before doing anything, so a validator instance
// can be reused across requests without leaking state between calls.
//
// After Validate returns, exactly one of the outputs describes the outcome:
// Introspection on success, IntrospectionError plus ErrorResponse on a
// transport failure, ErrorResponse alone when the backend rejected the token.
type AccessTokenValidator struct {
	backend *api.Client

	// Introspection holds the backend's response when Validate returned true.
	Introspection *api.IntrospectionResponse

	// IntrospectionError holds the transport error when the backend call
	// itself failed.
	IntrospectionError error

	// ErrorResponse holds a ready-to-send error response when Validate
	// returned false.
	ErrorResponse *Response
}

// NewAccessTokenValidator creates a validator over the given backend client.
func NewAccessTokenValidator(backend *api.Client) *AccessTokenValidator {
	return &AccessTokenValidator{backend: backend}
}

// Validate introspects token, optionally requiring scopes and a subject
// (enforced by the backend, not locally). It reports whether the token is
// valid and fills the validator's output fields accordingly.
func (v *AccessTokenValidator) Validate(ctx context.Context, token string, requiredScopes []string, requiredSubject string) bool {
	// Reset all outputs up front so nothing survives from an earlier call.
	v.Introspection = nil
	v.IntrospectionError = nil
	v.ErrorResponse = nil

	res, err := v.backend.Introspection(ctx, &api.IntrospectionRequest{
		Token:   token,
		Scopes:  requiredScopes,
		Subject: requiredSubject,
	})
	if err != nil {
		v.IntrospectionError = err
		v.ErrorResponse = wwwAuthenticateResponse(http.StatusInternalServerError, validatorTransportChallenge, "")
		return false
	}

	if res.Action == api.ActionOK {
		v.Introspection = res
		return true
	}

	var status int
	switch res.Action {
	case api.ActionInternalServerError:
		status = http.StatusInternalServerError
	case api.ActionBadRequest:
		status = http.StatusBadRequest
	case api.ActionUnauthorized:
		status = http.StatusUnauthorized
	case api.ActionForbidden:
		status = http.StatusForbidden
	default:
		status = http.StatusInternalServerError
	}

	// The backend pre-renders the WWW-Authenticate challenge for rejected
	// tokens in ResponseContent.
	v.ErrorResponse = wwwAuthenticateResponse(status, res.ResponseContent, "")
	return false
}
