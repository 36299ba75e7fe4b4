package authrelay

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/authrelay/authrelay/api"
	"github.com/authrelay/authrelay/internal/testutil"
)

func setupTestValidator(t *testing.T) (*AccessTokenValidator, *testutil.Backend) {
	t.Helper()

	backend := testutil.NewBackend(t)
	client, err := api.NewClient(api.ClientConfig{
		BaseURL:     backend.URL(),
		Credentials: api.NewCredentials("key", "secret"),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return NewAccessTokenValidator(client), backend
}

func TestAccessTokenValidator_Valid(t *testing.T) {
	v, backend := setupTestValidator(t)
	backend.Script(api.PathIntrospection, `{"action":"OK","subject":"user-1","scopes":["read"]}`)

	if !v.Validate(context.Background(), "token-1", []string{"read"}, "") {
		t.Fatal("Validate() = false, want true")
	}
	if v.Introspection == nil || v.Introspection.Subject != "user-1" {
		t.Errorf("Introspection = %+v, want subject user-1", v.Introspection)
	}
	if v.IntrospectionError != nil || v.ErrorResponse != nil {
		t.Error("success must leave the error outputs empty")
	}

	// The token and constraints are forwarded verbatim.
	var req api.IntrospectionRequest
	if err := json.Unmarshal([]byte(backend.Requests(api.PathIntrospection)[0]), &req); err != nil {
		t.Fatalf("decoding backend request: %v", err)
	}
	if req.Token != "token-1" || len(req.Scopes) != 1 || req.Scopes[0] != "read" {
		t.Errorf("backend request = %+v", req)
	}
}

func TestAccessTokenValidator_ActionMapping(t *testing.T) {
	tests := []struct {
		action     string
		wantStatus int
	}{
		{action: "INTERNAL_SERVER_ERROR", wantStatus: http.StatusInternalServerError},
		{action: "BAD_REQUEST", wantStatus: http.StatusBadRequest},
		{action: "UNAUTHORIZED", wantStatus: http.StatusUnauthorized},
		{action: "FORBIDDEN", wantStatus: http.StatusForbidden},
		{action: "LOCATION", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			v, backend := setupTestValidator(t)
			backend.Script(api.PathIntrospection,
				`{"action":"`+tt.action+`","responseContent":"Bearer error=\"invalid_token\""}`)

			if v.Validate(context.Background(), "token-1", nil, "") {
				t.Fatal("Validate() = true, want false")
			}
			if v.ErrorResponse == nil {
				t.Fatal("ErrorResponse is nil")
			}
			if v.ErrorResponse.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", v.ErrorResponse.StatusCode, tt.wantStatus)
			}
			if got := v.ErrorResponse.Header.Get("WWW-Authenticate"); got != `Bearer error="invalid_token"` {
				t.Errorf("WWW-Authenticate = %q", got)
			}
			if v.IntrospectionError != nil {
				t.Error("backend rejection is not a transport error")
			}
		})
	}
}

func TestAccessTokenValidator_TransportFailure(t *testing.T) {
	v, backend := setupTestValidator(t)
	backend.ScriptStatus(api.PathIntrospection, http.StatusBadGateway, `upstream down`)

	if v.Validate(context.Background(), "token-1", nil, "") {
		t.Fatal("Validate() = true, want false")
	}
	if v.IntrospectionError == nil {
		t.Error("IntrospectionError not set on transport failure")
	}
	if v.ErrorResponse == nil || v.ErrorResponse.StatusCode != http.StatusInternalServerError {
		t.Errorf("ErrorResponse = %+v, want 500", v.ErrorResponse)
	}
	if got := v.ErrorResponse.Header.Get("WWW-Authenticate"); got != validatorTransportChallenge {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

// A failed call followed by a successful one must leave no trace of the
// failure in the second call's outputs.
func TestAccessTokenValidator_NoStaleState(t *testing.T) {
	v, backend := setupTestValidator(t)
	backend.ScriptStatus(api.PathIntrospection, http.StatusBadGateway, `upstream down`)
	backend.Script(api.PathIntrospection, `{"action":"OK","subject":"user-1"}`)

	if v.Validate(context.Background(), "token-1", nil, "") {
		t.Fatal("first Validate() = true, want false")
	}
	if !v.Validate(context.Background(), "token-1", nil, "") {
		t.Fatal("second Validate() = false, want true")
	}
	if v.IntrospectionError != nil {
		t.Errorf("IntrospectionError leaked across calls: %v", v.IntrospectionError)
	}
	if v.ErrorResponse != nil {
		t.Error("ErrorResponse leaked across calls")
	}
	if v.Introspection == nil {
		t.Error("Introspection not set by the successful call")
	}
}
