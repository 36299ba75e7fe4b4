package authrelay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/authrelay/authrelay/api"
)

func TestAuthorize_TerminalActions(t *testing.T) {
	tests := []struct {
		name        string
		scripted    string
		wantStatus  int
		wantBody    string
		wantHeader  string
		headerKey   string
		contentType string
	}{
		{
			name:        "internal server error",
			scripted:    `{"action":"INTERNAL_SERVER_ERROR","responseContent":"{\"error\":\"server_error\"}"}`,
			wantStatus:  http.StatusInternalServerError,
			wantBody:    `{"error":"server_error"}`,
			contentType: "application/json",
		},
		{
			name:        "bad request",
			scripted:    `{"action":"BAD_REQUEST","responseContent":"{\"error\":\"invalid_request\"}"}`,
			wantStatus:  http.StatusBadRequest,
			wantBody:    `{"error":"invalid_request"}`,
			contentType: "application/json",
		},
		{
			name:       "location",
			scripted:   `{"action":"LOCATION","responseContent":"https://client.example.com/cb?code=xyz"}`,
			wantStatus: http.StatusFound,
			headerKey:  "Location",
			wantHeader: "https://client.example.com/cb?code=xyz",
		},
		{
			name:        "form post",
			scripted:    `{"action":"FORM","responseContent":"<html></html>"}`,
			wantStatus:  http.StatusOK,
			wantBody:    "<html></html>",
			contentType: "text/html; charset=utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, backend := setupTestServer(t)
			backend.Script(api.PathAuthorization, tt.scripted)

			res, authCtx, err := srv.Authorize(context.Background(), url.Values{"response_type": {"code"}})
			if err != nil {
				t.Fatalf("Authorize() error = %v", err)
			}
			if authCtx != nil {
				t.Error("terminal action must not produce a pending context")
			}
			if res.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if tt.wantBody != "" && res.Body != tt.wantBody {
				t.Errorf("body = %q, want %q", res.Body, tt.wantBody)
			}
			if tt.headerKey != "" {
				if got := res.Header.Get(tt.headerKey); got != tt.wantHeader {
					t.Errorf("%s = %q, want %q", tt.headerKey, got, tt.wantHeader)
				}
			}
			if tt.contentType != "" {
				if got := res.Header.Get("Content-Type"); got != tt.contentType {
					t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
				}
			}
		})
	}
}

func TestAuthorize_ForwardsParameters(t *testing.T) {
	srv, backend := setupTestServer(t)
	backend.Script(api.PathAuthorization, `{"action":"INTERACTION","ticket":"t1"}`)

	params := url.Values{"response_type": {"code"}, "client_id": {"c1"}}
	if _, _, err := srv.Authorize(context.Background(), params); err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}

	var req api.AuthorizationRequest
	if err := json.Unmarshal([]byte(backend.Requests(api.PathAuthorization)[0]), &req); err != nil {
		t.Fatalf("decoding backend request: %v", err)
	}
	if req.Parameters != params.Encode() {
		t.Errorf("parameters = %q, want %q", req.Parameters, params.Encode())
	}
}

func TestAuthorize_PendingContext(t *testing.T) {
	srv, backend := setupTestServer(t)
	authCtx := pendingAuthorization(t, srv, backend, `{
		"action":"NO_INTERACTION",
		"ticket":"t1",
		"subject":"user-1",
		"maxAge":300,
		"scopes":["openid","profile"],
		"claims":["name","email#ja"],
		"claimsLocales":["ja","en"],
		"acrEssential":true,
		"acrs":["urn:mace:incommon:iap:silver"]
	}`)

	if authCtx.Action() != api.ActionNoInteraction {
		t.Errorf("Action() = %q", authCtx.Action())
	}
	if authCtx.Ticket() != "t1" {
		t.Errorf("Ticket() = %q, want t1", authCtx.Ticket())
	}
	if authCtx.Subject() != "user-1" || authCtx.MaxAge() != 300 {
		t.Errorf("Subject/MaxAge = %q/%d", authCtx.Subject(), authCtx.MaxAge())
	}
	if len(authCtx.Scopes()) != 2 || len(authCtx.ClaimNames()) != 2 || len(authCtx.ClaimsLocales()) != 2 {
		t.Error("decision inputs not carried through")
	}
	if !authCtx.ACREssential() || len(authCtx.ACRs()) != 1 {
		t.Error("ACR constraints not carried through")
	}
}

// Denied consent fails the pending request with reason DENIED and relays the
// backend's error response exactly.
func TestAuthorizeDecision_Denied(t *testing.T) {
	srv, backend := setupTestServer(t)
	authCtx := pendingAuthorization(t, srv, backend, `{"action":"INTERACTION","ticket":"t1"}`)
	backend.Script(api.PathAuthorizationFail, `{"action":"BAD_REQUEST","responseContent":"{\"error\":\"access_denied\"}"}`)

	res, err := srv.AuthorizeDecision(context.Background(), authCtx, &testSPI{authorized: false})
	if err != nil {
		t.Fatalf("AuthorizeDecision() error = %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.StatusCode)
	}
	if res.Body != `{"error":"access_denied"}` {
		t.Errorf("body = %q", res.Body)
	}

	var failReq api.AuthorizationFailRequest
	if err := json.Unmarshal([]byte(backend.Requests(api.PathAuthorizationFail)[0]), &failReq); err != nil {
		t.Fatalf("decoding fail request: %v", err)
	}
	if failReq.Ticket != "t1" || failReq.Reason != api.AuthorizationFailDenied {
		t.Errorf("fail request = %+v", failReq)
	}
}

func TestAuthorizeDecision_NotAuthenticated(t *testing.T) {
	srv, backend := setupTestServer(t)
	authCtx := pendingAuthorization(t, srv, backend, `{"action":"INTERACTION","ticket":"t1"}`)
	backend.Script(api.PathAuthorizationFail, `{"action":"INTERNAL_SERVER_ERROR","responseContent":"{\"error\":\"server_error\"}"}`)

	res, err := srv.AuthorizeDecision(context.Background(), authCtx, &testSPI{authorized: true, subject: ""})
	if err != nil {
		t.Fatalf("AuthorizeDecision() error = %v", err)
	}
	if res.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", res.StatusCode)
	}

	var failReq api.AuthorizationFailRequest
	if err := json.Unmarshal([]byte(backend.Requests(api.PathAuthorizationFail)[0]), &failReq); err != nil {
		t.Fatalf("decoding fail request: %v", err)
	}
	if failReq.Reason != api.AuthorizationFailNotAuthenticated {
		t.Errorf("reason = %q, want NOT_AUTHENTICATED", failReq.Reason)
	}
}

func TestAuthorizeDecision_Issues(t *testing.T) {
	srv, backend := setupTestServer(t)
	authCtx := pendingAuthorization(t, srv, backend,
		`{"action":"INTERACTION","ticket":"t1","claims":["name","email#ja"],"claimsLocales":["ja"]}`)
	backend.Script(api.PathAuthorizationIssue,
		`{"action":"LOCATION","responseContent":"https://client.example.com/cb?code=xyz"}`)

	spi := &testSPI{
		authorized: true,
		subject:    "user-1",
		authTime:   1700000000,
		acr:        "urn:mace:incommon:iap:silver",
		claims:     map[string]any{"name": "Alice", "email#ja": "alice@example.jp"},
		properties: []api.Property{{Key: "dept", Value: "eng"}},
		scopes:     []string{"openid"},
		sub:        "pairwise-1",
	}
	res, err := srv.AuthorizeDecision(context.Background(), authCtx, spi)
	if err != nil {
		t.Fatalf("AuthorizeDecision() error = %v", err)
	}
	if res.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302", res.StatusCode)
	}

	var issueReq api.AuthorizationIssueRequest
	if err := json.Unmarshal([]byte(backend.Requests(api.PathAuthorizationIssue)[0]), &issueReq); err != nil {
		t.Fatalf("decoding issue request: %v", err)
	}
	if issueReq.Ticket != "t1" || issueReq.Subject != "user-1" {
		t.Errorf("issue request = %+v", issueReq)
	}
	if issueReq.AuthTime != 1700000000 || issueReq.ACR != spi.acr || issueReq.Sub != "pairwise-1" {
		t.Errorf("session data not forwarded: %+v", issueReq)
	}
	if issueReq.Claims["name"] != "Alice" || issueReq.Claims["email"] != "alice@example.jp" {
		t.Errorf("claims = %v", issueReq.Claims)
	}
	if len(issueReq.Properties) != 1 || len(issueReq.Scopes) != 1 {
		t.Errorf("properties/scopes not forwarded: %+v", issueReq)
	}
}

func TestNoInteraction_Declines(t *testing.T) {
	srv, backend := setupTestServer(t)
	authCtx := pendingAuthorization(t, srv, backend, `{"action":"INTERACTION","ticket":"t1"}`)

	res, err := srv.NoInteraction(context.Background(), authCtx, &testSPI{})
	if err != nil {
		t.Fatalf("NoInteraction() error = %v", err)
	}
	if res != nil {
		t.Errorf("NoInteraction() on INTERACTION context should decline, got %+v", res)
	}
}

func TestNoInteraction_FailReasons(t *testing.T) {
	tests := []struct {
		name       string
		pending    string
		spi        *testSPI
		now        int64
		wantReason api.AuthorizationFailReason
	}{
		{
			name:       "not logged in",
			pending:    `{"action":"NO_INTERACTION","ticket":"t1"}`,
			spi:        &testSPI{authenticated: false},
			wantReason: api.AuthorizationFailNotLoggedIn,
		},
		{
			name:       "max age exceeded",
			pending:    `{"action":"NO_INTERACTION","ticket":"t1","maxAge":500}`,
			spi:        &testSPI{authenticated: true, subject: "user-1", authTime: 1000},
			now:        1600,
			wantReason: api.AuthorizationFailExceedsMaxAge,
		},
		{
			name:       "different subject",
			pending:    `{"action":"NO_INTERACTION","ticket":"t1","subject":"user-2"}`,
			spi:        &testSPI{authenticated: true, subject: "user-1"},
			wantReason: api.AuthorizationFailDifferentSubject,
		},
		{
			name:       "essential acr not satisfied",
			pending:    `{"action":"NO_INTERACTION","ticket":"t1","acrEssential":true,"acrs":["gold"]}`,
			spi:        &testSPI{authenticated: true, subject: "user-1", acr: "bronze"},
			wantReason: api.AuthorizationFailACRNotSatisfied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, backend := setupTestServer(t)
			if tt.now != 0 {
				srv.now = func() time.Time { return time.Unix(tt.now, 0) }
			}
			authCtx := pendingAuthorization(t, srv, backend, tt.pending)
			backend.Script(api.PathAuthorizationFail, `{"action":"BAD_REQUEST","responseContent":"{}"}`)

			res, err := srv.NoInteraction(context.Background(), authCtx, tt.spi)
			if err != nil {
				t.Fatalf("NoInteraction() error = %v", err)
			}
			if res == nil || res.StatusCode != http.StatusBadRequest {
				t.Fatalf("response = %+v, want 400", res)
			}

			var failReq api.AuthorizationFailRequest
			if err := json.Unmarshal([]byte(backend.Requests(api.PathAuthorizationFail)[0]), &failReq); err != nil {
				t.Fatalf("decoding fail request: %v", err)
			}
			if failReq.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", failReq.Reason, tt.wantReason)
			}
		})
	}
}

func TestNoInteraction_Issues(t *testing.T) {
	tests := []struct {
		name    string
		pending string
		spi     *testSPI
	}{
		{
			name:    "all checks pass",
			pending: `{"action":"NO_INTERACTION","ticket":"t1","subject":"user-1","maxAge":500,"acrEssential":true,"acrs":["gold"]}`,
			spi:     &testSPI{authenticated: true, subject: "user-1", authTime: 1400, acr: "gold"},
		},
		{
			name:    "non-essential acr mismatch tolerated",
			pending: `{"action":"NO_INTERACTION","ticket":"t1","acrs":["gold"]}`,
			spi:     &testSPI{authenticated: true, subject: "user-1", acr: "bronze"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, backend := setupTestServer(t)
			srv.now = func() time.Time { return time.Unix(1600, 0) }
			authCtx := pendingAuthorization(t, srv, backend, tt.pending)
			backend.Script(api.PathAuthorizationIssue, `{"action":"LOCATION","responseContent":"https://client.example.com/cb"}`)

			res, err := srv.NoInteraction(context.Background(), authCtx, tt.spi)
			if err != nil {
				t.Fatalf("NoInteraction() error = %v", err)
			}
			if res == nil || res.StatusCode != http.StatusFound {
				t.Fatalf("response = %+v, want 302", res)
			}
			if backend.Calls(api.PathAuthorizationFail) != 0 {
				t.Error("fail must not be called on the issue path")
			}
		})
	}
}
