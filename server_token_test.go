package authrelay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/authrelay/authrelay/api"
)

func TestToken_Actions(t *testing.T) {
	tests := []struct {
		name            string
		scripted        string
		wantStatus      int
		wantBody        string
		wantChallenge   string
		wantContentType string
	}{
		{
			name:          "invalid client",
			scripted:      `{"action":"INVALID_CLIENT","responseContent":"{\"error\":\"invalid_client\"}"}`,
			wantStatus:    http.StatusUnauthorized,
			wantBody:      `{"error":"invalid_client"}`,
			wantChallenge: `Basic realm="token"`,
		},
		{
			name:       "internal server error",
			scripted:   `{"action":"INTERNAL_SERVER_ERROR","responseContent":"{\"error\":\"server_error\"}"}`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"server_error"}`,
		},
		{
			name:       "bad request",
			scripted:   `{"action":"BAD_REQUEST","responseContent":"{\"error\":\"invalid_grant\"}"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid_grant"}`,
		},
		{
			name:            "ok",
			scripted:        `{"action":"OK","responseContent":"{\"access_token\":\"abc\"}"}`,
			wantStatus:      http.StatusOK,
			wantBody:        `{"access_token":"abc"}`,
			wantContentType: "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, backend := setupTestServer(t)
			backend.Script(api.PathToken, tt.scripted)

			res, err := srv.Token(context.Background(), url.Values{"grant_type": {"authorization_code"}}, "c1", "s1", &testSPI{})
			if err != nil {
				t.Fatalf("Token() error = %v", err)
			}
			if res.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if res.Body != tt.wantBody {
				t.Errorf("body = %q, want %q", res.Body, tt.wantBody)
			}
			if tt.wantChallenge != "" {
				if got := res.Header.Get("WWW-Authenticate"); got != tt.wantChallenge {
					t.Errorf("WWW-Authenticate = %q, want %q", got, tt.wantChallenge)
				}
			}
			if tt.wantContentType != "" {
				if got := res.Header.Get("Content-Type"); got != tt.wantContentType {
					t.Errorf("Content-Type = %q, want %q", got, tt.wantContentType)
				}
			}
		})
	}
}

func TestToken_ForwardsCredentials(t *testing.T) {
	srv, backend := setupTestServer(t)
	backend.Script(api.PathToken, `{"action":"OK","responseContent":"{}"}`)

	spi := &testSPI{properties: []api.Property{{Key: "dept", Value: "eng"}}}
	params := url.Values{"grant_type": {"client_credentials"}}
	if _, err := srv.Token(context.Background(), params, "c1", "s1", spi); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	var req api.TokenRequest
	if err := json.Unmarshal([]byte(backend.Requests(api.PathToken)[0]), &req); err != nil {
		t.Fatalf("decoding token request: %v", err)
	}
	if req.Parameters != params.Encode() || req.ClientID != "c1" || req.ClientSecret != "s1" {
		t.Errorf("token request = %+v", req)
	}
	if len(req.Properties) != 1 || req.Properties[0].Key != "dept" {
		t.Errorf("properties = %+v", req.Properties)
	}
}

func TestToken_PasswordGrantIssues(t *testing.T) {
	srv, backend := setupTestServer(t)
	backend.Script(api.PathToken, `{"action":"PASSWORD","ticket":"t1","username":"joe","password":"pw"}`)
	backend.Script(api.PathTokenIssue, `{"action":"OK","responseContent":"{\"access_token\":\"abc\"}"}`)

	spi := &testSPI{username: "joe", password: "pw", authSubject: "user-joe"}
	res, err := srv.Token(context.Background(), url.Values{"grant_type": {"password"}}, "c1", "s1", spi)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if res.StatusCode != http.StatusOK || res.Body != `{"access_token":"abc"}` {
		t.Errorf("response = %d %q", res.StatusCode, res.Body)
	}

	var issueReq api.TokenIssueRequest
	if err := json.Unmarshal([]byte(backend.Requests(api.PathTokenIssue)[0]), &issueReq); err != nil {
		t.Fatalf("decoding issue request: %v", err)
	}
	if issueReq.Ticket != "t1" || issueReq.Subject != "user-joe" {
		t.Errorf("issue request = %+v", issueReq)
	}
}

func TestToken_PasswordGrantBadCredentials(t *testing.T) {
	srv, backend := setupTestServer(t)
	backend.Script(api.PathToken, `{"action":"PASSWORD","ticket":"t1","username":"joe","password":"wrong"}`)
	backend.Script(api.PathTokenFail, `{"action":"BAD_REQUEST","responseContent":"{\"error\":\"invalid_grant\"}"}`)

	spi := &testSPI{username: "joe", password: "pw", authSubject: "user-joe"}
	res, err := srv.Token(context.Background(), url.Values{"grant_type": {"password"}}, "c1", "s1", spi)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.StatusCode)
	}

	var failReq api.TokenFailRequest
	if err := json.Unmarshal([]byte(backend.Requests(api.PathTokenFail)[0]), &failReq); err != nil {
		t.Fatalf("decoding fail request: %v", err)
	}
	if failReq.Ticket != "t1" || failReq.Reason != api.TokenFailInvalidResourceOwnerCredentials {
		t.Errorf("fail request = %+v", failReq)
	}
	if backend.Calls(api.PathTokenIssue) != 0 {
		t.Error("issue must not be called for bad credentials")
	}
}

func TestRevoke_Actions(t *testing.T) {
	tests := []struct {
		name            string
		scripted        string
		wantStatus      int
		wantChallenge   string
		wantContentType string
	}{
		{
			name:          "invalid client uses revocation realm",
			scripted:      `{"action":"INVALID_CLIENT","responseContent":"{\"error\":\"invalid_client\"}"}`,
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: `Basic realm="revocation"`,
		},
		{
			name:       "bad request",
			scripted:   `{"action":"BAD_REQUEST","responseContent":"{\"error\":\"unsupported_token_type\"}"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:            "ok is javascript content",
			scripted:        `{"action":"OK","responseContent":"{}"}`,
			wantStatus:      http.StatusOK,
			wantContentType: "application/javascript",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, backend := setupTestServer(t)
			backend.Script(api.PathRevocation, tt.scripted)

			res, err := srv.Revoke(context.Background(), url.Values{"token": {"abc"}}, "c1", "s1")
			if err != nil {
				t.Fatalf("Revoke() error = %v", err)
			}
			if res.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if tt.wantChallenge != "" {
				if got := res.Header.Get("WWW-Authenticate"); got != tt.wantChallenge {
					t.Errorf("WWW-Authenticate = %q, want %q", got, tt.wantChallenge)
				}
			}
			if tt.wantContentType != "" {
				if got := res.Header.Get("Content-Type"); got != tt.wantContentType {
					t.Errorf("Content-Type = %q, want %q", got, tt.wantContentType)
				}
			}
		})
	}
}
