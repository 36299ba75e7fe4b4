package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/authrelay/authrelay/instrumentation"
	"github.com/authrelay/authrelay/security"
)

// Backend operation paths. These appear verbatim in the unknown-action
// fallback bodies produced by the handlers, so they are part of the
// observable contract.
const (
	PathAuthorization         = "/api/auth/authorization"
	PathAuthorizationFail     = "/api/auth/authorization/fail"
	PathAuthorizationIssue    = "/api/auth/authorization/issue"
	PathToken                 = "/api/auth/token"
	PathTokenFail             = "/api/auth/token/fail"
	PathTokenIssue            = "/api/auth/token/issue"
	PathRevocation            = "/api/auth/revocation"
	PathUserInfo              = "/api/auth/userinfo"
	PathUserInfoIssue         = "/api/auth/userinfo/issue"
	PathIntrospection         = "/api/auth/introspection"
	PathStandardIntrospection = "/api/auth/introspection/standard"
	PathServiceConfiguration  = "/api/service/configuration"
	PathServiceJWKS           = "/api/service/jwks/get"
)

const defaultTimeout = 10 * time.Second

// ClientConfig configures a backend Client.
type ClientConfig struct {
	// BaseURL is the backend's base address, e.g. "https://backend.example.com".
	BaseURL string

	// Credentials are the service API key/secret used on every call.
	Credentials Credentials

	// HTTPClient is an optional custom HTTP client. When nil a default
	// client with a 10 second timeout is used. The client's timeout bounds
	// every backend call. Unless a CheckRedirect policy is already set, the
	// client is adjusted to return backend redirects instead of following
	// them.
	HTTPClient *http.Client

	// Logger for structured logging (optional, uses default if not provided).
	Logger *slog.Logger

	// Instrumentation enables backend-call metrics and is optional.
	Instrumentation *instrumentation.Instrumentation
}

// Client executes backend operations. It is safe for concurrent use; the
// base address and credentials are set once at construction and immutable
// thereafter.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	logger     *slog.Logger
	inst       *instrumentation.Instrumentation
}

// NewClient creates a backend client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	// A backend redirect is a protocol signal (the JWKS operation may answer
	// with one), so it must surface as a response, not be followed.
	if httpClient.CheckRedirect == nil {
		httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		creds:      cfg.Credentials,
		httpClient: httpClient,
		logger:     logger,
		inst:       cfg.Instrumentation,
	}, nil
}

// Authorization executes the authorization operation.
func (c *Client) Authorization(ctx context.Context, req *AuthorizationRequest) (*AuthorizationResponse, error) {
	var res AuthorizationResponse
	if err := c.post(ctx, PathAuthorization, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AuthorizationFail executes the authorization/fail operation, consuming the
// ticket carried in req.
func (c *Client) AuthorizationFail(ctx context.Context, req *AuthorizationFailRequest) (*AuthorizationFailResponse, error) {
	var res AuthorizationFailResponse
	if err := c.post(ctx, PathAuthorizationFail, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AuthorizationIssue executes the authorization/issue operation, consuming
// the ticket carried in req.
func (c *Client) AuthorizationIssue(ctx context.Context, req *AuthorizationIssueRequest) (*AuthorizationIssueResponse, error) {
	var res AuthorizationIssueResponse
	if err := c.post(ctx, PathAuthorizationIssue, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Token executes the token operation.
func (c *Client) Token(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	var res TokenResponse
	if err := c.post(ctx, PathToken, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// TokenFail executes the token/fail operation.
func (c *Client) TokenFail(ctx context.Context, req *TokenFailRequest) (*TokenFailResponse, error) {
	var res TokenFailResponse
	if err := c.post(ctx, PathTokenFail, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// TokenIssue executes the token/issue operation.
func (c *Client) TokenIssue(ctx context.Context, req *TokenIssueRequest) (*TokenIssueResponse, error) {
	var res TokenIssueResponse
	if err := c.post(ctx, PathTokenIssue, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Revocation executes the revocation operation.
func (c *Client) Revocation(ctx context.Context, req *RevocationRequest) (*RevocationResponse, error) {
	var res RevocationResponse
	if err := c.post(ctx, PathRevocation, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UserInfo executes the userinfo operation.
func (c *Client) UserInfo(ctx context.Context, req *UserInfoRequest) (*UserInfoResponse, error) {
	var res UserInfoResponse
	if err := c.post(ctx, PathUserInfo, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UserInfoIssue executes the userinfo/issue operation.
func (c *Client) UserInfoIssue(ctx context.Context, req *UserInfoIssueRequest) (*UserInfoIssueResponse, error) {
	var res UserInfoIssueResponse
	if err := c.post(ctx, PathUserInfoIssue, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Introspection executes the introspection operation.
func (c *Client) Introspection(ctx context.Context, req *IntrospectionRequest) (*IntrospectionResponse, error) {
	var res IntrospectionResponse
	if err := c.post(ctx, PathIntrospection, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// StandardIntrospection executes the introspection/standard operation.
func (c *Client) StandardIntrospection(ctx context.Context, req *StandardIntrospectionRequest) (*StandardIntrospectionResponse, error) {
	var res StandardIntrospectionResponse
	if err := c.post(ctx, PathStandardIntrospection, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ServiceConfiguration executes the service/configuration operation and
// returns the discovery document as a raw JSON string.
func (c *Client) ServiceConfiguration(ctx context.Context, pretty bool) (string, error) {
	query := url.Values{}
	if pretty {
		query.Set("pretty", "true")
	}
	return c.getRaw(ctx, PathServiceConfiguration, query)
}

// ServiceJWKS executes the service/jwks/get operation and returns the JWK
// set as a raw JSON string. The string may be empty when the service has no
// keys registered.
func (c *Client) ServiceJWKS(ctx context.Context, pretty, includePrivateKeys bool) (string, error) {
	query := url.Values{}
	if pretty {
		query.Set("pretty", "true")
	}
	query.Set("includePrivateKeys", fmt.Sprintf("%t", includePrivateKeys))
	return c.getRaw(ctx, PathServiceJWKS, query)
}

// post executes a JSON POST operation and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Path: path, Err: fmt.Errorf("encoding request: %w", err)}
	}

	raw, err := c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &Error{Path: path, Body: raw, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// getRaw executes a GET operation and returns the raw response body.
func (c *Client) getRaw(ctx context.Context, path string, query url.Values) (string, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) (string, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return "", &Error{Path: path, Err: err}
	}
	req.Header.Set("Authorization", c.creds.Authorization())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := security.GetRequestID(ctx)
	if requestID == "" {
		requestID = security.GenerateRequestID()
	}
	req.Header.Set(security.RequestIDHeader, requestID)

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.recordCall(ctx, path, 0, start, err)
		c.logger.Error("Backend call failed", "path", path, "error", err)
		return "", &Error{Path: path, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		c.recordCall(ctx, path, res.StatusCode, start, err)
		return "", &Error{Path: path, StatusCode: res.StatusCode, Header: res.Header, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		callErr := &Error{Path: path, StatusCode: res.StatusCode, Header: res.Header, Body: string(raw)}
		c.recordCall(ctx, path, res.StatusCode, start, callErr)
		c.logger.Warn("Backend returned non-success status",
			"path", path,
			"status", res.StatusCode,
			"request_id", requestID)
		return "", callErr
	}

	c.recordCall(ctx, path, res.StatusCode, start, nil)
	return string(raw), nil
}

func (c *Client) recordCall(ctx context.Context, path string, status int, start time.Time, err error) {
	if c.inst == nil {
		return
	}
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	c.inst.Metrics().RecordBackendCall(ctx, path, status, durationMs, err)
}
