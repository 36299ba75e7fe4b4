package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 1 * time.Hour
)

// signatureAlgorithms accepted when parsing upstream ID tokens.
var signatureAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.HS256,
}

// discoveryDocument is the subset of the upstream provider metadata the
// authenticator needs.
type discoveryDocument struct {
	Issuer        string `json:"issuer"`
	TokenEndpoint string `json:"token_endpoint"`
}

// Config configures an Authenticator.
type Config struct {
	// Issuer is the upstream provider's issuer URL (required, https).
	Issuer string

	// ClientID and ClientSecret identify the relay at the upstream provider
	// (ClientID required).
	ClientID     string
	ClientSecret string

	// Scopes requested alongside the password grant. Defaults to "openid".
	Scopes []string

	// HTTPClient for upstream calls. When nil a default client with a 10
	// second timeout is used.
	HTTPClient *http.Client

	// Logger for structured logging (optional, uses default if not provided).
	Logger *slog.Logger

	// CacheTTL bounds how long the discovered token endpoint is reused.
	// Zero means 1 hour.
	CacheTTL time.Duration
}

// Authenticator verifies resource owner credentials by replaying them to the
// upstream provider's token endpoint. It is safe for concurrent use.
type Authenticator struct {
	issuer     string
	oauth      oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
	cacheTTL   time.Duration

	mu           sync.Mutex
	doc          *discoveryDocument
	discoveredAt time.Time
}

// New creates an Authenticator for the given upstream provider.
func New(cfg Config) (*Authenticator, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("upstream issuer is required")
	}
	if !strings.HasPrefix(cfg.Issuer, "https://") && !strings.HasPrefix(cfg.Issuer, "http://localhost") && !strings.HasPrefix(cfg.Issuer, "http://127.0.0.1") {
		return nil, fmt.Errorf("upstream issuer must use https")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("upstream client ID is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}

	return &Authenticator{
		issuer: strings.TrimSuffix(cfg.Issuer, "/"),
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
		},
		httpClient: httpClient,
		logger:     logger,
		cacheTTL:   cacheTTL,
	}, nil
}

// AuthenticateUser implements the password-grant authenticator SPI. It
// returns the upstream subject on success and "" on any failure: bad
// credentials, an unreachable provider and a malformed ID token all look the
// same to the caller, which fails the pending token request either way.
func (a *Authenticator) AuthenticateUser(username, password string) string {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	conf, err := a.grantConfig(ctx)
	if err != nil {
		a.logger.Error("Upstream discovery failed", "issuer", a.issuer, "error", err)
		return ""
	}

	token, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		a.logger.Debug("Upstream authentication rejected", "issuer", a.issuer, "error", err)
		return ""
	}

	subject, err := a.subjectFromToken(token)
	if err != nil {
		a.logger.Warn("Upstream ID token unusable", "issuer", a.issuer, "error", err)
		return ""
	}
	return subject
}

// grantConfig resolves the token endpoint via discovery, caching the result.
func (a *Authenticator) grantConfig(ctx context.Context) (*oauth2.Config, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.doc == nil || time.Since(a.discoveredAt) >= a.cacheTTL {
		doc, err := a.discover(ctx)
		if err != nil {
			return nil, err
		}
		a.doc = doc
		a.discoveredAt = time.Now()
	}

	conf := a.oauth
	conf.Endpoint = oauth2.Endpoint{TokenURL: a.doc.TokenEndpoint}
	return &conf, nil
}

func (a *Authenticator) discover(ctx context.Context) (*discoveryDocument, error) {
	url := a.issuer + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching discovery document: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery returned status %d", res.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding discovery document: %w", err)
	}
	if doc.Issuer != a.issuer {
		return nil, fmt.Errorf("issuer mismatch: document says %q", doc.Issuer)
	}
	if doc.TokenEndpoint == "" {
		return nil, fmt.Errorf("discovery document has no token endpoint")
	}
	return &doc, nil
}

// subjectFromToken extracts the subject from the grant's ID token. The token
// arrived over the client-authenticated channel that just issued it, so its
// claims are read without signature verification; issuer and expiry are
// still checked.
func (a *Authenticator) subjectFromToken(token *oauth2.Token) (string, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", fmt.Errorf("token response carries no id_token")
	}

	parsed, err := jwt.ParseSigned(raw, signatureAlgorithms)
	if err != nil {
		return "", fmt.Errorf("parsing id_token: %w", err)
	}

	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return "", fmt.Errorf("reading id_token claims: %w", err)
	}
	if claims.Issuer != a.issuer {
		return "", fmt.Errorf("id_token issuer mismatch: %q", claims.Issuer)
	}
	if claims.Expiry != nil && claims.Expiry.Time().Before(time.Now()) {
		return "", fmt.Errorf("id_token is expired")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("id_token has no subject")
	}
	return claims.Subject, nil
}
