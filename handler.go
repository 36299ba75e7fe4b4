package authrelay

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/authrelay/authrelay/api"
	"github.com/authrelay/authrelay/instrumentation"
	"github.com/authrelay/authrelay/security"
)

// Endpoint paths mounted by RegisterRoutes.
const (
	EndpointAuthorization = "/authorize"
	EndpointToken         = "/token"
	EndpointRevocation    = "/revoke"
	EndpointIntrospection = "/introspect"
	EndpointUserInfo      = "/userinfo"
	EndpointJWKS          = "/jwks"
	EndpointConfiguration = "/.well-known/openid-configuration"
)

// backendErrorBody is returned when a backend call fails at the HTTP
// boundary. Library callers using Server directly receive the error itself.
const backendErrorBody = `{"error":"server_error","error_description":"The authorization backend could not be reached."}`

const rateLimitBody = `{"error":"temporarily_unavailable","error_description":"Too many requests."}`

const interactionRequiredBody = `{"error":"server_error","error_description":"End-user interaction is required but no interaction handler is configured."}`

// InteractionFunc renders the login/consent UI for an authorization request
// that needs end-user interaction. The host owns the pending context from
// here on and resolves it later via Server.AuthorizeDecision.
type InteractionFunc func(w http.ResponseWriter, r *http.Request, authCtx *AuthorizationContext)

// HandlerConfig wires the host's SPI implementations into a Handler.
type HandlerConfig struct {
	// NoInteraction resolves prompt=none requests from the current session.
	// Optional; without it every NO_INTERACTION request goes to OnInteraction.
	NoInteraction NoInteractionSPI

	// Token authenticates resource owners for the password grant and
	// decorates issued tokens. Defaults to rejecting every password grant.
	Token TokenSPI

	// Claims supplies claim values at the userinfo endpoint. Defaults to no
	// claims.
	Claims UserClaimProvider

	// OnInteraction renders the login/consent UI. Optional; without it,
	// interactive requests answer 500.
	OnInteraction InteractionFunc
}

type noopTokenSPI struct {
	NoopAuthenticator
	NoopDecorator
}

// Handler adapts a Server to net/http. It owns the boundary concerns the
// Server stays free of: request IDs, rate limiting, audit events, metrics
// and converting backend errors into responses.
type Handler struct {
	server        *Server
	logger        *slog.Logger
	inst          *instrumentation.Instrumentation
	auditor       *security.Auditor
	limiter       *security.RateLimiter
	tracer        trace.Tracer
	noInteraction NoInteractionSPI
	token         TokenSPI
	claims        UserClaimProvider
	onInteraction InteractionFunc
}

// NewHandler creates a Handler over server.
func NewHandler(server *Server, cfg HandlerConfig) *Handler {
	var limiter *security.RateLimiter
	if server.rateLimit.Rate > 0 {
		limiter = security.NewRateLimiter(server.rateLimit.Rate, server.rateLimit.Burst, server.logger)
	}

	tracer := noop.NewTracerProvider().Tracer("")
	if server.inst != nil {
		tracer = server.inst.Tracer("handler")
	}

	token := cfg.Token
	if token == nil {
		token = noopTokenSPI{}
	}
	claims := cfg.Claims
	if claims == nil {
		claims = NoopClaims{}
	}

	return &Handler{
		server:        server,
		logger:        server.logger,
		inst:          server.inst,
		auditor:       server.auditor,
		limiter:       limiter,
		tracer:        tracer,
		noInteraction: cfg.NoInteraction,
		token:         token,
		claims:        claims,
		onInteraction: cfg.OnInteraction,
	}
}

// Close releases handler resources (the rate limiter's sweep loop).
func (h *Handler) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}

// RegisterRoutes mounts every endpoint on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(EndpointAuthorization, h.ServeAuthorization)
	mux.HandleFunc(EndpointToken, h.ServeToken)
	mux.HandleFunc(EndpointRevocation, h.ServeRevocation)
	mux.HandleFunc(EndpointIntrospection, h.ServeIntrospection)
	mux.HandleFunc(EndpointUserInfo, h.ServeUserInfo)
	mux.HandleFunc(EndpointJWKS, h.ServeJWKS)
	mux.HandleFunc(EndpointConfiguration, h.ServeConfiguration)
}

// ServeAuthorization handles the authorization endpoint. Requests the
// backend resolves on its own are answered directly; prompt=none requests
// are resolved from the session when a NoInteraction SPI is configured;
// everything else goes to the interaction hook.
func (h *Handler) ServeAuthorization(w http.ResponseWriter, r *http.Request) {
	ctx, span, ip, done := h.begin(w, r, EndpointAuthorization)
	if ctx == nil {
		return
	}
	defer span.End()

	if err := r.ParseForm(); err != nil {
		done(h.writeResponse(w, jsonResponse(http.StatusBadRequest, `{"error":"invalid_request"}`)))
		return
	}

	res, authCtx, err := h.server.Authorize(ctx, r.Form)
	if err != nil {
		done(h.backendError(w, span, err))
		return
	}
	if res != nil {
		done(h.writeResponse(w, res))
		return
	}

	if authCtx.Action() == api.ActionNoInteraction && h.noInteraction != nil {
		res, err := h.server.NoInteraction(ctx, authCtx, h.noInteraction)
		if err != nil {
			done(h.backendError(w, span, err))
			return
		}
		if res != nil {
			done(h.writeResponse(w, res))
			return
		}
	}

	if h.onInteraction == nil {
		h.logger.Error("Authorization request needs interaction but no handler is configured", "ip", ip)
		done(h.writeResponse(w, jsonResponse(http.StatusInternalServerError, interactionRequiredBody)))
		return
	}
	h.onInteraction(w, r, authCtx)
	done(http.StatusOK)
}

// ServeToken handles the token endpoint. Client credentials are taken from
// Basic auth first, then from the form body.
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	ctx, span, ip, done := h.begin(w, r, EndpointToken)
	if ctx == nil {
		return
	}
	defer span.End()

	if err := r.ParseForm(); err != nil {
		done(h.writeResponse(w, jsonResponse(http.StatusBadRequest, `{"error":"invalid_request"}`)))
		return
	}
	clientID, clientSecret := clientCredentials(r)
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrClientID, clientID))

	res, err := h.server.Token(ctx, r.PostForm, clientID, clientSecret, h.token)
	if err != nil {
		done(h.backendError(w, span, err))
		return
	}

	switch {
	case res.StatusCode == http.StatusOK:
		h.auditor.LogTokenIssued(clientID, ip)
	case res.StatusCode == http.StatusUnauthorized:
		h.auditor.LogTokenDenied(clientID, ip, "invalid_client")
	default:
		h.auditor.LogTokenDenied(clientID, ip, "rejected")
	}
	done(h.writeResponse(w, res))
}

// ServeRevocation handles the RFC 7009 revocation endpoint.
func (h *Handler) ServeRevocation(w http.ResponseWriter, r *http.Request) {
	ctx, span, ip, done := h.begin(w, r, EndpointRevocation)
	if ctx == nil {
		return
	}
	defer span.End()

	if err := r.ParseForm(); err != nil {
		done(h.writeResponse(w, jsonResponse(http.StatusBadRequest, `{"error":"invalid_request"}`)))
		return
	}
	clientID, clientSecret := clientCredentials(r)

	res, err := h.server.Revoke(ctx, r.PostForm, clientID, clientSecret)
	if err != nil {
		done(h.backendError(w, span, err))
		return
	}
	h.auditor.LogRevocation(clientID, ip)
	done(h.writeResponse(w, res))
}

// ServeIntrospection handles the RFC 7662 introspection endpoint.
func (h *Handler) ServeIntrospection(w http.ResponseWriter, r *http.Request) {
	ctx, span, ip, done := h.begin(w, r, EndpointIntrospection)
	if ctx == nil {
		return
	}
	defer span.End()

	if err := r.ParseForm(); err != nil {
		done(h.writeResponse(w, jsonResponse(http.StatusBadRequest, `{"error":"invalid_request"}`)))
		return
	}

	res, err := h.server.Introspect(ctx, r.PostForm)
	if err != nil {
		done(h.backendError(w, span, err))
		return
	}
	h.auditor.LogIntrospection(ip)
	done(h.writeResponse(w, res))
}

// ServeUserInfo handles the userinfo endpoint. The access token may arrive
// as a bearer Authorization header or as the access_token form/query
// parameter.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	ctx, span, ip, done := h.begin(w, r, EndpointUserInfo)
	if ctx == nil {
		return
	}
	defer span.End()

	token := bearerToken(r)

	res, err := h.server.UserInfo(ctx, token, h.claims)
	if err != nil {
		done(h.backendError(w, span, err))
		return
	}
	if res.StatusCode == http.StatusOK {
		h.auditor.LogUserInfoAccess("", ip)
	}
	done(h.writeResponse(w, res))
}

// ServeJWKS handles the JWK set endpoint.
func (h *Handler) ServeJWKS(w http.ResponseWriter, r *http.Request) {
	ctx, span, _, done := h.begin(w, r, EndpointJWKS)
	if ctx == nil {
		return
	}
	defer span.End()

	res, err := h.server.JWKS(ctx, r.URL.Query().Get("pretty") == "true")
	if err != nil {
		done(h.backendError(w, span, err))
		return
	}
	done(h.writeResponse(w, res))
}

// ServeConfiguration handles the OpenID Connect discovery endpoint.
func (h *Handler) ServeConfiguration(w http.ResponseWriter, r *http.Request) {
	ctx, span, _, done := h.begin(w, r, EndpointConfiguration)
	if ctx == nil {
		return
	}
	defer span.End()

	res, err := h.server.Configuration(ctx, r.URL.Query().Get("pretty") == "true")
	if err != nil {
		done(h.backendError(w, span, err))
		return
	}
	done(h.writeResponse(w, res))
}

// begin applies the boundary concerns shared by every endpoint: request ID,
// rate limiting, tracing and HTTP metrics. It returns a nil ctx when the
// request was already answered (rate limited); done records the final status.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request, endpoint string) (context.Context, trace.Span, string, func(int)) {
	start := time.Now()
	ctx := security.WithRequestID(r.Context(), security.RequestIDFromHTTP(r))
	ip := clientIP(r)

	if h.limiter != nil && !h.limiter.Allow(ip) {
		h.logger.Warn("Rate limit exceeded", "ip", ip, "endpoint", endpoint)
		if h.inst != nil {
			h.inst.Metrics().RecordRateLimitExceeded(ctx, "ip")
		}
		h.auditor.LogRateLimitExceeded(ip, endpoint)
		h.writeResponse(w, jsonResponse(http.StatusTooManyRequests, rateLimitBody))
		return nil, nil, "", nil
	}

	ctx, span := h.tracer.Start(ctx, "authrelay"+endpoint)
	if h.inst != nil && h.inst.ShouldLogClientIPs() {
		instrumentation.AddSecurityAttributes(span, ip)
	}

	done := func(status int) {
		instrumentation.AddHTTPAttributes(span, r.Method, endpoint, status)
		if h.inst != nil {
			durationMs := float64(time.Since(start).Microseconds()) / 1000.0
			h.inst.Metrics().RecordHTTPRequest(ctx, r.Method, endpoint, status, durationMs)
		}
	}
	return ctx, span, ip, done
}

// backendError converts a backend call failure into the boundary 500.
func (h *Handler) backendError(w http.ResponseWriter, span trace.Span, err error) int {
	h.logger.Error("Backend delegation failed", "error", err)
	instrumentation.RecordError(span, err)
	h.auditor.LogBackendError("", err)
	return h.writeResponse(w, jsonResponse(http.StatusInternalServerError, backendErrorBody))
}

// writeResponse writes res and returns its status for metric recording.
func (h *Handler) writeResponse(w http.ResponseWriter, res *Response) int {
	res.WriteTo(w)
	return res.StatusCode
}

// clientCredentials extracts the client id/secret pair, preferring Basic
// auth over form parameters.
func clientCredentials(r *http.Request) (string, string) {
	if id, secret, ok := r.BasicAuth(); ok {
		return id, secret
	}
	return r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
}

// bearerToken extracts the access token from the Authorization header or the
// access_token parameter. An empty return means no token was presented.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	_ = r.ParseForm()
	return r.Form.Get("access_token")
}

// clientIP returns the connection's remote IP. Deployments behind a proxy
// should terminate it in front of this handler and rewrite RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
