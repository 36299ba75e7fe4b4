package authrelay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/authrelay/authrelay/api"
	"github.com/authrelay/authrelay/instrumentation"
	"github.com/authrelay/authrelay/security"
)

// Server implements the endpoint logic: it builds backend requests from
// endpoint inputs, delegates to the authorization backend and maps each
// returned action to an HTTP response shape. Server methods return ready
// Response values rather than writing to the network so hosts on any HTTP
// stack can use them; Handler wraps a Server for net/http.
//
// A Server is stateless apart from its immutable collaborators and is safe
// for concurrent use.
type Server struct {
	backend   *api.Client
	logger    *slog.Logger
	inst      *instrumentation.Instrumentation
	auditor   *security.Auditor
	rateLimit RateLimitConfig

	// now is the clock used for the max_age check. Tests override it.
	now func() time.Time
}

// NewServer creates a Server from the given configuration.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil && cfg.Backend.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Backend.Timeout}
	}

	backend, err := api.NewClient(api.ClientConfig{
		BaseURL:         cfg.Backend.BaseURL,
		Credentials:     api.NewCredentials(cfg.Backend.ServiceAPIKey, cfg.Backend.ServiceAPISecret),
		HTTPClient:      httpClient,
		Logger:          logger,
		Instrumentation: cfg.Instrumentation,
	})
	if err != nil {
		return nil, err
	}

	return &Server{
		backend:   backend,
		logger:    logger,
		inst:      cfg.Instrumentation,
		auditor:   security.NewAuditor(logger, cfg.AuditEnabled),
		rateLimit: cfg.RateLimit,
		now:       time.Now,
	}, nil
}

// Backend returns the backend client, e.g. for building an
// AccessTokenValidator that shares the server's connection settings.
func (s *Server) Backend() *api.Client {
	return s.backend
}

// NewAccessTokenValidator creates a validator over the server's backend.
func (s *Server) NewAccessTokenValidator() *AccessTokenValidator {
	return NewAccessTokenValidator(s.backend)
}

// responder turns a backend response-content string into an HTTP response.
type responder func(content string) *Response

// actionTable maps a backend operation's closed action set to response
// shapes. Actions outside the set fall through to the shared unknown-action
// 500 naming the operation path. Building the switch as data keeps the
// repeated per-handler dispatch from diverging.
type actionTable struct {
	path       string
	responders map[api.Action]responder
}

// dispatch resolves action through the table. The fallback never fails.
func (s *Server) dispatch(ctx context.Context, table actionTable, action api.Action, content string) *Response {
	if respond, ok := table.responders[action]; ok {
		return respond(content)
	}

	s.logger.Error("Backend returned unknown action",
		"path", table.path,
		"action", string(action))
	if s.inst != nil {
		s.inst.Metrics().RecordUnknownAction(ctx, table.path, string(action))
	}
	return unknownActionResponse(table.path)
}

func asJSON(status int) responder {
	return func(content string) *Response { return jsonResponse(status, content) }
}

// asChallenge puts the backend-rendered challenge into WWW-Authenticate.
func asChallenge(status int) responder {
	return func(content string) *Response { return wwwAuthenticateResponse(status, content, "") }
}

// asBasicChallenge carries a fixed realm challenge and the backend-rendered
// JSON error body, for INVALID_CLIENT on the token and revocation endpoints.
func asBasicChallenge(realm string) responder {
	challenge := `Basic realm="` + realm + `"`
	return func(content string) *Response {
		return wwwAuthenticateResponse(http.StatusUnauthorized, challenge, content)
	}
}

// The authorization family shares one shape set: JSON errors, a redirect, or
// a self-submitting form_post document.
func authorizationResponders() map[api.Action]responder {
	return map[api.Action]responder{
		api.ActionInternalServerError: asJSON(http.StatusInternalServerError),
		api.ActionBadRequest:          asJSON(http.StatusBadRequest),
		api.ActionLocation:            func(content string) *Response { return locationResponse(content) },
		api.ActionForm:                okHTML,
	}
}

var (
	authorizationTable = actionTable{
		path:       api.PathAuthorization,
		responders: authorizationResponders(),
	}
	authorizationFailTable = actionTable{
		path:       api.PathAuthorizationFail,
		responders: authorizationResponders(),
	}
	authorizationIssueTable = actionTable{
		path:       api.PathAuthorizationIssue,
		responders: authorizationResponders(),
	}

	tokenTable = actionTable{
		path: api.PathToken,
		responders: map[api.Action]responder{
			api.ActionInvalidClient:       asBasicChallenge(realmToken),
			api.ActionInternalServerError: asJSON(http.StatusInternalServerError),
			api.ActionBadRequest:          asJSON(http.StatusBadRequest),
			api.ActionOK:                  okJSON,
			// ActionPassword is resolved before dispatch.
		},
	}
	tokenFailTable = actionTable{
		path: api.PathTokenFail,
		responders: map[api.Action]responder{
			api.ActionInternalServerError: asJSON(http.StatusInternalServerError),
			api.ActionBadRequest:          asJSON(http.StatusBadRequest),
		},
	}
	tokenIssueTable = actionTable{
		path: api.PathTokenIssue,
		responders: map[api.Action]responder{
			api.ActionInternalServerError: asJSON(http.StatusInternalServerError),
			api.ActionOK:                  okJSON,
		},
	}

	revocationTable = actionTable{
		path: api.PathRevocation,
		responders: map[api.Action]responder{
			api.ActionInvalidClient:       asBasicChallenge(realmRevocation),
			api.ActionInternalServerError: asJSON(http.StatusInternalServerError),
			api.ActionBadRequest:          asJSON(http.StatusBadRequest),
			api.ActionOK:                  okJavaScript,
		},
	}

	standardIntrospectionTable = actionTable{
		path: api.PathStandardIntrospection,
		responders: map[api.Action]responder{
			api.ActionInternalServerError: asJSON(http.StatusInternalServerError),
			api.ActionBadRequest:          asJSON(http.StatusBadRequest),
			api.ActionOK:                  okJSON,
		},
	}

	userInfoTable = actionTable{
		path: api.PathUserInfo,
		responders: map[api.Action]responder{
			api.ActionInternalServerError: asChallenge(http.StatusInternalServerError),
			api.ActionBadRequest:          asChallenge(http.StatusBadRequest),
			api.ActionUnauthorized:        asChallenge(http.StatusUnauthorized),
			api.ActionForbidden:           asChallenge(http.StatusForbidden),
			// ActionOK continues to userinfo/issue before dispatch.
		},
	}
	userInfoIssueTable = actionTable{
		path: api.PathUserInfoIssue,
		responders: map[api.Action]responder{
			api.ActionInternalServerError: asChallenge(http.StatusInternalServerError),
			api.ActionBadRequest:          asChallenge(http.StatusBadRequest),
			api.ActionUnauthorized:        asChallenge(http.StatusUnauthorized),
			api.ActionForbidden:           asChallenge(http.StatusForbidden),
			api.ActionJSON:                okJSON,
			api.ActionJWT:                 okJWT,
		},
	}
)

// Fixed endpoint realms.
const (
	realmToken      = "token"
	realmRevocation = "revocation"
)
