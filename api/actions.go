package api

// Action is the discriminator returned by every backend operation. It names
// the next step the caller must take. Each handler in the root package works
// with its own closed subset of actions; an action outside that subset is a
// protocol failure handled by the shared unknown-action fallback.
type Action string

const (
	// ActionOK means the operation succeeded and the response content can be
	// returned to the client as-is.
	ActionOK Action = "OK"

	// ActionBadRequest means the inbound request was malformed. The response
	// content is a ready-to-send JSON error body.
	ActionBadRequest Action = "BAD_REQUEST"

	// ActionInternalServerError means the backend hit an unexpected condition.
	ActionInternalServerError Action = "INTERNAL_SERVER_ERROR"

	// ActionUnauthorized means the request lacked valid credentials. The
	// response content is a WWW-Authenticate challenge.
	ActionUnauthorized Action = "UNAUTHORIZED"

	// ActionForbidden means the presented credentials do not grant access.
	ActionForbidden Action = "FORBIDDEN"

	// ActionLocation means the client must be redirected. The response
	// content is the redirect target URL.
	ActionLocation Action = "LOCATION"

	// ActionForm means the client must receive a self-submitting HTML form
	// (response_mode=form_post). The response content is the HTML document.
	ActionForm Action = "FORM"

	// ActionInteraction means end-user interaction (login/consent UI) is
	// required before the authorization request can be resolved.
	ActionInteraction Action = "INTERACTION"

	// ActionNoInteraction means the request carried prompt=none and must be
	// resolved from the existing session without any UI.
	ActionNoInteraction Action = "NO_INTERACTION"

	// ActionJSON means the response content is a JSON document.
	ActionJSON Action = "JSON"

	// ActionJWT means the response content is a signed (and possibly
	// encrypted) JWT.
	ActionJWT Action = "JWT"

	// ActionInvalidClient means client authentication failed.
	ActionInvalidClient Action = "INVALID_CLIENT"

	// ActionPassword means the token request uses the resource owner password
	// grant and the caller must authenticate the end-user before resolving
	// the ticket.
	ActionPassword Action = "PASSWORD"
)

// AuthorizationFailReason names why a pending authorization request is being
// failed via the authorization/fail operation.
type AuthorizationFailReason string

const (
	AuthorizationFailUnknown          AuthorizationFailReason = "UNKNOWN"
	AuthorizationFailNotLoggedIn      AuthorizationFailReason = "NOT_LOGGED_IN"
	AuthorizationFailExceedsMaxAge    AuthorizationFailReason = "EXCEEDS_MAX_AGE"
	AuthorizationFailDifferentSubject AuthorizationFailReason = "DIFFERENT_SUBJECT"
	AuthorizationFailACRNotSatisfied  AuthorizationFailReason = "ACR_NOT_SATISFIED"
	AuthorizationFailDenied           AuthorizationFailReason = "DENIED"
	AuthorizationFailNotAuthenticated AuthorizationFailReason = "NOT_AUTHENTICATED"
)

// TokenFailReason names why a pending token request is being failed via the
// token/fail operation.
type TokenFailReason string

const (
	TokenFailUnknown                         TokenFailReason = "UNKNOWN"
	TokenFailInvalidResourceOwnerCredentials TokenFailReason = "INVALID_RESOURCE_OWNER_CREDENTIALS"
	TokenFailInvalidTarget                   TokenFailReason = "INVALID_TARGET"
)
