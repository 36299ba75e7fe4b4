package authrelay

import "github.com/authrelay/authrelay/api"

// Service provider interfaces (SPIs): the capability contracts a host
// application implements to supply user authentication state, claim values
// and authorization decisions. Each interface covers one concern; handlers
// compose the ones they need. Handlers treat SPIs as read-only capability
// providers and never mutate host-held state.

// UserClaimProvider supplies claim values for a subject. languageTag is the
// BCP47 tag to resolve, or "" for the untagged value. A nil return means the
// claim (or that localization of it) is absent.
type UserClaimProvider interface {
	GetUserClaimValue(subject, claimName, languageTag string) any
}

// SessionProvider supplies facts about the current end-user session.
type SessionProvider interface {
	// IsUserAuthenticated reports whether an end-user is logged in.
	IsUserAuthenticated() bool

	// GetUserSubject returns the subject of the logged-in user, or "" when
	// nobody is authenticated.
	GetUserSubject() string

	// GetUserAuthenticatedAt returns the time of authentication as seconds
	// since the Unix epoch, or 0 when unknown.
	GetUserAuthenticatedAt() int64

	// GetAcr returns the authentication context class reference satisfied
	// by the current session, or "" when none applies.
	GetAcr() string
}

// TokenDecorator supplies optional data attached to issued tokens and codes.
type TokenDecorator interface {
	// GetProperties returns arbitrary key/value pairs to attach to the
	// token/code, or nil for none.
	GetProperties() []api.Property

	// GetScopes replaces the originally requested scopes, or returns nil to
	// keep them.
	GetScopes() []string

	// GetSub overrides the value of the "sub" claim, or returns "" to use
	// the subject as-is.
	GetSub() string
}

// DecisionProvider reports the end-user's authorization decision.
type DecisionProvider interface {
	// IsClientAuthorized reports whether the end-user granted the client's
	// authorization request.
	IsClientAuthorized() bool
}

// Authenticator verifies resource owner credentials for the password grant.
type Authenticator interface {
	// AuthenticateUser returns the subject for valid credentials, or ""
	// when authentication failed.
	AuthenticateUser(username, password string) string
}

// AuthorizationDecisionSPI is everything the authorization decision handler
// consults.
type AuthorizationDecisionSPI interface {
	DecisionProvider
	SessionProvider
	TokenDecorator
	UserClaimProvider
}

// NoInteractionSPI is everything the no-interaction handler consults.
type NoInteractionSPI interface {
	SessionProvider
	TokenDecorator
	UserClaimProvider
}

// TokenSPI is everything the token handler consults.
type TokenSPI interface {
	Authenticator
	// GetProperties returns properties to attach to tokens issued by the
	// token endpoint, or nil.
	GetProperties() []api.Property
}

// No-op defaults. Hosts embed these and override only the methods they
// care about.

// NoopSession is a SessionProvider describing an absent session.
type NoopSession struct{}

func (NoopSession) IsUserAuthenticated() bool     { return false }
func (NoopSession) GetUserSubject() string        { return "" }
func (NoopSession) GetUserAuthenticatedAt() int64 { return 0 }
func (NoopSession) GetAcr() string                { return "" }

// NoopClaims is a UserClaimProvider with no claims.
type NoopClaims struct{}

func (NoopClaims) GetUserClaimValue(subject, claimName, languageTag string) any { return nil }

// NoopDecorator is a TokenDecorator that decorates nothing.
type NoopDecorator struct{}

func (NoopDecorator) GetProperties() []api.Property { return nil }
func (NoopDecorator) GetScopes() []string           { return nil }
func (NoopDecorator) GetSub() string                { return "" }

// NoopAuthenticator rejects every credential pair.
type NoopAuthenticator struct{}

func (NoopAuthenticator) AuthenticateUser(username, password string) string { return "" }
