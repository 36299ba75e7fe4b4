package api

// AuthorizationRequest is the request to the authorization operation.
// Parameters carries the raw, URL-encoded query or form parameters of the
// inbound authorization request exactly as received.
type AuthorizationRequest struct {
	Parameters string `json:"parameters"`
}

// AuthorizationResponse is the response from the authorization operation.
// Besides the action and pre-rendered content it carries the decision inputs
// a second-phase call needs: the ticket, the requested claims and locales,
// and the session constraints (max_age, subject, ACRs).
type AuthorizationResponse struct {
	Action          Action   `json:"action"`
	ResponseContent string   `json:"responseContent,omitempty"`
	Ticket          Ticket   `json:"ticket,omitempty"`
	Subject         string   `json:"subject,omitempty"`
	MaxAge          int64    `json:"maxAge,omitempty"`
	Scopes          []string `json:"scopes,omitempty"`
	ClaimNames      []string `json:"claims,omitempty"`
	ClaimsLocales   []string `json:"claimsLocales,omitempty"`
	ACREssential    bool     `json:"acrEssential,omitempty"`
	ACRs            []string `json:"acrs,omitempty"`
}

// AuthorizationFailRequest fails a pending authorization request.
type AuthorizationFailRequest struct {
	Ticket Ticket                  `json:"ticket"`
	Reason AuthorizationFailReason `json:"reason"`
}

// AuthorizationFailResponse is the response from authorization/fail.
type AuthorizationFailResponse struct {
	Action          Action `json:"action"`
	ResponseContent string `json:"responseContent,omitempty"`
}

// AuthorizationIssueRequest resolves a pending authorization request by
// issuing an authorization response for the given subject.
type AuthorizationIssueRequest struct {
	Ticket     Ticket         `json:"ticket"`
	Subject    string         `json:"subject"`
	AuthTime   int64          `json:"authTime,omitempty"`
	ACR        string         `json:"acr,omitempty"`
	Claims     map[string]any `json:"claims,omitempty"`
	Properties []Property     `json:"properties,omitempty"`
	Scopes     []string       `json:"scopes,omitempty"`
	Sub        string         `json:"sub,omitempty"`
}

// AuthorizationIssueResponse is the response from authorization/issue.
type AuthorizationIssueResponse struct {
	Action          Action `json:"action"`
	ResponseContent string `json:"responseContent,omitempty"`
}

// TokenRequest is the request to the token operation. Parameters carries the
// raw form body of the inbound token request; the client credentials are
// passed separately regardless of whether they arrived via Basic auth or in
// the form body.
type TokenRequest struct {
	Parameters   string     `json:"parameters"`
	ClientID     string     `json:"clientId,omitempty"`
	ClientSecret string     `json:"clientSecret,omitempty"`
	Properties   []Property `json:"properties,omitempty"`
}

// TokenResponse is the response from the token operation. For the resource
// owner password grant the backend echoes the username/password pair so the
// caller can authenticate the end-user before resolving the ticket.
type TokenResponse struct {
	Action          Action `json:"action"`
	ResponseContent string `json:"responseContent,omitempty"`
	Ticket          Ticket `json:"ticket,omitempty"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
}

// TokenFailRequest fails a pending token request.
type TokenFailRequest struct {
	Ticket Ticket          `json:"ticket"`
	Reason TokenFailReason `json:"reason"`
}

// TokenFailResponse is the response from token/fail.
type TokenFailResponse struct {
	Action          Action `json:"action"`
	ResponseContent string `json:"responseContent,omitempty"`
}

// TokenIssueRequest resolves a pending token request by issuing tokens for
// the given subject.
type TokenIssueRequest struct {
	Ticket     Ticket     `json:"ticket"`
	Subject    string     `json:"subject"`
	Properties []Property `json:"properties,omitempty"`
}

// TokenIssueResponse is the response from token/issue.
type TokenIssueResponse struct {
	Action          Action `json:"action"`
	ResponseContent string `json:"responseContent,omitempty"`
}

// RevocationRequest is the request to the revocation operation.
type RevocationRequest struct {
	Parameters   string `json:"parameters"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

// RevocationResponse is the response from the revocation operation.
type RevocationResponse struct {
	Action          Action `json:"action"`
	ResponseContent string `json:"responseContent,omitempty"`
}

// UserInfoRequest is the request to the userinfo operation.
type UserInfoRequest struct {
	Token string `json:"token"`
}

// UserInfoResponse is the response from the userinfo operation. On OK it
// names the subject and the claims the caller must collect before calling
// userinfo/issue.
type UserInfoResponse struct {
	Action          Action   `json:"action"`
	ResponseContent string   `json:"responseContent,omitempty"`
	Subject         string   `json:"subject,omitempty"`
	ClaimNames      []string `json:"claims,omitempty"`
}

// UserInfoIssueRequest resolves a userinfo request with collected claims.
type UserInfoIssueRequest struct {
	Token  string         `json:"token"`
	Claims map[string]any `json:"claims,omitempty"`
}

// UserInfoIssueResponse is the response from userinfo/issue.
type UserInfoIssueResponse struct {
	Action          Action `json:"action"`
	ResponseContent string `json:"responseContent,omitempty"`
}

// IntrospectionRequest is the request to the introspection operation used by
// resource servers (and the access token validator). Scopes and Subject are
// optional constraints enforced by the backend.
type IntrospectionRequest struct {
	Token   string   `json:"token"`
	Scopes  []string `json:"scopes,omitempty"`
	Subject string   `json:"subject,omitempty"`
}

// IntrospectionResponse is the response from the introspection operation.
type IntrospectionResponse struct {
	Action          Action   `json:"action"`
	ResponseContent string   `json:"responseContent,omitempty"`
	Subject         string   `json:"subject,omitempty"`
	Scopes          []string `json:"scopes,omitempty"`
	ClientID        int64    `json:"clientId,omitempty"`
	ExpiresAt       int64    `json:"expiresAt,omitempty"`
}

// StandardIntrospectionRequest is the request to introspection/standard,
// which implements RFC 7662 introspection. Parameters carries the raw form
// body of the inbound introspection request.
type StandardIntrospectionRequest struct {
	Parameters string `json:"parameters"`
}

// StandardIntrospectionResponse is the response from introspection/standard.
type StandardIntrospectionResponse struct {
	Action          Action `json:"action"`
	ResponseContent string `json:"responseContent,omitempty"`
}
