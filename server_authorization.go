package authrelay

import (
	"context"
	"net/url"

	"github.com/authrelay/authrelay/api"
)

// AuthorizationContext is the pending state of an authorization request that
// the backend could not resolve on its own: end-user interaction or a
// prompt=none session check is still required. It carries the one-shot
// ticket and the decision inputs, and is consumed exactly once by
// AuthorizeDecision or NoInteraction.
type AuthorizationContext struct {
	res *api.AuthorizationResponse
}

// Action returns the backend action that produced this context, either
// INTERACTION or NO_INTERACTION.
func (c *AuthorizationContext) Action() api.Action { return c.res.Action }

// Ticket returns the one-shot ticket consumed by the second-phase call.
func (c *AuthorizationContext) Ticket() api.Ticket { return c.res.Ticket }

// Subject returns the subject the request demands (id_token_hint, login_hint
// processing on the backend side), or "" when any subject is acceptable.
func (c *AuthorizationContext) Subject() string { return c.res.Subject }

// MaxAge returns the maximum allowed authentication age in seconds, or 0
// when unconstrained.
func (c *AuthorizationContext) MaxAge() int64 { return c.res.MaxAge }

// Scopes returns the scopes the backend resolved for the request.
func (c *AuthorizationContext) Scopes() []string { return c.res.Scopes }

// ClaimNames returns the requested claim names, possibly language-tagged.
func (c *AuthorizationContext) ClaimNames() []string { return c.res.ClaimNames }

// ClaimsLocales returns the end-user's preferred claim locales, in order.
func (c *AuthorizationContext) ClaimsLocales() []string { return c.res.ClaimsLocales }

// ACRs returns the requested authentication context class references.
func (c *AuthorizationContext) ACRs() []string { return c.res.ACRs }

// ACREssential reports whether the requested ACRs are essential: when true,
// a session satisfying none of them must not produce an authorization.
func (c *AuthorizationContext) ACREssential() bool { return c.res.ACREssential }

// Authorize processes an inbound authorization request. params are the raw
// query (GET) or form (POST) parameters. When the backend resolves the
// request on its own the returned Response is final and the context is nil;
// when interaction is required the Response is nil and the returned context
// must be resolved later via AuthorizeDecision or NoInteraction.
func (s *Server) Authorize(ctx context.Context, params url.Values) (*Response, *AuthorizationContext, error) {
	res, err := s.backend.Authorization(ctx, &api.AuthorizationRequest{
		Parameters: params.Encode(),
	})
	if err != nil {
		return nil, nil, err
	}

	switch res.Action {
	case api.ActionInteraction, api.ActionNoInteraction:
		return nil, &AuthorizationContext{res: res}, nil
	}
	return s.dispatch(ctx, authorizationTable, res.Action, res.ResponseContent), nil, nil
}

// AuthorizeDecision resolves a pending authorization request with the
// end-user's decision. The context's ticket is consumed by exactly one
// backend call: fail when the user denied or is not authenticated, issue
// otherwise.
func (s *Server) AuthorizeDecision(ctx context.Context, authCtx *AuthorizationContext, spi AuthorizationDecisionSPI) (*Response, error) {
	if !spi.IsClientAuthorized() {
		return s.authorizationFail(ctx, authCtx.Ticket(), api.AuthorizationFailDenied)
	}

	subject := spi.GetUserSubject()
	if subject == "" {
		return s.authorizationFail(ctx, authCtx.Ticket(), api.AuthorizationFailNotAuthenticated)
	}

	return s.authorizationIssue(ctx, authCtx, subject, spi)
}

// NoInteraction resolves a prompt=none authorization request from the
// current session without any UI. When the context's action is not
// NO_INTERACTION the handler declines by returning (nil, nil) so the caller
// can try another resolution path. Otherwise the session is checked against
// the request's constraints in order; the first unmet constraint fails the
// request with its reason code.
func (s *Server) NoInteraction(ctx context.Context, authCtx *AuthorizationContext, spi NoInteractionSPI) (*Response, error) {
	if authCtx.Action() != api.ActionNoInteraction {
		return nil, nil
	}

	if !spi.IsUserAuthenticated() {
		return s.authorizationFail(ctx, authCtx.Ticket(), api.AuthorizationFailNotLoggedIn)
	}

	authTime := spi.GetUserAuthenticatedAt()
	if maxAge := authCtx.MaxAge(); maxAge > 0 && s.now().Unix() >= authTime+maxAge {
		return s.authorizationFail(ctx, authCtx.Ticket(), api.AuthorizationFailExceedsMaxAge)
	}

	subject := spi.GetUserSubject()
	if requested := authCtx.Subject(); requested != "" && requested != subject {
		return s.authorizationFail(ctx, authCtx.Ticket(), api.AuthorizationFailDifferentSubject)
	}

	// A non-essential ACR request tolerates a non-matching session.
	if authCtx.ACREssential() && !acrSatisfied(authCtx.ACRs(), spi.GetAcr()) {
		return s.authorizationFail(ctx, authCtx.Ticket(), api.AuthorizationFailACRNotSatisfied)
	}

	return s.authorizationIssue(ctx, authCtx, subject, spi)
}

func acrSatisfied(requested []string, sessionACR string) bool {
	if len(requested) == 0 {
		return true
	}
	for _, acr := range requested {
		if acr == sessionACR {
			return true
		}
	}
	return false
}

func (s *Server) authorizationFail(ctx context.Context, ticket api.Ticket, reason api.AuthorizationFailReason) (*Response, error) {
	res, err := s.backend.AuthorizationFail(ctx, &api.AuthorizationFailRequest{
		Ticket: ticket,
		Reason: reason,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Authorization request failed",
		"reason", string(reason),
		"action", string(res.Action))
	return s.dispatch(ctx, authorizationFailTable, res.Action, res.ResponseContent), nil
}

// authorizationIssue collects the requested claims and resolves the pending
// request into an authorization response for subject.
func (s *Server) authorizationIssue(ctx context.Context, authCtx *AuthorizationContext, subject string, spi NoInteractionSPI) (*Response, error) {
	claims := NewClaimCollector(spi).Collect(subject, authCtx.ClaimNames(), authCtx.ClaimsLocales())
	if s.inst != nil && claims != nil {
		s.inst.Metrics().RecordClaimsCollected(ctx, len(claims))
	}

	res, err := s.backend.AuthorizationIssue(ctx, &api.AuthorizationIssueRequest{
		Ticket:     authCtx.Ticket(),
		Subject:    subject,
		AuthTime:   spi.GetUserAuthenticatedAt(),
		ACR:        spi.GetAcr(),
		Claims:     claims,
		Properties: spi.GetProperties(),
		Scopes:     spi.GetScopes(),
		Sub:        spi.GetSub(),
	})
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, authorizationIssueTable, res.Action, res.ResponseContent), nil
}
