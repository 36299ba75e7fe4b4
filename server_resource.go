package authrelay

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/authrelay/authrelay/api"
)

// missingTokenChallenge is the userinfo challenge for a request that carried
// no access token at all. No backend call is made in that case.
const missingTokenChallenge = `Bearer error="invalid_token",error_description="An access token is required."`

// Introspect processes an RFC 7662 introspection request from a resource
// server. params is the raw form body.
func (s *Server) Introspect(ctx context.Context, params url.Values) (*Response, error) {
	res, err := s.backend.StandardIntrospection(ctx, &api.StandardIntrospectionRequest{
		Parameters: params.Encode(),
	})
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, standardIntrospectionTable, res.Action, res.ResponseContent), nil
}

// UserInfo processes a userinfo request for the given access token. provider
// supplies the claim values named by the backend; claim locales do not apply
// at the userinfo endpoint.
func (s *Server) UserInfo(ctx context.Context, token string, provider UserClaimProvider) (*Response, error) {
	if token == "" {
		return wwwAuthenticateResponse(http.StatusBadRequest, missingTokenChallenge, ""), nil
	}

	res, err := s.backend.UserInfo(ctx, &api.UserInfoRequest{Token: token})
	if err != nil {
		return nil, err
	}
	if res.Action != api.ActionOK {
		return s.dispatch(ctx, userInfoTable, res.Action, res.ResponseContent), nil
	}

	claims := NewClaimCollector(provider).Collect(res.Subject, res.ClaimNames, nil)
	if s.inst != nil && claims != nil {
		s.inst.Metrics().RecordClaimsCollected(ctx, len(claims))
	}

	issueRes, err := s.backend.UserInfoIssue(ctx, &api.UserInfoIssueRequest{
		Token:  token,
		Claims: claims,
	})
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, userInfoIssueTable, issueRes.Action, issueRes.ResponseContent), nil
}

// JWKS serves the service's JWK set. An empty set yields 204. Some backends
// answer this operation with a redirect to where the keys are hosted; that
// redirect-shaped error is recovered into a 302 here, any other backend
// error propagates.
func (s *Server) JWKS(ctx context.Context, pretty bool) (*Response, error) {
	body, err := s.backend.ServiceJWKS(ctx, pretty, false)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusFound && apiErr.Location() != "" {
			return locationResponse(apiErr.Location()), nil
		}
		return nil, err
	}
	if body == "" {
		return noContentResponse(), nil
	}
	return okJSON(body), nil
}

// Configuration serves the OpenID Connect discovery document.
func (s *Server) Configuration(ctx context.Context, pretty bool) (*Response, error) {
	body, err := s.backend.ServiceConfiguration(ctx, pretty)
	if err != nil {
		return nil, err
	}
	return okJSON(body), nil
}
