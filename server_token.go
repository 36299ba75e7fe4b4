package authrelay

import (
	"context"
	"net/url"

	"github.com/authrelay/authrelay/api"
)

// Token processes an inbound token request. params is the raw form body;
// clientID/clientSecret are the client credentials regardless of whether
// they arrived via Basic auth or in the form. spi authenticates the resource
// owner for the password grant and decorates issued tokens.
func (s *Server) Token(ctx context.Context, params url.Values, clientID, clientSecret string, spi TokenSPI) (*Response, error) {
	res, err := s.backend.Token(ctx, &api.TokenRequest{
		Parameters:   params.Encode(),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Properties:   spi.GetProperties(),
	})
	if err != nil {
		return nil, err
	}

	if res.Action == api.ActionPassword {
		return s.tokenPassword(ctx, res, spi)
	}
	return s.dispatch(ctx, tokenTable, res.Action, res.ResponseContent), nil
}

// tokenPassword resolves the resource owner password grant: the backend has
// validated the client and echoed the username/password pair; the host
// authenticates the end-user and the ticket is consumed by issue or fail.
func (s *Server) tokenPassword(ctx context.Context, res *api.TokenResponse, spi TokenSPI) (*Response, error) {
	subject := spi.AuthenticateUser(res.Username, res.Password)
	if subject == "" {
		failRes, err := s.backend.TokenFail(ctx, &api.TokenFailRequest{
			Ticket: res.Ticket,
			Reason: api.TokenFailInvalidResourceOwnerCredentials,
		})
		if err != nil {
			return nil, err
		}
		return s.dispatch(ctx, tokenFailTable, failRes.Action, failRes.ResponseContent), nil
	}

	issueRes, err := s.backend.TokenIssue(ctx, &api.TokenIssueRequest{
		Ticket:     res.Ticket,
		Subject:    subject,
		Properties: spi.GetProperties(),
	})
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, tokenIssueTable, issueRes.Action, issueRes.ResponseContent), nil
}

// Revoke processes an inbound RFC 7009 revocation request.
func (s *Server) Revoke(ctx context.Context, params url.Values, clientID, clientSecret string) (*Response, error) {
	res, err := s.backend.Revocation(ctx, &api.RevocationRequest{
		Parameters:   params.Encode(),
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, revocationTable, res.Action, res.ResponseContent), nil
}
