// Package upstream authenticates resource owners against an upstream OpenID
// Connect provider. It implements the password-grant authenticator SPI by
// replaying the end-user's credentials to the upstream token endpoint and
// reading the authenticated subject from the returned ID token.
//
// This is intended for deployments migrating an existing user store behind
// the relay: the upstream provider remains the source of truth for
// credentials while token issuance moves to the authorization backend.
package upstream
