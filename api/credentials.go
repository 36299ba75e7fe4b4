package api

import "encoding/base64"

// Ticket is the opaque handle issued by a first-phase backend operation
// (authorization, token) and consumed exactly once by the matching
// issue or fail operation. A ticket is only valid for the flow that
// issued it; the newtype exists to keep tickets from leaking into
// unrelated string parameters.
type Ticket string

// String returns the wire form of the ticket.
func (t Ticket) String() string { return string(t) }

// Property is an opaque key/value pair attached to a token or authorization
// code by the backend. Hidden properties are stored server-side but never
// exposed to the client application.
type Property struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Hidden bool   `json:"hidden,omitempty"`
}

// Credentials holds the service API key/secret pair used to authenticate
// against the backend. The Basic-Authentication form is derived once at
// construction and cached; the pair is immutable afterwards.
type Credentials struct {
	apiKey    string
	apiSecret string
	basic     string
}

// NewCredentials creates service credentials from an API key/secret pair.
func NewCredentials(apiKey, apiSecret string) Credentials {
	return Credentials{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		basic:     base64.StdEncoding.EncodeToString([]byte(apiKey + ":" + apiSecret)),
	}
}

// APIKey returns the service API key.
func (c Credentials) APIKey() string { return c.apiKey }

// Authorization returns the value for an Authorization header, e.g.
// "Basic czEyMzQ6c2VjcmV0".
func (c Credentials) Authorization() string { return "Basic " + c.basic }
