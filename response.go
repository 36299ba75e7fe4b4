// Package authrelay implements the HTTP-facing endpoints of an OAuth 2.0 /
// OpenID Connect authorization server by delegating protocol decisions to a
// remote authorization backend. The Server type holds the endpoint logic;
// Handler is a thin net/http adapter over it.
package authrelay

import (
	"fmt"
	"net/http"
)

// Content types used by the endpoint responses.
const (
	contentTypeJSON       = "application/json"
	contentTypeHTML       = "text/html; charset=utf-8"
	contentTypeJWT        = "application/jwt"
	contentTypeJavaScript = "application/javascript"
)

// Response is a ready-to-send HTTP response: status, headers and body.
// Endpoint handlers return Response values instead of writing to a
// ResponseWriter directly so hosts on other HTTP stacks can adapt them.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// WriteTo writes the response to w.
func (r *Response) WriteTo(w http.ResponseWriter) {
	for key, values := range r.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(r.StatusCode)
	if r.Body != "" {
		_, _ = w.Write([]byte(r.Body))
	}
}

// newResponse creates a response with the cache-suppression headers every
// non-204/302 endpoint response carries.
func newResponse(status int, contentType, body string) *Response {
	header := http.Header{}
	header.Set("Cache-Control", "no-store")
	header.Set("Pragma", "no-cache")
	if contentType != "" && body != "" {
		header.Set("Content-Type", contentType)
	}
	return &Response{StatusCode: status, Header: header, Body: body}
}

func jsonResponse(status int, body string) *Response {
	return newResponse(status, contentTypeJSON, body)
}

func okJSON(body string) *Response {
	return jsonResponse(http.StatusOK, body)
}

func okHTML(body string) *Response {
	return newResponse(http.StatusOK, contentTypeHTML, body)
}

func okJWT(body string) *Response {
	return newResponse(http.StatusOK, contentTypeJWT, body)
}

func okJavaScript(body string) *Response {
	return newResponse(http.StatusOK, contentTypeJavaScript, body)
}

// locationResponse builds a 302 redirect. Redirects carry no cache headers;
// the target is a one-shot authorization response.
func locationResponse(location string) *Response {
	header := http.Header{}
	header.Set("Location", location)
	return &Response{StatusCode: http.StatusFound, Header: header}
}

func noContentResponse() *Response {
	return &Response{StatusCode: http.StatusNoContent, Header: http.Header{}}
}

// wwwAuthenticateResponse builds an auth-challenge response. The challenge
// goes into the WWW-Authenticate header; body is an optional JSON document.
func wwwAuthenticateResponse(status int, challenge, body string) *Response {
	res := newResponse(status, contentTypeJSON, body)
	res.Header.Set("WWW-Authenticate", challenge)
	return res
}

// unknownActionResponse is the shared last-line-of-defense fallback: the
// backend answered with an action outside the handler's known set. It must
// never itself fail, so it builds a plain JSON body from constants only.
func unknownActionResponse(path string) *Response {
	body := fmt.Sprintf(
		`{"error":"server_error","error_description":"Authorization backend returned an unknown action for %s"}`,
		path)
	return jsonResponse(http.StatusInternalServerError, body)
}
