// Package testutil provides a scripted in-process authorization backend for
// tests. Each backend operation path is scripted with one or more responses,
// consumed in FIFO order, and every request body is recorded for assertions.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Backend is a scripted fake of the remote authorization backend.
type Backend struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	scripted  map[string][]scriptedResponse
	requests  map[string][]string
	callCount map[string]int
}

type scriptedResponse struct {
	status int
	header http.Header
	body   string
}

// NewBackend starts a scripted backend. It is shut down via t.Cleanup.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		t:         t,
		scripted:  make(map[string][]scriptedResponse),
		requests:  make(map[string][]string),
		callCount: make(map[string]int),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the backend's base address.
func (b *Backend) URL() string {
	return b.srv.URL
}

// Script queues a 200 response with the given JSON body for path. Responses
// queued for the same path are served in order; a path exhausting its script
// fails the test.
func (b *Backend) Script(path, body string) {
	b.ScriptStatus(path, http.StatusOK, body)
}

// ScriptStatus queues a response with an explicit status code for path.
func (b *Backend) ScriptStatus(path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripted[path] = append(b.scripted[path], scriptedResponse{status: status, body: body})
}

// ScriptRedirect queues a redirect response for path.
func (b *Backend) ScriptRedirect(path, location string) {
	header := http.Header{}
	header.Set("Location", location)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripted[path] = append(b.scripted[path], scriptedResponse{status: http.StatusFound, header: header})
}

// Requests returns the raw request bodies received on path, in order.
func (b *Backend) Requests(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests[path]...)
}

// Calls returns how many requests path has received.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callCount[path]
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	path := r.URL.Path
	b.requests[path] = append(b.requests[path], string(body))
	b.callCount[path]++
	queue := b.scripted[path]
	if len(queue) == 0 {
		b.mu.Unlock()
		b.t.Errorf("unscripted backend call: %s %s", r.Method, path)
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	next := queue[0]
	b.scripted[path] = queue[1:]
	b.mu.Unlock()

	for key, values := range next.header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if next.body != "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(next.status)
	_, _ = w.Write([]byte(next.body))
}
