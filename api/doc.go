// Package api implements the typed client for the remote authorization
// decision backend. Each exported method on Client corresponds to one backend
// operation and returns a strongly-typed response carrying an Action
// discriminator plus pre-rendered response content.
//
// The client performs network I/O and JSON (de)serialization only; it never
// interprets actions. Interpreting an action into an HTTP response is the job
// of the handlers in the root package.
package api
