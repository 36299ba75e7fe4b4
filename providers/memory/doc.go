// Package memory provides an in-memory user store implementing the
// authenticator and claim provider SPIs. Passwords are stored as bcrypt
// hashes. The store suits examples, tests and small single-process
// deployments; anything larger should implement the SPIs against a real
// user database.
package memory
