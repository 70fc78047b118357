// Package middleware wires the authentication core into the HTTP request
// path: the session resolver that turns a bearer token into a request
// principal, the explicit per-route permission gate, and the rate limiter
// protecting the unauthenticated auth endpoints.
package middleware
