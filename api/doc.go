// Package api exposes the authentication core over HTTP: the auth
// endpoints (login, captcha, token renewal, logout) and the administrative
// policy-rule endpoints, assembled into a gorilla/mux router with the
// session resolver, per-route permission gates, and rate limits applied.
package api
