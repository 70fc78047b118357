// Package adminauth is the authentication and authorization core of the
// admin backend: credential verification, signed access/refresh token
// issuance and revocation backed by Redis, and per-request policy
// enforcement.
//
// The package is the public surface. It exposes [Service], [Config], the
// collaborator interfaces ([IdentityStore], [LoginRecorder],
// [CaptchaDrawer]), and the error taxonomy the HTTP layer maps to status
// codes. Token encoding lives in package token, live-token state in package
// tokenstore, and authorization decisions in package policy; the relational
// storage for users, roles, and menus stays behind [IdentityStore].
//
// A Service is assembled once at process startup from explicitly
// constructed dependencies and is safe for concurrent use; there is no
// process-wide singleton state.
package adminauth
