// Package tokenstore tracks which issued tokens are still live in a shared
// Redis keyspace. A token's store record is authoritative: signature-valid
// tokens whose record has expired or been revoked are rejected.
//
// # Key layout
//
// All keys are colon-delimited and namespaced by the configured app name:
//
//	{app}_access_token:{subject}:{token}          TTL = access lifetime
//	{app}_access_refresh_token:{subject}:{token}  TTL = refresh lifetime
//	{app}_login_captcha:{network-identity}        TTL = captcha window
//
// The `{prefix}:{subject}:` slice of the keyspace is the unit of bulk
// revocation: deleting every key under it invalidates all live tokens of
// that kind for that subject.
package tokenstore
