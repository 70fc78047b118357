// Package token encodes and decodes the signed bearer tokens issued to
// authenticated principals. Both access and refresh tokens are JWTs carrying
// the subject id, the token kind, and the issue/expiry instants; the codec is
// pure and stateless, and liveness of an issued token is tracked separately
// by the Redis token store.
package token
