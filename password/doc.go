// Package password hashes and verifies login credentials. The identity
// store keeps a per-account random salt alongside the hash; the salt is
// appended to the submitted password before hashing, matching the stored
// credential format of the admin backend.
package password
