// Package auth issues and verifies the HS256 tokens that gate chat sessions
// when JWT_SECRET is configured.
//
// A token carries the caller's subject, username and role. On an
// authenticated connection the first frame must be {"token":"<jwt>"}; the
// verified username then replaces whatever author the client sends.
package auth
