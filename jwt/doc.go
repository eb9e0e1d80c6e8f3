// Package jwt reads SIKAD bearer tokens without verifying them, so the client can
// drop a session whose token has already expired before spending a network round-trip,
// and signs tokens for the in-repo test backend.
//
// # Architecture boundaries
//
// Inspection never establishes trust: only the backend's session endpoint decides
// whether a token is valid. Opaque (non-JWT) tokens are reported with [ErrNotJWT] and
// must be treated as "expiry unknown".
package jwt
