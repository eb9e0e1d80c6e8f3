// Package storage provides the string-keyed persistence backends used by the session
// store to keep the auth token and the cached profile blob between process runs.
//
// # Backends
//
//   - [Memory]: process-local map, for tests and ephemeral clients.
//   - [File]: single JSON document on disk, optionally sealed with a passphrase.
//   - [Redis]: shared key namespace for agents and kiosks that run on several hosts.
//
// # Architecture boundaries
//
// This package stores opaque strings. It does NOT know what a token or a profile is,
// and it never talks to the SIKAD backend.
//
// # What this package must NOT do
//
//   - Import sikad, session, or api (no upward imports).
//   - Write anything outside the configured file path or key prefix.
package storage
