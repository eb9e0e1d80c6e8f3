// Package session is the single source of truth for whether a user is signed in.
//
// A [Store] holds the bearer token and cached profile in memory, mirrors them into a
// [storage.Storage], and moves between three states: [StateUnknown] before start-up
// restoration, then [StateAnonymous] or [StateAuthenticated].
//
// # Persisted records
//
// Two records are written: the raw token and a versioned JSON profile record. The
// profile is written before the token and removed together with it, so a stored token
// never lacks its profile. Records from older versions are migrated on read.
//
// # Failure policy
//
// Every verification failure fails closed: memory and storage are cleared and the
// store becomes anonymous. A generation counter, bumped whenever the session is
// replaced or cleared, discards results that arrive for a session that no longer exists.
//
// # What this package must NOT do
//
//   - Navigate or decide routes. That belongs to package guard.
//   - Retry backend calls.
//   - Let any other component write the token or profile records.
package session
