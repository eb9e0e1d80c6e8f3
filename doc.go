// Package sikad is a client for the SIKAD clinical-rotation attendance and logbook
// backend. It wraps the HTTP API, keeps the signed-in session in pluggable storage,
// and decides which routes a caller may see.
//
// Engine methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// sikad is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (MetricsSnapshot, SecurityReport, RequestError). The wire protocol lives in
// api, the session lifecycle in session, navigation decisions in guard, and
// persistence in storage. Audit dispatch lives under internal/ and is never exported
// directly.
//
// # Session contract
//
// A session is persisted only after both the token exchange and the profile fetch
// succeed. Any verification failure clears it from memory and storage, so the guard
// sends the caller back to the login route. Logout clears local state even when the
// backend cannot be reached.
//
// # Errors
//
// Backend failures come back as [*RequestError], form problems as
// [*ValidationError]. [Message] turns either into the text a screen should show.
package sikad
