// Package api is the HTTP client for the SIKAD backend.
//
// Every operation returns a [Response] in the backend's envelope shape
// {success, data?, message?}. Transport failures, timeouts, non-2xx statuses and
// malformed bodies are folded into that shape instead of being returned as Go errors,
// so callers branch on Response.Success and show Response.Message.
//
// # Architecture boundaries
//
// The client is stateless beyond its configuration: it never stores tokens. Callers
// pass the bearer token explicitly on each call.
//
// # What this package must NOT do
//
//   - Persist anything or read the session store.
//   - Retry requests. A failure surfaces once and the caller decides.
//   - Panic or return raw transport errors from an operation.
package api
