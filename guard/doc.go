// Package guard decides, on every navigation, whether the current route may be shown.
//
// [Decide] is a pure function of session state and path. [Guard] wires it to a
// session store and a [Navigator]: it re-verifies authenticated sessions before
// deciding and re-evaluates whenever the store's state changes. [Handler] applies the
// same decision to HTTP requests for server-rendered frontends.
//
// # What this package must NOT do
//
//   - Read or write persisted session records.
//   - Allow an authenticated-only route while the store is anonymous.
package guard
