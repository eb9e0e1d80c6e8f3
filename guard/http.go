package guard

import (
	"net/http"

	"github.com/MrEthical07/sikad/session"
)

// Handler enforces the guard on server-rendered routes. Deferred requests get 503 with
// Retry-After so the client polls until the session state is known.
func Handler(source SessionSource, routes Routes, next http.Handler) http.Handler {
	routes = routes.withDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if source == nil {
			http.Redirect(w, r, routes.Login, http.StatusFound)
			return
		}
		if source.State() == session.StateAuthenticated {
			source.VerifySession(r.Context())
		}
		d := Decide(source.State(), r.URL.Path, routes)
		switch d.Action {
		case Allow:
			next.ServeHTTP(w, r)
		case Redirect:
			http.Redirect(w, r, d.Target, http.StatusFound)
		default:
			w.Header().Set("Retry-After", "1")
			http.Error(w, "session state pending", http.StatusServiceUnavailable)
		}
	})
}
