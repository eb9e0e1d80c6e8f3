package guard

import (
	"strings"

	"github.com/MrEthical07/sikad/session"
)

// Action is what the caller should do with the requested route.
type Action uint8

const (
	// Defer means the session state is not known yet. Render nothing and wait.
	Defer Action = iota
	// Allow means the route may be shown.
	Allow
	// Redirect means the caller must replace the route with Decision.Target.
	Redirect
)

func (a Action) String() string {
	switch a {
	case Defer:
		return "defer"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "invalid"
	}
}

// Decision is the outcome of [Decide].
type Decision struct {
	Action Action
	Target string
}

// Routes names the public entry points and the authenticated landing route.
type Routes struct {
	Login    string
	Register string
	Home     string
}

// DefaultRoutes returns the routes used by the mobile app.
func DefaultRoutes() Routes {
	return Routes{Login: "/login", Register: "/register", Home: "/(tabs)"}
}

func (r Routes) withDefaults() Routes {
	d := DefaultRoutes()
	if r.Login == "" {
		r.Login = d.Login
	}
	if r.Register == "" {
		r.Register = d.Register
	}
	if r.Home == "" {
		r.Home = d.Home
	}
	return r
}

// Public reports whether path is one of the routes reachable without a session.
func (r Routes) Public(path string) bool {
	r = r.withDefaults()
	p := normalize(path)
	return p == normalize(r.Login) || p == normalize(r.Register)
}

// Decide maps a session state and route to an action.
//
//	unknown                      -> defer
//	anonymous, non-public route  -> redirect to login
//	authenticated, public route  -> redirect to home
//	otherwise                    -> allow
func Decide(state session.State, path string, routes Routes) Decision {
	routes = routes.withDefaults()
	switch state {
	case session.StateAuthenticated:
		if routes.Public(path) {
			return Decision{Action: Redirect, Target: routes.Home}
		}
		return Decision{Action: Allow}
	case session.StateAnonymous:
		if routes.Public(path) {
			return Decision{Action: Allow}
		}
		return Decision{Action: Redirect, Target: routes.Login}
	default:
		return Decision{Action: Defer}
	}
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
