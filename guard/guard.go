package guard

import (
	"context"
	"sync"

	"github.com/MrEthical07/sikad/session"
)

// SessionSource is the part of [*session.Store] the guard needs.
type SessionSource interface {
	State() session.State
	VerifySession(ctx context.Context) bool
	Subscribe() (<-chan session.State, func())
}

// Navigator replaces the current route without adding a history entry.
type Navigator interface {
	Replace(target string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(target string)

func (f NavigatorFunc) Replace(target string) { f(target) }

// Guard runs [Decide] on route changes and performs the redirects.
type Guard struct {
	source SessionSource
	nav    Navigator
	routes Routes

	mu   sync.Mutex
	last Decision
}

// New returns a guard. A nil navigator only records decisions.
func New(source SessionSource, nav Navigator, routes Routes) *Guard {
	return &Guard{source: source, nav: nav, routes: routes.withDefaults()}
}

// Routes returns the configured routes.
func (g *Guard) Routes() Routes {
	return g.routes
}

// OnRouteChange evaluates path. An authenticated session is re-verified first, which
// is free while the last verification is fresh.
func (g *Guard) OnRouteChange(ctx context.Context, path string) Decision {
	if g.source.State() == session.StateAuthenticated {
		g.source.VerifySession(ctx)
	}
	return g.apply(Decide(g.source.State(), path, g.routes))
}

func (g *Guard) apply(d Decision) Decision {
	g.mu.Lock()
	g.last = d
	g.mu.Unlock()
	if d.Action == Redirect && g.nav != nil {
		g.nav.Replace(d.Target)
	}
	return d
}

// Last returns the most recent decision.
func (g *Guard) Last() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Watch re-evaluates currentPath on every store state change until ctx ends. A
// logout anywhere in the app therefore lands on the login route.
func (g *Guard) Watch(ctx context.Context, currentPath func() string) {
	states, cancel := g.source.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			g.apply(Decide(st, currentPath(), g.routes))
		}
	}
}
