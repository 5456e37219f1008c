package router

import (
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/session"
)

// SessionSource provides session snapshots.
type SessionSource interface {
	Snapshot() session.Snapshot
}

// Router applies routing decisions to a navigator.
type Router struct {
	nav     *navigation.Navigator
	session SessionSource
}

// New returns a router driving nav.
func New(nav *navigation.Navigator, sess SessionSource) *Router {
	return &Router{nav: nav, session: sess}
}

// Go navigates to path and follows redirects until a route renders or the
// session is still loading. The final resolution is returned.
func (r *Router) Go(path string) Resolution {
	r.nav.Navigate(navigation.Clean(path), navigation.State{})
	return r.Settle()
}

// Settle re-resolves the current location, following redirects. Call it
// after the session changes.
func (r *Router) Settle() Resolution {
	// Bounded in case the table ever gains a redirect cycle.
	for range len(Routes) + 1 {
		loc := r.nav.Current()
		res := Resolve(r.session.Snapshot(), loc.Path)
		if res.Decision.Kind != DecisionRedirect {
			return res
		}

		to := res.Decision.To
		state := navigation.State{From: res.Decision.From}
		switch {
		case res.Route.Public && to == navigation.PathDashboard && loc.State.From != "":
			to = AfterLogin(loc.State.From)
		case state.From == "" && loc.State.From != "" && to == navigation.PathLogin:
			state.From = loc.State.From
		}
		r.nav.Replace(to, state)
	}
	return Resolve(r.session.Snapshot(), r.nav.Location())
}

// CompleteLogin sends an authenticated session to the remembered destination.
// It is a no-op when a settle already moved past the sign-in page.
func (r *Router) CompleteLogin() Resolution {
	loc := r.nav.Current()
	if route, ok := Lookup(loc.Path); !ok || !route.Guarded {
		r.nav.Replace(AfterLogin(loc.State.From), navigation.State{})
	}
	return r.Settle()
}
