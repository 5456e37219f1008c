// Package router decides what the client shows for a location given the
// session state.
package router

import (
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/session"
)

// Kind of routing decision.
type Kind int

const (
	// DecisionRender: show the destination.
	DecisionRender Kind = iota
	// DecisionInterstitial: the session is still loading; show a placeholder
	// and decide later.
	DecisionInterstitial
	// DecisionRedirect: go to Decision.To instead.
	DecisionRedirect
)

// String returns the decision name.
func (k Kind) String() string {
	switch k {
	case DecisionRender:
		return "render"
	case DecisionInterstitial:
		return "interstitial"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the outcome of routing.
type Decision struct {
	Kind Kind
	// To is the redirect target.
	To string
	// From is the destination the redirect interrupted, restored after login.
	From string
}

// Guard gates a protected destination. It only reads snap.
func Guard(snap session.Snapshot, destination string) Decision {
	switch {
	case snap.Loading:
		return Decision{Kind: DecisionInterstitial}
	case snap.User == nil:
		return Decision{Kind: DecisionRedirect, To: navigation.PathLogin, From: destination}
	default:
		return Decision{Kind: DecisionRender}
	}
}
