package tui

import (
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/session"
)

// SessionMsg carries a session store transition.
type SessionMsg struct {
	Snapshot session.Snapshot
}

// LocationMsg carries a navigator move made outside the dashboard, such as
// the forced return to the sign-in page after a rejected credential.
type LocationMsg struct {
	Location navigation.Location
}

type bootedMsg struct {
	err error
}

type authDoneMsg struct {
	err error
}

type loggedOutMsg struct{}

// loadedMsg reports a finished page load. page identifies the view that
// loaded, so results for a page the user already left are ignored.
type loadedMsg struct {
	page page
	err  error
}

type mutatedMsg struct {
	page page
	note string
	err  error
}
