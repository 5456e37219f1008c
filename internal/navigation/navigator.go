// Package navigation tracks the client's current location, the equivalent of
// the browser address bar for the terminal client.
package navigation

import (
	"strings"
	"sync"
)

// Well-known locations.
const (
	PathHome      = "/"
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathDashboard = "/dashboard"
	PathSemesters = "/dashboard/semesters"
	PathCourses   = "/dashboard/courses"
	PathTasks     = "/dashboard/tasks"
)

// IsAuthPage reports whether path is one of the authentication pages.
// Matching is by substring, so "/login?next=x" counts too.
func IsAuthPage(path string) bool {
	return strings.Contains(path, PathLogin) || strings.Contains(path, PathRegister)
}

// Clean normalizes a location: leading slash, no trailing slash, no query.
func Clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// State is attached to a navigation, like history state in a browser.
type State struct {
	// From is the destination a redirect interrupted.
	From string
}

// Location is the navigator's current position.
type Location struct {
	Path  string
	State State
	// Full is set by ForceNavigate: the client should discard in-memory page state.
	Full bool
}

// Navigator holds the current location and a back stack.
type Navigator struct {
	mu        sync.RWMutex
	current   Location
	history   []string
	listeners map[int]func(Location)
	nextID    int
}

// New returns a navigator positioned at initial.
func New(initial string) *Navigator {
	return &Navigator{
		current:   Location{Path: Clean(initial)},
		listeners: make(map[int]func(Location)),
	}
}

// Location returns the current path.
func (n *Navigator) Location() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current.Path
}

// Current returns the current location with its state.
func (n *Navigator) Current() Location {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

// Navigate pushes path onto the history.
func (n *Navigator) Navigate(path string, state State) {
	n.move(Location{Path: Clean(path), State: state}, true, false)
}

// Replace swaps the current entry for path.
func (n *Navigator) Replace(path string, state State) {
	n.move(Location{Path: Clean(path), State: state}, false, false)
}

// ForceNavigate performs a full navigation: history and state are dropped.
func (n *Navigator) ForceNavigate(path string) {
	n.move(Location{Path: Clean(path), Full: true}, false, true)
}

// Back pops the history. It reports false when there is nothing to go back to.
func (n *Navigator) Back() bool {
	n.mu.Lock()
	if len(n.history) == 0 {
		n.mu.Unlock()
		return false
	}
	prev := n.history[len(n.history)-1]
	n.history = n.history[:len(n.history)-1]
	n.current = Location{Path: prev}
	loc := n.current
	listeners := n.snapshotListeners()
	n.mu.Unlock()

	notify(listeners, loc)
	return true
}

// History returns a copy of the back stack, oldest first.
func (n *Navigator) History() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, len(n.history))
	copy(out, n.history)
	return out
}

// Subscribe registers fn for every location change. The returned func
// removes the subscription.
func (n *Navigator) Subscribe(fn func(Location)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

func (n *Navigator) move(loc Location, push, reset bool) {
	n.mu.Lock()
	switch {
	case reset:
		n.history = nil
	case push:
		n.history = append(n.history, n.current.Path)
	}
	n.current = loc
	listeners := n.snapshotListeners()
	n.mu.Unlock()

	notify(listeners, loc)
}

// snapshotListeners copies the listener set. Caller holds mu.
func (n *Navigator) snapshotListeners() []func(Location) {
	out := make([]func(Location), 0, len(n.listeners))
	for _, fn := range n.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(Location), loc Location) {
	for _, fn := range listeners {
		fn(loc)
	}
}
