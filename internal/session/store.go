// Package session holds the client's authentication state: who the user is,
// whether that is still being determined, and the operations that change it.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/storage"
)

// State of the session.
type State int

const (
	// StateUnknown: the persisted credential has not been checked yet.
	StateUnknown State = iota
	// StateAnonymous: no identity.
	StateAnonymous
	// StateAuthenticated: the backend confirmed the identity.
	StateAuthenticated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a consistent view of the session.
type Snapshot struct {
	State   State
	Loading bool
	User    *api.User
	// Unverified is set when a persisted credential exists but could not be
	// checked because the backend was unreachable or failed.
	Unverified bool
	// Err is the failure that left the session unverified.
	Err error
}

// Authenticated reports whether an identity is present.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// Navigator is where the store sends the user when the session ends.
type Navigator interface {
	Location() string
	ForceNavigate(path string)
}

// AuthClient is the part of the API client the store drives.
type AuthClient interface {
	Register(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*api.User, error)
	SetToken(token string)
	ClearToken()
	OnUnauthorized(fn func(api.UnauthorizedEvent)) func()
}

// Store owns the credential and the session state machine.
//
// Boot, Register, Login, Logout and Revalidate are serialized. Snapshots are
// never taken mid-operation, so a caller cannot observe a stored credential
// without the identity it belongs to.
type Store struct {
	client AuthClient
	creds  storage.Store
	nav    Navigator
	logger *log.Logger

	// opMu serializes operations. It is never taken by the unauthorized
	// handler, which runs synchronously inside requests made under opMu.
	opMu sync.Mutex

	mu        sync.RWMutex
	snap      Snapshot
	listeners map[int]func(Snapshot)
	nextID    int

	detach func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a store in StateUnknown and subscribes it to the client's
// unauthorized events.
func New(client AuthClient, creds storage.Store, nav Navigator, opts ...Option) *Store {
	s := &Store{
		client:    client,
		creds:     creds,
		nav:       nav,
		snap:      Snapshot{State: StateUnknown, Loading: true},
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}

	s.detach = client.OnUnauthorized(s.handleUnauthorized)
	return s
}

// Close unsubscribes from the client.
func (s *Store) Close() {
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers fn for every state change. The returned func
// unregisters it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Boot resolves StateUnknown. Without a persisted credential the session is
// anonymous. Otherwise the credential is validated: success authenticates,
// a 401 discards the credential. Any other failure leaves the session
// anonymous but unverified, keeps the credential, and returns the error.
func (s *Store) Boot(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	token, ok := s.creds.Get(storage.KeyToken)
	if !ok || token == "" {
		s.logger.Debug("no persisted credential")
		s.set(Snapshot{State: StateAnonymous})
		return nil
	}

	s.client.SetToken(token)
	return s.validate(ctx)
}

// Revalidate re-runs credential validation, typically after Boot left the
// session unverified. The session is unknown and loading while the check
// runs.
func (s *Store) Revalidate(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	token, ok := s.creds.Get(storage.KeyToken)
	if !ok || token == "" {
		s.set(Snapshot{State: StateAnonymous})
		return nil
	}

	s.set(Snapshot{State: StateUnknown, Loading: true})
	s.client.SetToken(token)
	return s.validate(ctx)
}

func (s *Store) validate(ctx context.Context) error {
	user, err := s.client.CurrentUser(ctx)
	switch {
	case err == nil:
		s.logger.Debug("credential validated", "email", user.Email)
		s.set(Snapshot{State: StateAuthenticated, User: user})
		return nil

	case api.IsUnauthorized(err):
		s.logger.Info("persisted credential rejected")
		s.clearCredential()
		s.set(Snapshot{State: StateAnonymous})
		return nil

	default:
		s.logger.WithError(err).Warn("credential could not be validated")
		s.set(Snapshot{State: StateAnonymous, Unverified: true, Err: err})
		return err
	}
}

// Register creates an account and signs in with it. It returns only once the
// identity is known. On failure the session is unchanged and the error is
// returned for display.
func (s *Store) Register(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "register", s.client.Register, email, password)
}

// Login signs in. Same sequencing as Register.
func (s *Store) Login(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "login", s.client.Login, email, password)
}

type authFunc func(ctx context.Context, email, password string) (*api.AuthResponse, error)

func (s *Store) authenticate(ctx context.Context, op string, fn authFunc, email, password string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	logger := s.logger.With("op", op)

	resp, err := fn(ctx, email, password)
	if err != nil {
		logger.Debug("authentication rejected", "error", err)
		return err
	}

	if err := s.creds.Set(storage.KeyToken, resp.Token); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	s.client.SetToken(resp.Token)

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		logger.WithError(err).Warn("validation after sign-in failed, rolling back")
		s.clearCredential()
		s.set(Snapshot{State: StateAnonymous})
		return err
	}

	logger.Info("signed in", "email", user.Email)
	s.set(Snapshot{State: StateAuthenticated, User: user})
	return nil
}

// Logout ends the session. The server-side logout is best effort; locally the
// credential is always removed and the user is sent to the login page.
func (s *Store) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.client.Logout(ctx); err != nil {
		s.logger.WithError(err).Warn("server logout failed", "location", s.nav.Location())
	}

	s.clearCredential()
	s.set(Snapshot{State: StateAnonymous})
	s.nav.ForceNavigate(navigation.PathLogin)
}

// handleUnauthorized runs when any request is rejected with 401 outside the
// authentication pages.
func (s *Store) handleUnauthorized(ev api.UnauthorizedEvent) {
	s.logger.Info("session invalidated by backend", "method", ev.Method, "path", ev.Path, "location", ev.Location)

	s.clearCredential()
	s.set(Snapshot{State: StateAnonymous})
	s.nav.ForceNavigate(navigation.PathLogin)
}

func (s *Store) clearCredential() {
	if err := s.creds.Remove(storage.KeyToken); err != nil {
		s.logger.WithError(err).Error("failed to remove persisted credential")
	}
	s.client.ClearToken()
}

func (s *Store) set(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
