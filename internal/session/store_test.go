package session

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/apitest"
	"github.com/felixgeelhaar/studyplan/internal/mocks"
	"github.com/felixgeelhaar/studyplan/internal/storage"
)

const (
	email    = "student@example.com"
	password = "pw123"
)

type fixture struct {
	srv    *apitest.Server
	creds  *storage.MemoryStore
	nav    *mocks.MockNavigator
	client *api.Client
	store  *Store
}

// newFixture wires a store to the fake backend. token, when non-empty, is
// persisted before the client is constructed, like a credential left over
// from a previous run.
func newFixture(t *testing.T, location, token string) *fixture {
	t.Helper()

	srv := apitest.NewServer(t)
	srv.AddUser(email, password)

	creds := storage.NewMemoryStore()
	if token != "" {
		require.NoError(t, creds.Set(storage.KeyToken, token))
	}

	ctrl := gomock.NewController(t)
	nav := mocks.NewMockNavigator(ctrl)
	nav.EXPECT().Location().Return(location).AnyTimes()

	client := api.New(api.Config{BaseURL: srv.URL}, api.WithCredentials(creds), api.WithLocator(nav))
	store := New(client, creds, nav)
	t.Cleanup(store.Close)

	return &fixture{srv: srv, creds: creds, nav: nav, client: client, store: store}
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func record(s *Store) *recorder {
	r := &recorder{}
	s.Subscribe(func(snap Snapshot) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.snaps = append(r.snaps, snap)
	})
	return r
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func TestNew_StartsUnknownAndLoading(t *testing.T) {
	f := newFixture(t, "/", "")

	snap := f.store.Snapshot()
	assert.Equal(t, StateUnknown, snap.State)
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.User)
	assert.False(t, snap.Authenticated())
}

func TestBoot_NoCredential(t *testing.T) {
	f := newFixture(t, "/dashboard", "")
	rec := record(f.store)

	require.NoError(t, f.store.Boot(context.Background()))

	snap := f.store.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.User)
	for _, s := range rec.all() {
		assert.NotEqual(t, StateAuthenticated, s.State)
	}
	assert.Zero(t, f.srv.Count(http.MethodGet, api.PathUser))
}

func TestBoot_ValidCredential(t *testing.T) {
	f := newFixture(t, "/dashboard", "")
	token := f.srv.IssueToken(email)
	require.NoError(t, f.creds.Set(storage.KeyToken, token))

	require.NoError(t, f.store.Boot(context.Background()))

	snap := f.store.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	assert.Equal(t, email, snap.User.Email)
	assert.Equal(t, "Token "+token, f.client.Header(api.HeaderAuthorization))
}

func TestBoot_PersistedCredentialSentBeforeValidation(t *testing.T) {
	f := newFixture(t, "/dashboard", "")
	token := f.srv.IssueToken(email)
	require.NoError(t, f.creds.Set(storage.KeyToken, token))

	// A client constructed after the credential was persisted carries it
	// from the first request.
	client := api.New(api.Config{BaseURL: f.srv.URL}, api.WithCredentials(f.creds))
	_, err := client.CurrentUser(context.Background())
	require.NoError(t, err)

	reqs := f.srv.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "Token "+token, reqs[len(reqs)-1].Authorization)
}

func TestBoot_RejectedCredential(t *testing.T) {
	f := newFixture(t, "/dashboard/tasks", "stale-token")
	f.nav.EXPECT().ForceNavigate("/login").MinTimes(1)

	require.NoError(t, f.store.Boot(context.Background()))

	snap := f.store.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.False(t, snap.Loading)
	assert.False(t, snap.Unverified)

	_, ok := f.creds.Get(storage.KeyToken)
	assert.False(t, ok)
	assert.Empty(t, f.client.Header(api.HeaderAuthorization))
}

func TestBoot_TransientFailureKeepsCredential(t *testing.T) {
	f := newFixture(t, "/dashboard", "")
	token := f.srv.IssueToken(email)
	require.NoError(t, f.creds.Set(storage.KeyToken, token))

	f.srv.Fail(http.MethodGet, api.PathUser, http.StatusInternalServerError, `{"detail":"boom"}`)

	err := f.store.Boot(context.Background())
	require.Error(t, err)
	assert.Equal(t, api.KindServer, api.KindOf(err))

	snap := f.store.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.True(t, snap.Unverified)
	assert.Error(t, snap.Err)
	assert.False(t, snap.Authenticated())

	stored, ok := f.creds.Get(storage.KeyToken)
	require.True(t, ok)
	assert.Equal(t, token, stored)

	f.srv.Restore(http.MethodGet, api.PathUser)
	require.NoError(t, f.store.Revalidate(context.Background()))

	snap = f.store.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.False(t, snap.Unverified)
	assert.NoError(t, snap.Err)
}

func TestRevalidate_LoadsWhileChecking(t *testing.T) {
	f := newFixture(t, "/dashboard", "")
	token := f.srv.IssueToken(email)
	require.NoError(t, f.creds.Set(storage.KeyToken, token))

	f.srv.Fail(http.MethodGet, api.PathUser, http.StatusInternalServerError, `{"detail":"boom"}`)
	require.Error(t, f.store.Boot(context.Background()))
	f.srv.Restore(http.MethodGet, api.PathUser)

	rec := record(f.store)
	require.NoError(t, f.store.Revalidate(context.Background()))

	snaps := rec.all()
	require.Len(t, snaps, 2)
	assert.Equal(t, Snapshot{State: StateUnknown, Loading: true}, snaps[0])
	assert.Equal(t, StateAuthenticated, snaps[1].State)
	assert.False(t, snaps[1].Loading)
}

func TestRevalidate_WithoutCredential(t *testing.T) {
	f := newFixture(t, "/", "")
	require.NoError(t, f.store.Boot(context.Background()))

	rec := record(f.store)
	require.NoError(t, f.store.Revalidate(context.Background()))

	assert.Equal(t, []Snapshot{{State: StateAnonymous}}, rec.all())
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t, "/login", "")
	require.NoError(t, f.store.Boot(context.Background()))
	rec := record(f.store)

	require.NoError(t, f.store.Login(context.Background(), email, password))

	snap := f.store.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.User)
	assert.Equal(t, email, snap.User.Email)

	token, ok := f.creds.Get(storage.KeyToken)
	require.True(t, ok)
	assert.True(t, f.srv.TokenValid(token))
	assert.Equal(t, "Token "+token, f.client.Header(api.HeaderAuthorization))

	// No published snapshot is authenticated without an identity.
	snaps := rec.all()
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].Authenticated())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t, "/login", "")
	require.NoError(t, f.store.Boot(context.Background()))
	rec := record(f.store)

	err := f.store.Login(context.Background(), email, "wrong")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, "Invalid credentials", api.FormMessage(err, "Failed to login"))

	assert.Equal(t, StateAnonymous, f.store.Snapshot().State)
	assert.Empty(t, rec.all())
	_, ok := f.creds.Get(storage.KeyToken)
	assert.False(t, ok)
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t, "/login", "")
	require.NoError(t, f.store.Boot(context.Background()))

	err := f.store.Login(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.Equal(t, "Please provide both email and password", api.FormMessage(err, "Failed to login"))
}

func TestLogin_ValidationFailureRollsBack(t *testing.T) {
	f := newFixture(t, "/login", "")
	require.NoError(t, f.store.Boot(context.Background()))
	f.srv.Fail(http.MethodGet, api.PathUser, http.StatusBadGateway, "")

	err := f.store.Login(context.Background(), email, password)
	require.Error(t, err)

	snap := f.store.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	_, ok := f.creds.Get(storage.KeyToken)
	assert.False(t, ok)
	assert.Empty(t, f.client.Header(api.HeaderAuthorization))
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t, "/register", "")
	require.NoError(t, f.store.Boot(context.Background()))

	require.NoError(t, f.store.Register(context.Background(), "new@example.com", "secret"))

	snap := f.store.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	require.NotNil(t, snap.User)
	assert.Equal(t, "new@example.com", snap.User.Email)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t, "/register", "")
	require.NoError(t, f.store.Boot(context.Background()))

	err := f.store.Register(context.Background(), email, "other")
	require.Error(t, err)
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.Equal(t, "email: user with this email already exists.", api.FormMessage(err, "Failed to register"))
	assert.Equal(t, StateAnonymous, f.store.Snapshot().State)
}

// newTestServer starts an HTTP server bound to IPv4-only loopback so tests work
// inside restricted sandboxes that forbid IPv6 listeners.
func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server: %v", err)
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}

func TestRegister_ConcreteScenario(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case api.PathRegister:
			var creds api.Credentials
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Email != "a@b.com" || creds.Password != "pw123" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"token":"abc"}`))
		case api.PathUser:
			if r.Header.Get(api.HeaderAuthorization) != "Token abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"email":"a@b.com"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	ctrl := gomock.NewController(t)
	nav := mocks.NewMockNavigator(ctrl)
	nav.EXPECT().Location().Return("/register").AnyTimes()

	creds := storage.NewMemoryStore()
	client := api.New(api.Config{BaseURL: srv.URL}, api.WithCredentials(creds), api.WithLocator(nav))
	store := New(client, creds, nav)
	defer store.Close()

	require.NoError(t, store.Boot(context.Background()))
	require.NoError(t, store.Register(context.Background(), "a@b.com", "pw123"))

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.User)
	assert.Equal(t, "a@b.com", snap.User.Email)
	assert.Equal(t, "Token abc", client.Header(api.HeaderAuthorization))

	token, _ := creds.Get(storage.KeyToken)
	assert.Equal(t, "abc", token)
}

func TestUnauthorized_OutsideAuthPages(t *testing.T) {
	f := newFixture(t, "/dashboard/tasks", "")
	require.NoError(t, f.store.Login(context.Background(), email, password))
	token, _ := f.creds.Get(storage.KeyToken)

	f.nav.EXPECT().ForceNavigate("/login").Times(1)
	f.srv.RevokeToken(token)

	_, err := f.client.ListTasks(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	_, ok := f.creds.Get(storage.KeyToken)
	assert.False(t, ok)
	assert.Empty(t, f.client.Header(api.HeaderAuthorization))
	assert.Equal(t, StateAnonymous, f.store.Snapshot().State)
}

func TestUnauthorized_OnAuthPagesIsIgnored(t *testing.T) {
	for _, loc := range []string{"/login", "/register"} {
		t.Run(loc, func(t *testing.T) {
			f := newFixture(t, loc, "")
			require.NoError(t, f.store.Login(context.Background(), email, password))
			token, _ := f.creds.Get(storage.KeyToken)
			f.srv.RevokeToken(token)

			_, err := f.client.ListSemesters(context.Background())
			require.Error(t, err)

			stored, ok := f.creds.Get(storage.KeyToken)
			assert.True(t, ok)
			assert.Equal(t, token, stored)
			assert.Equal(t, StateAuthenticated, f.store.Snapshot().State)
		})
	}
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name       string
		failServer bool
	}{
		{"server succeeds", false},
		{"server fails", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "/dashboard", "")
			require.NoError(t, f.store.Login(context.Background(), email, password))
			token, _ := f.creds.Get(storage.KeyToken)

			if tt.failServer {
				f.srv.Fail(http.MethodPost, api.PathLogout, http.StatusInternalServerError, `{"detail":"down"}`)
			}
			f.nav.EXPECT().ForceNavigate("/login").Times(1)

			f.store.Logout(context.Background())

			snap := f.store.Snapshot()
			assert.Equal(t, StateAnonymous, snap.State)
			assert.Nil(t, snap.User)
			_, ok := f.creds.Get(storage.KeyToken)
			assert.False(t, ok)
			assert.Empty(t, f.client.Header(api.HeaderAuthorization))
			assert.Equal(t, tt.failServer, f.srv.TokenValid(token))
		})
	}
}

func TestLogout_NetworkFailure(t *testing.T) {
	f := newFixture(t, "/dashboard", "")
	require.NoError(t, f.store.Login(context.Background(), email, password))

	f.srv.Drop(http.MethodPost, api.PathLogout)
	f.nav.EXPECT().ForceNavigate("/login").Times(1)

	f.store.Logout(context.Background())

	assert.Equal(t, StateAnonymous, f.store.Snapshot().State)
	_, ok := f.creds.Get(storage.KeyToken)
	assert.False(t, ok)
}

func TestLogin_PersistFailure(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser(email, password)

	ctrl := gomock.NewController(t)
	nav := mocks.NewMockNavigator(ctrl)
	nav.EXPECT().Location().Return("/login").AnyTimes()

	creds := mocks.NewMockStore(ctrl)
	creds.EXPECT().Get(storage.KeyToken).Return("", false).AnyTimes()
	creds.EXPECT().Set(storage.KeyToken, gomock.Any()).Return(errors.New("disk full"))

	client := api.New(api.Config{BaseURL: srv.URL}, api.WithCredentials(creds), api.WithLocator(nav))
	store := New(client, creds, nav)
	defer store.Close()

	require.NoError(t, store.Boot(context.Background()))

	err := store.Login(context.Background(), email, password)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, StateAnonymous, store.Snapshot().State)
	assert.Empty(t, client.Header(api.HeaderAuthorization))
}

func TestClose_StopsListening(t *testing.T) {
	f := newFixture(t, "/dashboard", "")
	require.NoError(t, f.store.Login(context.Background(), email, password))
	token, _ := f.creds.Get(storage.KeyToken)

	f.store.Close()
	f.srv.RevokeToken(token)

	_, err := f.client.ListCourses(context.Background())
	require.Error(t, err)

	// Detached: the credential survives and no navigation happens.
	_, ok := f.creds.Get(storage.KeyToken)
	assert.True(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "anonymous", StateAnonymous.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "State(9)", State(9).String())
}
