package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/storage"
)

// TestAuthSubcommands tests that all auth subcommands are registered
func TestAuthSubcommands(t *testing.T) {
	subcommands := map[string]bool{
		"login":    false,
		"register": false,
		"logout":   false,
		"status":   false,
	}

	for _, cmd := range authCmd.Commands() {
		if _, exists := subcommands[cmd.Name()]; exists {
			subcommands[cmd.Name()] = true
		}
	}

	for name, found := range subcommands {
		if !found {
			t.Errorf("subcommand '%s' not found in auth command", name)
		}
	}

	for _, name := range []string{"email", "password"} {
		assert.NotNil(t, authLoginCmd.Flags().Lookup(name), "login --%s", name)
		assert.NotNil(t, authRegisterCmd.Flags().Lookup(name), "register --%s", name)
	}
}

func TestAuthLogin(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("auth", "login", "--email", testEmail, "--password", testPassword)
	assert.Contains(t, out, "Signed in as "+testEmail)
	assert.NotContains(t, out, "Continue with")

	token, ok := c.stored(storage.KeyToken)
	require.True(t, ok)
	assert.True(t, c.srv.TokenValid(token))

	out = c.mustRun("--format", "json", "auth", "status")
	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.True(t, view.Authenticated)
	assert.Equal(t, testEmail, view.Email)
	assert.Equal(t, c.srv.URL, view.Backend)
}

func TestAuthLogin_InvalidCredentials(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("auth", "login", "--email", testEmail, "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAuthInvalid, codeOf(t, err))
	assert.Contains(t, err.Error(), "Invalid credentials")

	_, ok := c.stored(storage.KeyToken)
	assert.False(t, ok)
}

func TestAuthLogin_MissingFieldsWithoutTerminal(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("auth", "login", "--email", testEmail)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, codeOf(t, err))
	assert.Contains(t, err.Error(), msgMissingFields)
	assert.Zero(t, c.srv.Count("POST", "/api/auth/login/"))
}

func TestAuthRegister(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("auth", "register", "--email", "new@example.com", "--password", "s3cret!")
	assert.Contains(t, out, "Account created.")
	assert.Contains(t, out, "Signed in as new@example.com")

	_, err := c.run("auth", "register", "--email", "new@example.com", "--password", "s3cret!")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAuthRegisterFailed, codeOf(t, err))
}

func TestGuardedCommandRemembersDestination(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("task", "list")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAuthRequired, codeOf(t, err))

	from, ok := c.stored(storage.KeyRedirect)
	require.True(t, ok)
	assert.Equal(t, "/dashboard/tasks", from)

	out := c.mustRun("auth", "login", "--email", testEmail, "--password", testPassword)
	assert.Contains(t, out, "Continue with: studyplan task list")

	_, ok = c.stored(storage.KeyRedirect)
	assert.False(t, ok, "destination is used once")
}

func TestExpiredCredentialIsRemoved(t *testing.T) {
	c := newCLI(t)
	c.login()

	token, _ := c.stored(storage.KeyToken)
	c.srv.RevokeToken(token)

	_, err := c.run("semester", "list")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAuthRequired, codeOf(t, err))

	_, ok := c.stored(storage.KeyToken)
	assert.False(t, ok)

	out := c.mustRun("auth", "status")
	assert.Contains(t, out, "signed out")
}

func TestAuthStatus_UnreachableBackend(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.srv.Drop("GET", "/api/auth/user/")

	_, err := c.run("auth", "status")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAuthUnverified, codeOf(t, err))

	_, ok := c.stored(storage.KeyToken)
	assert.True(t, ok, "a transient failure keeps the credential")
}

func TestAuthLogout(t *testing.T) {
	c := newCLI(t)
	c.login()
	token, _ := c.stored(storage.KeyToken)

	out := c.mustRun("auth", "logout")
	assert.Contains(t, out, "Signed out.")
	assert.False(t, c.srv.TokenValid(token))

	_, ok := c.stored(storage.KeyToken)
	assert.False(t, ok)

	out = c.mustRun("auth", "logout")
	assert.Contains(t, out, "Not signed in.")
}

func TestCommandFor(t *testing.T) {
	tests := map[string]string{
		"/dashboard":           "overview",
		"/dashboard/semesters": "semester list",
		"/dashboard/courses":   "course list",
		"/dashboard/tasks":     "task list",
		"/nowhere":             "overview",
	}
	for path, want := range tests {
		assert.Equal(t, want, commandFor(path), path)
	}
}
