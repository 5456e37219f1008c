package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/contract"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/health"
	"github.com/felixgeelhaar/studyplan/internal/storage"
)

func TestConfigCommands(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("config", "path")
	assert.Equal(t, filepath.Join(c.home, config.FileName), strings.TrimSpace(out))

	out = c.mustRun("config", "get", "api.timeout")
	assert.Equal(t, config.DefaultAPITimeout.String(), strings.TrimSpace(out))

	out = c.mustRun("config", "set", "api.timeout", "45s")
	assert.Contains(t, out, "✓ Set api.timeout = 45s")

	out = c.mustRun("config", "get", "api.timeout")
	assert.Equal(t, "45s", strings.TrimSpace(out))

	view := decode[configView](t, c.mustRun("--format", "json", "config", "view"))
	assert.Equal(t, filepath.Join(c.home, config.FileName), view.Path)
	assert.Equal(t, "45s", view.Values["api.timeout"])
	assert.Len(t, view.Values, len(config.Keys()))

	out = c.mustRun("config", "view")
	assert.Contains(t, out, "Configuration file: ")
	assert.Contains(t, out, "api.timeout")
}

func TestConfigSet_Errors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("config", "set", "providers.default", "ollama")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigKey, codeOf(t, err))

	_, err = c.run("config", "set", "api.url", "localhost")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, codeOf(t, err))
}

func TestAPICommands(t *testing.T) {
	c := newCLI(t)

	endpoints := decode[[]contract.Endpoint](t, c.mustRun("--format", "json", "api", "endpoints"))
	require.NotEmpty(t, endpoints)
	var login *contract.Endpoint
	for i := range endpoints {
		if endpoints[i].Path == "/api/auth/login/" {
			login = &endpoints[i]
		}
	}
	require.NotNil(t, login)
	assert.True(t, login.Public)

	out := c.mustRun("api", "check", "patch", "/api/dashboard/tasks/7/")
	assert.Contains(t, out, "✓ PATCH /api/dashboard/tasks/7/")

	_, err := c.run("api", "check", "GET", "/api/nowhere/")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, codeOf(t, err))
}

func TestVersionCommand(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("version")
	assert.Equal(t, "studyplan dev", strings.TrimSpace(out))

	out = c.mustRun("version", "--json")
	assert.Contains(t, out, `"version": "dev"`)
}

func TestDashboard_UnknownPage(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("dashboard", "--page", "grades")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, codeOf(t, err))
}

func TestDoctor(t *testing.T) {
	c := newCLI(t)

	view := decode[doctorView](t, c.mustRun("--format", "json", "doctor"))
	assert.Equal(t, health.StatusDegraded, view.Status, "signed out")
	names := make([]string, 0, len(view.Checks))
	for _, check := range view.Checks {
		names = append(names, check.Name)
	}
	assert.Equal(t, []string{"config", "credential-store", "contract", "backend", "session"}, names)

	c.login()
	out := c.mustRun("doctor")
	assert.Contains(t, out, "Overall: healthy")
	assert.Contains(t, out, "signed in as")

	token, _ := c.stored(storage.KeyToken)
	assert.True(t, c.srv.TokenValid(token), "the backend probe leaves the session alone")
}

func TestDoctor_UnreachableBackend(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.srv.Drop("GET", "/api/auth/user/")

	_, err := c.run("doctor", "--timeout", "2s")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeHealthCheck, codeOf(t, err))
	assert.Contains(t, err.Error(), "backend")
	assert.Contains(t, err.Error(), "session")

	_, ok := c.stored(storage.KeyToken)
	assert.True(t, ok)
}
