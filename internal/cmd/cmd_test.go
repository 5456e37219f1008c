package cmd

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/studyplan/internal/apitest"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/storage"
)

const (
	testEmail    = "student@example.com"
	testPassword = "hunter22"
)

// cli runs the root command against a fake backend and a scratch home.
type cli struct {
	t    *testing.T
	srv  *apitest.Server
	home string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	// Never prompt, whatever the test runner's stdin is.
	t.Setenv("CI", "true")
	t.Setenv("STUDYPLAN_LOG_LEVEL", "")

	srv := apitest.NewServer(t)
	srv.AddUser(testEmail, testPassword)
	return &cli{t: t, srv: srv, home: t.TempDir()}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--home", c.home, "--api-url", c.srv.URL}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func (c *cli) login() {
	c.t.Helper()
	c.mustRun("auth", "login", "--email", testEmail, "--password", testPassword)
}

func (c *cli) stored(key string) (string, bool) {
	c.t.Helper()
	store, err := storage.OpenDir(c.home)
	require.NoError(c.t, err)
	return store.Get(key)
}

// resetFlags puts every flag back to its default; cobra keeps parsed values
// between executions of the same command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func codeOf(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	var coded *errors.PlannerError
	require.True(t, stderrors.As(err, &coded), "expected a coded error, got %v", err)
	return coded.Code
}
