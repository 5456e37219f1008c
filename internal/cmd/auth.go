package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/router"
	"github.com/felixgeelhaar/studyplan/internal/storage"
	"github.com/felixgeelhaar/studyplan/internal/tui"
)

const (
	msgMissingFields  = "Please provide both email and password"
	msgLoginFailed    = "Failed to login"
	msgRegisterFailed = "Failed to create account"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your session",
	Long: `Manage your session with the study planner backend.

The credential is stored in the client home directory and sent with every
request until you log out or the backend rejects it.

Subcommands:
  register  Create an account and sign in
  login     Sign in with email and password
  logout    Sign out and remove the stored credential
  status    Show whether the stored credential is still valid

Examples:
  studyplan auth register --email me@example.com
  studyplan auth login --email me@example.com --password secret
  studyplan auth status
  studyplan auth logout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in",
	Long: `Sign in with your email and password.

Missing values are prompted for when the terminal is interactive. If a
previous command was refused because you were signed out, the command to
continue with is printed after signing in.

Examples:
  studyplan auth login
  studyplan auth login --email me@example.com --password secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSignIn(cmd, false)
	},
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create an account and sign in with it.

Examples:
  studyplan auth register
  studyplan auth register --email me@example.com --password secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSignIn(cmd, true)
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	Long: `Sign out. The stored credential is removed even when the backend
cannot be reached.`,
	RunE: runLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	Long: `Validate the stored credential against the backend and show who is
signed in.`,
	RunE: runAuthStatus,
}

func init() {
	for _, c := range []*cobra.Command{authLoginCmd, authRegisterCmd} {
		c.Flags().String("email", "", "account email")
		c.Flags().String("password", "", "account password (prompted when omitted)")
	}

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runSignIn(cmd *cobra.Command, register bool) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	creds, err := credentials(email, password, register)
	if err != nil {
		return err
	}

	return app.signIn(cmd, creds, register)
}

// credentials fills in whatever the flags left out by prompting.
func credentials(email, password string, register bool) (tui.Credentials, error) {
	email = strings.TrimSpace(email)
	if email != "" && password != "" {
		return tui.Credentials{Email: email, Password: password}, nil
	}
	if !tui.ShouldPrompt() {
		return tui.Credentials{}, errors.NewInvalidInputError(msgMissingFields).
			WithSuggestion("Pass --email and --password")
	}

	creds, err := tui.PromptForCredentials(register, email)
	if err != nil {
		return tui.Credentials{}, err
	}
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return tui.Credentials{}, errors.NewInvalidInputError(msgMissingFields)
	}
	return creds, nil
}

// signIn walks the same path as the login page: it sits on the auth page
// while the request runs, so a rejected password never counts as an expired
// session, and then follows the router to the remembered destination.
func (a *App) signIn(cmd *cobra.Command, creds tui.Credentials, register bool) error {
	ctx := cmd.Context()

	page := navigation.PathLogin
	if register {
		page = navigation.PathRegister
	}
	from, _ := a.Store.Get(storage.KeyRedirect)
	a.Nav.Navigate(page, navigation.State{From: from})

	var err error
	if register {
		err = a.Session.Register(ctx, creds.Email, creds.Password)
	} else {
		err = a.Session.Login(ctx, creds.Email, creds.Password)
	}
	if err != nil {
		return authError(a.Config.APIURL, err, register)
	}

	if err := a.Store.Remove(storage.KeyRedirect); err != nil {
		a.Logger.WithError(err).Warn("failed to clear remembered destination")
	}
	res := a.Router.CompleteLogin()

	snap := a.Session.Snapshot()
	view := sessionView{
		Authenticated: true,
		Email:         snap.User.Email,
		Username:      snap.User.Username,
		Backend:       a.Config.APIURL,
		Next:          commandFor(res.Route.Path),
	}
	if !a.textMode() {
		return a.render(view)
	}
	if register {
		a.text("Account created.")
	}
	a.text("Signed in as %s", snap.User.DisplayName())
	if from != "" {
		a.text("Continue with: studyplan %s", view.Next)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, ok := app.Store.Get(storage.KeyToken); !ok {
		app.text("Not signed in.")
		return nil
	}

	app.Nav.Navigate(navigation.PathDashboard, navigation.State{})
	app.Session.Logout(cmd.Context())
	if err := app.Store.Remove(storage.KeyRedirect); err != nil {
		app.Logger.WithError(err).Warn("failed to clear remembered destination")
	}
	app.text("Signed out.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	bootErr := app.Session.Boot(cmd.Context())
	snap := app.Session.Snapshot()

	view := sessionView{
		Authenticated: snap.Authenticated(),
		Unverified:    snap.Unverified,
		Backend:       app.Config.APIURL,
	}
	if snap.User != nil {
		view.Email = snap.User.Email
		view.Username = snap.User.Username
	}
	if !view.Authenticated && !view.Unverified {
		view.Next = "auth login"
	}
	if err := app.render(view); err != nil {
		return err
	}
	if snap.Unverified {
		return errors.NewUnverifiedSessionError(apiError(app.Config.APIURL, bootErr))
	}
	return nil
}

// commandFor names the command that shows the page at path.
func commandFor(path string) string {
	route, ok := router.Lookup(path)
	if !ok {
		return "overview"
	}
	switch route.Page {
	case router.PageSemesters:
		return "semester list"
	case router.PageCourses:
		return "course list"
	case router.PageTasks:
		return "task list"
	default:
		return "overview"
	}
}
