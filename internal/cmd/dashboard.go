package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/tui"
)

// dashboardPages maps --page values to locations.
var dashboardPages = map[string]string{
	"home":      navigation.PathHome,
	"login":     navigation.PathLogin,
	"register":  navigation.PathRegister,
	"overview":  navigation.PathDashboard,
	"semesters": navigation.PathSemesters,
	"courses":   navigation.PathCourses,
	"tasks":     navigation.PathTasks,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive dashboard",
	Long: `Open the full-screen dashboard. Signed out, it starts at the sign-in
page and returns to the requested page afterwards.

Logs go to <home>/logs/studyplan.log while the dashboard is open.

Examples:
  studyplan dashboard
  studyplan dashboard --page tasks`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().String("page", "overview", "page to open: overview, semesters, courses, tasks, home, login or register")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	page, _ := cmd.Flags().GetString("page")
	path, ok := dashboardPages[strings.ToLower(page)]
	if !ok {
		return errors.NewInvalidInputError(fmt.Sprintf("unknown page: %s", page)).
			WithSuggestion("Use one of overview, semesters, courses, tasks, home, login or register")
	}

	app, err := newApp(cmd, func(cfg *config.Config) {
		if cfg.LogFile == "" {
			cfg.LogFile = filepath.Join(cfg.Home, "logs", "studyplan.log")
		}
	})
	if err != nil {
		return err
	}
	defer app.Close()

	app.Nav.Navigate(path, navigation.State{})

	adapter := tui.NewAdapter(cmd.Context(), app.Session, app.Nav, tui.Options{
		Router:  app.Router,
		Client:  app.Client,
		Logger:  app.Logger.With("component", "dashboard"),
		NoColor: app.Config.NoColor,
	})
	return adapter.Run()
}
