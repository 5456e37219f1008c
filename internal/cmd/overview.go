package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/planner"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show the current semester and upcoming tasks",
	Long: `Show the dashboard overview: the current semester, its course count and
the next pending tasks by due date.`,
	RunE: runOverview,
}

func init() {
	rootCmd.AddCommand(overviewCmd)
}

func runOverview(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if err := app.requireSession(ctx, navigation.PathDashboard); err != nil {
		return err
	}

	view := planner.NewOverview(ctx, app.Client, app.viewOptions("overview")...)
	defer view.Close()
	if err := view.Load(ctx); err != nil {
		return apiError(app.Config.APIURL, err)
	}

	if len(view.Upcoming()) == 0 {
		defer app.text("No upcoming tasks")
	}
	return app.render(overviewView{
		Current:  view.Current(),
		Stats:    view.Stats(),
		Upcoming: view.Upcoming(),
		now:      time.Now(),
	})
}
