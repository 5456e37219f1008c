package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "studyplan",
	Short: "Plan semesters, courses and coursework",
	Long: `studyplan is the command-line client for the study planner backend.

It signs you in, keeps the session between runs and manages your semesters,
courses and tasks. Run 'studyplan dashboard' for the interactive view.`,
	Version:       version.GetInfo().Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which cancels in-flight
// requests when it ends.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("format", "", "output format: text, json or yaml (default from config, else text)")
	flags.String("api-url", "", "backend address (default from STUDYPLAN_API_URL or config)")
	flags.String("home", "", "client home directory (default ~/.studyplan)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("no-color", false, "disable colored output")
}
