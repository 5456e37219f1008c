package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the client setup and the backend connection",
	Long: `Run diagnostics on everything the client depends on: the configuration
file, the credential store, the API contract, the backend and the stored
session. Exits non-zero when a check is unhealthy. Being signed out is
reported as degraded.

Examples:
  studyplan doctor
  studyplan doctor --format json
  studyplan doctor --timeout 2s`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().Duration("timeout", health.DefaultTimeout, "time limit for each check")
	doctorCmd.Flags().String("schema", "", "OpenAPI document to check instead of the built-in one")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	schema, _ := cmd.Flags().GetString("schema")

	// The probe carries no credential so a 401 cannot end the session.
	probe := api.New(
		api.Config{BaseURL: app.Config.APIURL, Timeout: app.Config.APITimeout},
		api.WithLogger(app.Logger.With("component", "doctor")),
	)

	manager := health.NewManager().WithTimeout(timeout)
	manager.AddChecker(health.NewConfigChecker(config.Path(app.Config.Home)))
	manager.AddChecker(health.NewStorageChecker(app.Store))
	manager.AddChecker(health.NewContractChecker(schema))
	manager.AddChecker(health.NewBackendChecker(probe))
	manager.AddChecker(health.NewSessionChecker(app.Session))

	reports := manager.Check(cmd.Context())
	view := doctorView{Status: health.OverallStatus(reports), Checks: reports}
	for _, r := range reports {
		app.Logger.Debug("health check", "check", r.Name, "status", r.Status, "latency", r.Latency)
	}

	if err := app.render(view); err != nil {
		return err
	}
	app.text("Overall: %s", view.Status)

	if view.Status == health.StatusUnhealthy {
		var failed []string
		for _, r := range reports {
			if r.Status == health.StatusUnhealthy {
				failed = append(failed, r.Name)
			}
		}
		return errors.NewHealthCheckError(failed)
	}
	return nil
}
