package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/contract"
	"github.com/felixgeelhaar/studyplan/internal/errors"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Inspect the backend contract",
	Long: `Inspect the REST contract the client is built against.

Examples:
  studyplan api endpoints
  studyplan api endpoints --schema ./openapi.yaml
  studyplan api check PATCH /api/dashboard/tasks/7/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var apiEndpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List the endpoints in the contract",
	RunE:  runAPIEndpoints,
}

var apiCheckCmd = &cobra.Command{
	Use:   "check <method> <path>",
	Short: "Check that a request is part of the contract",
	Args:  cobra.ExactArgs(2),
	RunE:  runAPICheck,
}

func init() {
	for _, c := range []*cobra.Command{apiEndpointsCmd, apiCheckCmd} {
		c.Flags().String("schema", "", "OpenAPI document to use instead of the built-in one")
	}

	apiCmd.AddCommand(apiEndpointsCmd)
	apiCmd.AddCommand(apiCheckCmd)
	rootCmd.AddCommand(apiCmd)
}

func loadContract(cmd *cobra.Command) (*contract.Validator, error) {
	schema, _ := cmd.Flags().GetString("schema")
	if schema == "" {
		return contract.Load(cmd.Context())
	}
	v, err := contract.LoadFile(cmd.Context(), schema)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to load schema "+schema, err)
	}
	return v, nil
}

func runAPIEndpoints(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	v, err := loadContract(cmd)
	if err != nil {
		return err
	}
	return app.render(endpointList(v.Endpoints()))
}

func runAPICheck(cmd *cobra.Command, args []string) error {
	v, err := loadContract(cmd)
	if err != nil {
		return err
	}

	method, path := strings.ToUpper(args[0]), args[1]
	if err := v.Check(method, path); err != nil {
		return errors.NewValidationError(fmt.Sprintf("%s %s is not part of the contract", method, path), err)
	}
	tmpl, _ := v.Template(path)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s matches %s\n", method, path, tmpl)
	return nil
}
