package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit studyplan configuration",
	Long: `Manage the configuration stored at ~/.studyplan/config.yaml

Configuration includes:
  • Backend address and request timeout
  • Default output format
  • Logging settings

Environment variables (STUDYPLAN_API_URL, STUDYPLAN_API_TIMEOUT,
STUDYPLAN_HOME, STUDYPLAN_LOG_LEVEL, STUDYPLAN_LOG_FORMAT) and a .env file in
the working directory override the file. Flags override both.

Examples:
  # View current configuration
  studyplan config view

  # Edit configuration in $EDITOR
  studyplan config edit

  # Get a specific value
  studyplan config get api.url

  # Set a specific value
  studyplan config set api.url http://localhost:8000

  # Show configuration file path
  studyplan config path
`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display current configuration",
	Long:  `Display the stored configuration in the selected format.`,
	RunE:  runConfigView,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in $EDITOR",
	Long:  `Open the configuration file in your default editor (from $EDITOR environment variable).`,
	RunE:  runConfigEdit,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  `Retrieve the value of a configuration key using dot notation (e.g., api.url).`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a specific configuration value",
	Long:  `Set the value of a configuration key using dot notation (e.g., api.timeout 60s).`,
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

// configFile returns the config file path for this invocation.
func configFile(cmd *cobra.Command) (string, error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to create command context: %w", err)
	}
	home, err := config.Home(cmdCtx.Flags())
	if err != nil {
		return "", err
	}
	return config.Path(home), nil
}

func loadConfigFile(cmd *cobra.Command) (*config.File, string, error) {
	path, err := configFile(cmd)
	if err != nil {
		return nil, "", err
	}
	file, err := config.LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	return file, path, nil
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}

	file, path, err := loadConfigFile(cmd)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}

	view := configView{Path: path, Values: map[string]string{}, keys: config.Keys()}
	for _, key := range view.keys {
		value, err := file.Get(key)
		if err != nil {
			return err
		}
		view.Values[key] = value
	}

	formatter, err := ux.NewFormatter(cmdCtx.Format, &ux.FormatterOptions{
		Writer:  cmd.OutOrStdout(),
		NoColor: cmdCtx.NoColor,
	})
	if err != nil {
		return err
	}
	if cmdCtx.Format == "" || cmdCtx.Format == "text" {
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file: %s\n\n", path)
	}
	return formatter.Format(view)
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	file, path, err := loadConfigFile(cmd)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}

	// Write the defaults first so the editor opens a complete file.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := file.Save(path); err != nil {
			return ux.FormatError(err, "saving configuration")
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	if _, err := config.LoadFile(path); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Configuration may contain errors: %v\n", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Please check and fix the configuration file.\n")
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration updated successfully")
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	file, _, err := loadConfigFile(cmd)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}

	value, err := file.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	file, path, err := loadConfigFile(cmd)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}

	if err := file.Set(key, value); err != nil {
		var coded *errors.PlannerError
		if stderrors.As(err, &coded) {
			return err
		}
		return fmt.Errorf("failed to set value: %w", err)
	}

	if err := file.Save(path); err != nil {
		return ux.FormatError(err, "saving configuration")
	}

	stored, _ := file.Get(key)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, stored)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := configFile(cmd)
	if err != nil {
		return ux.FormatError(err, "getting config path")
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
