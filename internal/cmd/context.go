package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/config"
)

// CommandContext holds the persistent flags of one invocation.
type CommandContext struct {
	// Output control
	Format  string
	NoColor bool

	// Backend and storage
	APIURL string
	Home   string

	LogLevel string
}

// NewCommandContext extracts command context from cobra.Command flags.
// Commands should call this in their RunE function to get their configuration:
//
//	func runCommand(cmd *cobra.Command, args []string) error {
//		ctx, err := NewCommandContext(cmd)
//		if err != nil {
//			return fmt.Errorf("failed to create command context: %w", err)
//		}
//		// Use ctx.Format, ctx.Home, etc.
//	}
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}

	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	apiURL, err := cmd.Flags().GetString("api-url")
	if err != nil {
		return nil, err
	}

	home, err := cmd.Flags().GetString("home")
	if err != nil {
		return nil, err
	}

	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Format:   format,
		NoColor:  noColor,
		APIURL:   apiURL,
		Home:     home,
		LogLevel: logLevel,
	}, nil
}

// Flags converts the context into configuration overrides.
func (c *CommandContext) Flags() config.Flags {
	return config.Flags{
		Home:     c.Home,
		APIURL:   c.APIURL,
		Format:   c.Format,
		LogLevel: c.LogLevel,
		NoColor:  c.NoColor,
	}
}
