package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/planner"
	"github.com/felixgeelhaar/studyplan/internal/tui"
)

// Layouts accepted for due dates, most specific first. Dates without a time
// are due at the end of the day.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// viewOptions attaches the app logger to a planner view.
func (a *App) viewOptions(page string) []planner.Option {
	return []planner.Option{planner.WithLogger(a.Logger.With("page", page))}
}

func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidInputError(fmt.Sprintf("invalid %s ID: %q", what, arg)).
			WithSuggestion(fmt.Sprintf("Run 'studyplan %s list' to see the IDs", what))
	}
	return id, nil
}

func parseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Minute)
		}
		return t, nil
	}
	return time.Time{}, errors.NewInvalidInputError(fmt.Sprintf("invalid due date: %q", s)).
		WithSuggestion("Use YYYY-MM-DD or YYYY-MM-DD HH:MM")
}

func addYesFlag(c *cobra.Command) {
	c.Flags().BoolP("yes", "y", false, "delete without asking for confirmation")
}

// confirmDelete asks before a destructive call. Without a terminal --yes is
// required.
func confirmDelete(cmd *cobra.Command, prompt string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	if !tui.ShouldPrompt() {
		return false, errors.NewInvalidInputError("refusing to delete without confirmation").
			WithSuggestion("Pass --yes to confirm")
	}
	return tui.PromptForConfirmation(prompt, false)
}

// notFound reports an ID missing from a loaded list.
func notFound(what string, id int) error {
	return errors.New(errors.ErrCodeNotFound, fmt.Sprintf("%s %d not found", what, id)).
		WithSuggestion(fmt.Sprintf("Run 'studyplan %s list' to see the IDs", what))
}
