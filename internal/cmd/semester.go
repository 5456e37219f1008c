package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/planner"
)

var semesterCmd = &cobra.Command{
	Use:     "semester",
	Aliases: []string{"semesters"},
	Short:   "Manage semesters",
	Long: `List, create, edit and delete semesters, and choose the current one.

Deleting a semester also deletes its courses and their tasks.

Examples:
  studyplan semester list
  studyplan semester create --year 2024 --season fall --current
  studyplan semester set-current 3
  studyplan semester delete 3 --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var semesterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List semesters",
	RunE:  runSemesterList,
}

var semesterCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a semester",
	RunE:  runSemesterCreate,
}

var semesterUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a semester",
	Long:  `Edit a semester. Only the flags you pass are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSemesterUpdate,
}

var semesterDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a semester with its courses and tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSemesterDelete,
}

var semesterCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current semester",
	RunE:  runSemesterCurrent,
}

var semesterSetCurrentCmd = &cobra.Command{
	Use:   "set-current <id>",
	Short: "Mark a semester as current",
	Args:  cobra.ExactArgs(1),
	RunE:  runSemesterSetCurrent,
}

func init() {
	for _, c := range []*cobra.Command{semesterCreateCmd, semesterUpdateCmd} {
		c.Flags().Int("year", 0, fmt.Sprintf("year (%d-%d)", api.MinYear, api.MaxYear))
		c.Flags().String("season", "", "FALL, SPRING, SUMMER or WINTER")
		c.Flags().Bool("current", false, "mark as the current semester")
	}
	addYesFlag(semesterDeleteCmd)

	semesterCmd.AddCommand(semesterListCmd)
	semesterCmd.AddCommand(semesterCreateCmd)
	semesterCmd.AddCommand(semesterUpdateCmd)
	semesterCmd.AddCommand(semesterDeleteCmd)
	semesterCmd.AddCommand(semesterCurrentCmd)
	semesterCmd.AddCommand(semesterSetCurrentCmd)
	rootCmd.AddCommand(semesterCmd)
}

// openSemesters checks the session and loads the semesters page.
func openSemesters(cmd *cobra.Command) (*App, *planner.Semesters, error) {
	app, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if err := app.requireSession(ctx, navigation.PathSemesters); err != nil {
		app.Close()
		return nil, nil, err
	}

	view := planner.NewSemesters(ctx, app.Client, app.viewOptions("semesters")...)
	if err := view.Load(ctx); err != nil {
		view.Close()
		app.Close()
		return nil, nil, apiError(app.Config.APIURL, err)
	}
	return app, view, nil
}

func runSemesterList(cmd *cobra.Command, args []string) error {
	app, view, err := openSemesters(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	return app.renderSemesters(view)
}

func (a *App) renderSemesters(view *planner.Semesters) error {
	items := view.Items()
	if len(items) == 0 {
		a.text("No semesters yet. Create one with 'studyplan semester create'.")
		if a.textMode() {
			return nil
		}
	}
	return a.render(semesterList(items))
}

func runSemesterCreate(cmd *cobra.Command, args []string) error {
	app, view, err := openSemesters(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	in, err := semesterInput(cmd, api.SemesterInput{})
	if err != nil {
		return err
	}
	if err := view.Save(cmd.Context(), 0, in); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Semester created.")
	return app.renderSemesters(view)
}

func runSemesterUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "semester")
	if err != nil {
		return err
	}
	app, view, err := openSemesters(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	sem, ok := findSemester(view.Items(), id)
	if !ok {
		return notFound("semester", id)
	}
	in, err := semesterInput(cmd, api.SemesterInput{Year: sem.Year, Season: sem.Season, IsCurrent: sem.IsCurrent})
	if err != nil {
		return err
	}
	if err := view.Save(cmd.Context(), id, in); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Semester updated.")
	return app.renderSemesters(view)
}

func runSemesterDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "semester")
	if err != nil {
		return err
	}
	app, view, err := openSemesters(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	sem, ok := findSemester(view.Items(), id)
	if !ok {
		return notFound("semester", id)
	}
	ok, err = confirmDelete(cmd, fmt.Sprintf("Are you sure you want to delete %s %d?", sem.Season, sem.Year))
	if err != nil || !ok {
		return err
	}
	if err := view.Delete(cmd.Context(), id); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Deleted %s.", sem)
	return nil
}

func runSemesterCurrent(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if err := app.requireSession(ctx, navigation.PathSemesters); err != nil {
		return err
	}
	sem, err := app.Client.CurrentSemester(ctx)
	if err != nil {
		return apiError(app.Config.APIURL, err)
	}
	if sem == nil {
		app.text("Current semester: %s", planner.NoSemester)
		if app.textMode() {
			return nil
		}
		return app.render(semesterList{})
	}
	return app.render(semesterList{*sem})
}

func runSemesterSetCurrent(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "semester")
	if err != nil {
		return err
	}
	app, view, err := openSemesters(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	if _, ok := findSemester(view.Items(), id); !ok {
		return notFound("semester", id)
	}
	if err := view.SetCurrent(cmd.Context(), id); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Current semester updated.")
	return app.renderSemesters(view)
}

// semesterInput applies the flags that were set on top of base.
func semesterInput(cmd *cobra.Command, base api.SemesterInput) (api.SemesterInput, error) {
	in := base
	flags := cmd.Flags()
	if flags.Changed("year") {
		in.Year, _ = flags.GetInt("year")
	}
	if flags.Changed("season") {
		raw, _ := flags.GetString("season")
		season, err := api.ParseSeason(raw)
		if err != nil {
			return in, errors.NewInvalidInputError(err.Error())
		}
		in.Season = season
	}
	if flags.Changed("current") {
		in.IsCurrent, _ = flags.GetBool("current")
	}
	return in, nil
}

func findSemester(items []api.Semester, id int) (api.Semester, bool) {
	for _, s := range items {
		if s.ID == id {
			return s, true
		}
	}
	return api.Semester{}, false
}
