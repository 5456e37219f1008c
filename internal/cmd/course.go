package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/planner"
)

var courseCmd = &cobra.Command{
	Use:     "course",
	Aliases: []string{"courses"},
	Short:   "Manage courses",
	Long: `List, create, edit and delete courses.

The list shows the current semester's courses unless --semester or --all
is given.

Examples:
  studyplan course list
  studyplan course list --all
  studyplan course create --semester 2 --code CS101 --name "Intro to CS" --credits 3
  studyplan course delete 5 --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses",
	RunE:  runCourseList,
}

var courseCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a course",
	RunE:  runCourseCreate,
}

var courseUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a course",
	Long:  `Edit a course. Only the flags you pass are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCourseUpdate,
}

var courseDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a course and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runCourseDelete,
}

func init() {
	courseListCmd.Flags().Int("semester", 0, "only courses of this semester ID")
	courseListCmd.Flags().Bool("all", false, "courses of every semester")

	for _, c := range []*cobra.Command{courseCreateCmd, courseUpdateCmd} {
		c.Flags().Int("semester", 0, "semester ID")
		c.Flags().String("code", "", "course code, e.g. CS101")
		c.Flags().String("name", "", "course name")
		c.Flags().String("description", "", "course description")
		c.Flags().Int("credits", 0, "credit points")
	}
	addYesFlag(courseDeleteCmd)

	courseCmd.AddCommand(courseListCmd)
	courseCmd.AddCommand(courseCreateCmd)
	courseCmd.AddCommand(courseUpdateCmd)
	courseCmd.AddCommand(courseDeleteCmd)
	rootCmd.AddCommand(courseCmd)
}

func openCourses(cmd *cobra.Command) (*App, *planner.Courses, error) {
	app, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if err := app.requireSession(ctx, navigation.PathCourses); err != nil {
		app.Close()
		return nil, nil, err
	}

	view := planner.NewCourses(ctx, app.Client, app.viewOptions("courses")...)
	if err := view.Load(ctx); err != nil {
		view.Close()
		app.Close()
		return nil, nil, apiError(app.Config.APIURL, err)
	}
	return app, view, nil
}

func runCourseList(cmd *cobra.Command, args []string) error {
	app, view, err := openCourses(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	if all, _ := cmd.Flags().GetBool("all"); all {
		view.SelectSemester(0)
	} else if cmd.Flags().Changed("semester") {
		id, _ := cmd.Flags().GetInt("semester")
		if view.SemesterLabel(id) == "" {
			return notFound("semester", id)
		}
		view.SelectSemester(id)
	}

	label := "All semesters"
	if id := view.Semester(); id != 0 {
		label = view.SemesterLabel(id)
	}
	app.text("Semester: %s", label)
	return app.renderCourses(view, view.Items())
}

func (a *App) renderCourses(view *planner.Courses, items []api.Course) error {
	if len(items) == 0 && a.textMode() {
		a.text("No courses yet. Create one with 'studyplan course create'.")
		return nil
	}
	labels := make(map[int]string)
	for _, s := range view.Semesters() {
		labels[s.ID] = s.String()
	}
	return a.render(courseList{Courses: items, labels: labels})
}

func runCourseCreate(cmd *cobra.Command, args []string) error {
	app, view, err := openCourses(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	base := api.CourseInput{Semester: view.Semester()}
	in := courseInput(cmd, base)
	if err := view.Save(cmd.Context(), 0, in); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Course created.")
	view.SelectSemester(in.Semester)
	return app.renderCourses(view, view.Items())
}

func runCourseUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "course")
	if err != nil {
		return err
	}
	app, view, err := openCourses(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	course, ok := findCourse(view.All(), id)
	if !ok {
		return notFound("course", id)
	}
	in := courseInput(cmd, api.CourseInput{
		Semester:    course.Semester,
		Code:        course.Code,
		Name:        course.Name,
		Description: course.Description,
		Credits:     course.Credits,
	})
	if err := view.Save(cmd.Context(), id, in); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Course updated.")
	view.SelectSemester(in.Semester)
	return app.renderCourses(view, view.Items())
}

func runCourseDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "course")
	if err != nil {
		return err
	}
	app, view, err := openCourses(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	course, ok := findCourse(view.All(), id)
	if !ok {
		return notFound("course", id)
	}
	ok, err = confirmDelete(cmd, fmt.Sprintf("Are you sure you want to delete %s - %s?", course.Code, course.Name))
	if err != nil || !ok {
		return err
	}
	if err := view.Delete(cmd.Context(), id); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Deleted %s.", course.Code)
	return nil
}

func courseInput(cmd *cobra.Command, base api.CourseInput) api.CourseInput {
	in := base
	flags := cmd.Flags()
	if flags.Changed("semester") {
		in.Semester, _ = flags.GetInt("semester")
	}
	if flags.Changed("code") {
		in.Code, _ = flags.GetString("code")
	}
	if flags.Changed("name") {
		in.Name, _ = flags.GetString("name")
	}
	if flags.Changed("description") {
		in.Description, _ = flags.GetString("description")
	}
	if flags.Changed("credits") {
		in.Credits, _ = flags.GetInt("credits")
	}
	return in
}

func findCourse(items []api.Course, id int) (api.Course, bool) {
	for _, c := range items {
		if c.ID == id {
			return c, true
		}
	}
	return api.Course{}, false
}
