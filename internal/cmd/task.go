package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/planner"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"tasks"},
	Short:   "Manage tasks",
	Long: `List, create, edit and delete tasks and move them through
TODO, IN_PROGRESS and COMPLETED.

Tasks are listed by due date. Pending tasks past their due date are marked
overdue.

Examples:
  studyplan task list --status todo --priority high
  studyplan task create --course 4 --title "Problem set 1" --due 2024-10-01
  studyplan task status 12 completed
  studyplan task status 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	RunE:  runTaskCreate,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a task",
	Long:  `Edit a task. Only the flags you pass are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskUpdate,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <id> [status]",
	Short: "Change the status of a task",
	Long: `Set the status of a task. Without a status the task moves to the next
one: TODO, IN_PROGRESS, COMPLETED and back to TODO.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTaskStatus,
}

func init() {
	taskListCmd.Flags().String("status", "", "only tasks with this status")
	taskListCmd.Flags().String("priority", "", "only tasks with this priority")
	taskListCmd.Flags().Int("course", 0, "only tasks of this course ID")

	for _, c := range []*cobra.Command{taskCreateCmd, taskUpdateCmd} {
		c.Flags().Int("course", 0, "course ID")
		c.Flags().String("title", "", "task title")
		c.Flags().String("description", "", "task description")
		c.Flags().String("due", "", "due date, YYYY-MM-DD or YYYY-MM-DD HH:MM")
		c.Flags().String("priority", "", "LOW, MEDIUM or HIGH")
		c.Flags().String("status", "", "TODO, IN_PROGRESS or COMPLETED")
	}
	addYesFlag(taskDeleteCmd)

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskStatusCmd)
	rootCmd.AddCommand(taskCmd)
}

func openTasks(cmd *cobra.Command) (*App, *planner.Tasks, error) {
	app, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if err := app.requireSession(ctx, navigation.PathTasks); err != nil {
		app.Close()
		return nil, nil, err
	}

	view := planner.NewTasks(ctx, app.Client, app.viewOptions("tasks")...)
	if err := view.Load(ctx); err != nil {
		view.Close()
		app.Close()
		return nil, nil, apiError(app.Config.APIURL, err)
	}
	return app, view, nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	filter, err := taskFilter(cmd)
	if err != nil {
		return err
	}
	app, view, err := openTasks(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	view.SetFilter(filter)
	return app.renderTasks(view)
}

func (a *App) renderTasks(view *planner.Tasks) error {
	items := view.Items()
	if len(items) == 0 && a.textMode() {
		a.text("No tasks found.")
		return nil
	}
	codes := make(map[int]string)
	for _, c := range view.Courses() {
		codes[c.ID] = c.Code
	}
	return a.render(taskList{Tasks: items, codes: codes, now: time.Now()})
}

func taskFilter(cmd *cobra.Command) (planner.Filter, error) {
	var f planner.Filter
	flags := cmd.Flags()
	if raw, _ := flags.GetString("status"); raw != "" {
		status, err := api.ParseStatus(raw)
		if err != nil {
			return f, errors.NewInvalidInputError(err.Error())
		}
		f.Status = status
	}
	if raw, _ := flags.GetString("priority"); raw != "" {
		priority, err := api.ParsePriority(raw)
		if err != nil {
			return f, errors.NewInvalidInputError(err.Error())
		}
		f.Priority = priority
	}
	f.Course, _ = flags.GetInt("course")
	return f, nil
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	app, view, err := openTasks(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	in, err := taskInput(cmd, api.TaskInput{})
	if err != nil {
		return err
	}
	if err := view.Save(cmd.Context(), 0, in); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Task created.")
	return app.renderTasks(view)
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "task")
	if err != nil {
		return err
	}
	app, view, err := openTasks(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	task, ok := findTask(view.Items(), id)
	if !ok {
		return notFound("task", id)
	}
	in, err := taskInput(cmd, api.TaskInput{
		Course:      task.Course,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Priority:    task.Priority,
		Status:      task.Status,
	})
	if err != nil {
		return err
	}
	if err := view.Save(cmd.Context(), id, in); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Task updated.")
	return app.renderTasks(view)
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "task")
	if err != nil {
		return err
	}
	app, view, err := openTasks(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	task, ok := findTask(view.Items(), id)
	if !ok {
		return notFound("task", id)
	}
	ok, err = confirmDelete(cmd, fmt.Sprintf("Are you sure you want to delete task %q?", task.Title))
	if err != nil || !ok {
		return err
	}
	if err := view.Delete(cmd.Context(), id); err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Deleted task %q.", task.Title)
	return nil
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "task")
	if err != nil {
		return err
	}
	var status api.TaskStatus
	if len(args) == 2 {
		if status, err = api.ParseStatus(args[1]); err != nil {
			return errors.NewInvalidInputError(err.Error())
		}
	}

	app, view, err := openTasks(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer view.Close()

	task, ok := findTask(view.Items(), id)
	if !ok {
		return notFound("task", id)
	}
	if status == "" {
		err = view.Advance(cmd.Context(), id)
		status = task.Status.Next()
	} else {
		err = view.SetStatus(cmd.Context(), id, status)
	}
	if err != nil {
		return apiError(app.Config.APIURL, err)
	}
	app.text("Task %q is now %s.", task.Title, status)
	return app.renderTasks(view)
}

// taskInput applies the flags that were set on top of base.
func taskInput(cmd *cobra.Command, base api.TaskInput) (api.TaskInput, error) {
	in := base
	flags := cmd.Flags()
	if flags.Changed("course") {
		in.Course, _ = flags.GetInt("course")
	}
	if flags.Changed("title") {
		in.Title, _ = flags.GetString("title")
	}
	if flags.Changed("description") {
		in.Description, _ = flags.GetString("description")
	}
	if flags.Changed("due") {
		raw, _ := flags.GetString("due")
		due, err := parseDue(raw)
		if err != nil {
			return in, err
		}
		in.DueDate = due
	}
	if raw, _ := flags.GetString("priority"); flags.Changed("priority") {
		priority, err := api.ParsePriority(raw)
		if err != nil {
			return in, errors.NewInvalidInputError(err.Error())
		}
		in.Priority = priority
	}
	if raw, _ := flags.GetString("status"); flags.Changed("status") {
		status, err := api.ParseStatus(raw)
		if err != nil {
			return in, errors.NewInvalidInputError(err.Error())
		}
		in.Status = status
	}
	return in, nil
}

func findTask(items []api.Task, id int) (api.Task, bool) {
	for _, t := range items {
		if t.ID == id {
			return t, true
		}
	}
	return api.Task{}, false
}
