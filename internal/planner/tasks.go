package planner

import (
	"cmp"
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

// Page-level messages for the tasks view.
const (
	MsgLoadTasks = "Failed to load tasks"
	MsgSaveTask  = "An error occurred while saving the task"
)

// TaskClient is the part of the API the tasks view uses.
type TaskClient interface {
	ListTasks(ctx context.Context) ([]api.Task, error)
	ListCourses(ctx context.Context) ([]api.Course, error)
	CreateTask(ctx context.Context, in api.TaskInput) (*api.Task, error)
	UpdateTask(ctx context.Context, id int, in api.TaskInput) (*api.Task, error)
	SetTaskStatus(ctx context.Context, id int, status api.TaskStatus) (*api.Task, error)
	DeleteTask(ctx context.Context, id int) error
}

// Filter narrows the task list. Zero fields match everything.
type Filter struct {
	Status   api.TaskStatus
	Priority api.Priority
	Course   int
}

// Match reports whether t passes the filter.
func (f Filter) Match(t api.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Course != 0 && t.Course != f.Course {
		return false
	}
	return true
}

// Tasks lists and edits tasks.
type Tasks struct {
	view
	client  TaskClient
	tasks   []api.Task
	courses []api.Course
	filter  Filter
}

// NewTasks returns an unloaded tasks view bound to ctx.
func NewTasks(ctx context.Context, client TaskClient, opts ...Option) *Tasks {
	t := &Tasks{client: client}
	t.init(ctx, "tasks", opts)
	return t
}

// Load fetches tasks and courses in parallel.
func (t *Tasks) Load(ctx context.Context) error {
	return t.load(ctx, MsgLoadTasks, func(ctx context.Context) (func(), error) {
		var (
			tasks   []api.Task
			courses []api.Course
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			tasks, err = t.client.ListTasks(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			courses, err = t.client.ListCourses(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		sortByDue(tasks)
		return func() {
			t.tasks = tasks
			t.courses = courses
		}, nil
	})
}

func sortByDue(tasks []api.Task) {
	slices.SortStableFunc(tasks, func(a, b api.Task) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Filter returns the active filter.
func (t *Tasks) Filter() Filter {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.filter
}

// SetFilter replaces the active filter.
func (t *Tasks) SetFilter(f Filter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter = f
}

// Items returns the tasks matching the filter, earliest due first.
func (t *Tasks) Items() []api.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]api.Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		if t.filter.Match(task) {
			out = append(out, task)
		}
	}
	return out
}

// Courses returns the courses available as filter and form choices.
func (t *Tasks) Courses() []api.Course {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.courses)
}

// CourseCode returns the code of course id, or "" if it is unknown.
func (t *Tasks) CourseCode(id int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.courses {
		if c.ID == id {
			return c.Code
		}
	}
	return ""
}

// Save creates a task when id is 0 and replaces task id otherwise, then
// reloads.
func (t *Tasks) Save(ctx context.Context, id int, in api.TaskInput) error {
	if err := in.Validate(); err != nil {
		return &FormError{Message: err.Error(), Err: err}
	}

	err := t.mutate(ctx, "save task", func(ctx context.Context) (func(), error) {
		var err error
		if id == 0 {
			_, err = t.client.CreateTask(ctx, in)
		} else {
			_, err = t.client.UpdateTask(ctx, id, in)
		}
		return nil, err
	})
	if err != nil {
		return formError(err, MsgSaveTask)
	}
	return t.Load(ctx)
}

// SetStatus changes the status of task id and reloads, so course progress
// stays in step with the backend.
func (t *Tasks) SetStatus(ctx context.Context, id int, status api.TaskStatus) error {
	err := t.mutate(ctx, "set task status", func(ctx context.Context) (func(), error) {
		_, err := t.client.SetTaskStatus(ctx, id, status)
		return nil, err
	})
	if err != nil {
		return err
	}
	return t.Load(ctx)
}

// Advance moves task id to the next status in the TODO, IN_PROGRESS,
// COMPLETED cycle.
func (t *Tasks) Advance(ctx context.Context, id int) error {
	t.mu.RLock()
	var (
		status api.TaskStatus
		found  bool
	)
	for _, task := range t.tasks {
		if task.ID == id {
			status, found = task.Status, true
			break
		}
	}
	t.mu.RUnlock()

	if !found {
		return ErrNotLoaded
	}
	return t.SetStatus(ctx, id, status.Next())
}

// Delete removes task id and drops it from the list.
func (t *Tasks) Delete(ctx context.Context, id int) error {
	return t.mutate(ctx, "delete task", func(ctx context.Context) (func(), error) {
		if err := t.client.DeleteTask(ctx, id); err != nil {
			return nil, err
		}
		return func() {
			t.tasks = slices.DeleteFunc(t.tasks, func(task api.Task) bool { return task.ID == id })
		}, nil
	})
}
