package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/planner"
	"github.com/felixgeelhaar/studyplan/internal/router"
)

// page is what every feature view offers the dashboard.
type page interface {
	Load(ctx context.Context) error
	Close()
	Err() string
	Loading() bool
}

// dueLayout renders due dates in the user's local time.
const dueLayout = "Jan 2, 2006 15:04"

var (
	statusCycle   = []api.TaskStatus{"", api.StatusTodo, api.StatusInProgress, api.StatusCompleted}
	priorityCycle = []api.Priority{"", api.PriorityHigh, api.PriorityMedium, api.PriorityLow}
)

// openPage creates the view for p and returns the command that loads it.
func (m *Model) openPage(p router.Page) tea.Cmd {
	opts := []planner.Option{planner.WithLogger(m.opts.Logger)}

	switch p {
	case router.PageOverview:
		m.overview = planner.NewOverview(m.ctx, m.opts.Client, opts...)
	case router.PageSemesters:
		m.semesters = planner.NewSemesters(m.ctx, m.opts.Client, opts...)
	case router.PageCourses:
		m.courses = planner.NewCourses(m.ctx, m.opts.Client, opts...)
	case router.PageTasks:
		m.tasks = planner.NewTasks(m.ctx, m.opts.Client, opts...)
	default:
		return nil
	}

	m.loaded = false
	m.refreshTable()
	return m.load()
}

// closePage closes the open view, discarding anything still in flight.
func (m *Model) closePage() {
	if v := m.active(); v != nil {
		v.Close()
	}
	m.overview, m.semesters, m.courses, m.tasks = nil, nil, nil, nil
	m.confirm = nil
}

// active returns the open view, or nil.
func (m Model) active() page {
	switch {
	case m.overview != nil:
		return m.overview
	case m.semesters != nil:
		return m.semesters
	case m.courses != nil:
		return m.courses
	case m.tasks != nil:
		return m.tasks
	}
	return nil
}

func (m Model) load() tea.Cmd {
	v, ctx := m.active(), m.ctx
	if v == nil {
		return nil
	}
	return func() tea.Msg {
		return loadedMsg{page: v, err: v.Load(ctx)}
	}
}

// mutate runs fn against the open view and reports note on success.
func (m Model) mutate(note string, fn func(ctx context.Context) error) tea.Cmd {
	v, ctx := m.active(), m.ctx
	if v == nil {
		return nil
	}
	return func() tea.Msg {
		return mutatedMsg{page: v, note: note, err: fn(ctx)}
	}
}

// selected returns the ID of the highlighted row.
func (m Model) selected() (int, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rowIDs) {
		return 0, false
	}
	return m.rowIDs[i], true
}

// refreshTable rebuilds the table for the open view.
func (m *Model) refreshTable() {
	var (
		cols []table.Column
		rows []table.Row
		ids  []int
	)
	now := time.Now()

	switch {
	case m.overview != nil:
		cols = taskColumns(false)
		for _, t := range m.overview.Upcoming() {
			rows = append(rows, taskRow(t, "", now, false))
			ids = append(ids, t.ID)
		}
	case m.semesters != nil:
		cols = []table.Column{{Title: "Semester", Width: 16}, {Title: "Current", Width: 8}, {Title: "Courses", Width: 8}}
		for _, s := range m.semesters.Items() {
			current := ""
			if s.IsCurrent {
				current = "✓"
			}
			rows = append(rows, table.Row{s.String(), current, strconv.Itoa(s.CoursesCount)})
			ids = append(ids, s.ID)
		}
	case m.courses != nil:
		cols = []table.Column{
			{Title: "Code", Width: 10}, {Title: "Name", Width: 32}, {Title: "Semester", Width: 14},
			{Title: "Credits", Width: 8}, {Title: "Tasks", Width: 7},
		}
		for _, c := range m.courses.Items() {
			rows = append(rows, table.Row{
				c.Code, c.Name, m.courses.SemesterLabel(c.Semester), strconv.Itoa(c.Credits), c.Progress(),
			})
			ids = append(ids, c.ID)
		}
	case m.tasks != nil:
		cols = taskColumns(true)
		for _, t := range m.tasks.Items() {
			rows = append(rows, taskRow(t, m.tasks.CourseCode(t.Course), now, true))
			ids = append(ids, t.ID)
		}
	}

	prevID, hadSelection := m.selected()
	cursor := max(m.table.Cursor(), 0)

	// Rows must be cleared before the columns change shape. Clearing moves
	// the cursor to -1.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.rowIDs = ids

	if hadSelection {
		for i, id := range ids {
			if id == prevID {
				cursor = i
				break
			}
		}
	}
	m.table.SetCursor(min(cursor, max(len(rows)-1, 0)))
}

func taskColumns(withCourse bool) []table.Column {
	cols := []table.Column{{Title: "Title", Width: 30}}
	if withCourse {
		cols = append(cols, table.Column{Title: "Course", Width: 10})
	}
	return append(cols,
		table.Column{Title: "Due", Width: 28},
		table.Column{Title: "Priority", Width: 9},
		table.Column{Title: "Status", Width: 12},
	)
}

func taskRow(t api.Task, course string, now time.Time, withCourse bool) table.Row {
	due := t.DueDate.Local().Format(dueLayout)
	if t.Overdue(now) {
		due += " (overdue)"
	}
	row := table.Row{t.Title}
	if withCourse {
		row = append(row, course)
	}
	return append(row, due, string(t.Priority), string(t.Status))
}

// deletePrompt is the confirmation question for deleting id.
func (m Model) deletePrompt(id int) string {
	switch {
	case m.semesters != nil:
		for _, s := range m.semesters.Items() {
			if s.ID == id {
				return fmt.Sprintf("Are you sure you want to delete %s %d?", s.Season, s.Year)
			}
		}
	case m.courses != nil:
		for _, c := range m.courses.All() {
			if c.ID == id {
				return fmt.Sprintf("Are you sure you want to delete %s - %s?", c.Code, c.Name)
			}
		}
	case m.tasks != nil:
		for _, t := range m.tasks.Items() {
			if t.ID == id {
				return fmt.Sprintf("Are you sure you want to delete task %q?", t.Title)
			}
		}
	}
	return ""
}

func (m Model) deleteSelected(id int) tea.Cmd {
	switch {
	case m.semesters != nil:
		s := m.semesters
		return m.mutate("Semester deleted.", func(ctx context.Context) error { return s.Delete(ctx, id) })
	case m.courses != nil:
		c := m.courses
		return m.mutate("Course deleted.", func(ctx context.Context) error { return c.Delete(ctx, id) })
	case m.tasks != nil:
		t := m.tasks
		return m.mutate("Task deleted.", func(ctx context.Context) error { return t.Delete(ctx, id) })
	}
	return nil
}

func next[T comparable](cycle []T, current T) T {
	for i, v := range cycle {
		if v == current {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}
