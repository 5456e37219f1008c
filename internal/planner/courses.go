package planner

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

// Page-level messages for the courses view.
const (
	MsgLoadCourses = "Failed to load courses"
	MsgSaveCourse  = "An error occurred while saving the course"
)

// CourseClient is the part of the API the courses view uses.
type CourseClient interface {
	ListCourses(ctx context.Context) ([]api.Course, error)
	ListSemesters(ctx context.Context) ([]api.Semester, error)
	CreateCourse(ctx context.Context, in api.CourseInput) (*api.Course, error)
	UpdateCourse(ctx context.Context, id int, in api.CourseInput) (*api.Course, error)
	DeleteCourse(ctx context.Context, id int) error
}

// Courses lists and edits courses, optionally narrowed to one semester.
type Courses struct {
	view
	client    CourseClient
	courses   []api.Course
	semesters []api.Semester
	semester  int
	selected  bool
}

// NewCourses returns an unloaded courses view bound to ctx.
func NewCourses(ctx context.Context, client CourseClient, opts ...Option) *Courses {
	c := &Courses{client: client}
	c.init(ctx, "courses", opts)
	return c
}

// Load fetches courses and semesters in parallel. The first load selects the
// current semester as the filter.
func (c *Courses) Load(ctx context.Context) error {
	return c.load(ctx, MsgLoadCourses, func(ctx context.Context) (func(), error) {
		var (
			courses   []api.Course
			semesters []api.Semester
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			courses, err = c.client.ListCourses(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			semesters, err = c.client.ListSemesters(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		return func() {
			c.courses = courses
			c.semesters = semesters
			if !c.selected {
				c.selected = true
				for _, sem := range semesters {
					if sem.IsCurrent {
						c.semester = sem.ID
						break
					}
				}
			}
		}, nil
	})
}

// Semesters returns the semesters available as filter and form choices.
func (c *Courses) Semesters() []api.Semester {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.semesters)
}

// Semester returns the selected semester filter, 0 for all.
func (c *Courses) Semester() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.semester
}

// SelectSemester sets the filter; 0 shows every course.
func (c *Courses) SelectSemester(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.semester = id
	c.selected = true
}

// Items returns the courses matching the semester filter.
func (c *Courses) Items() []api.Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]api.Course, 0, len(c.courses))
	for _, course := range c.courses {
		if c.semester == 0 || course.Semester == c.semester {
			out = append(out, course)
		}
	}
	return out
}

// All returns every loaded course regardless of the filter.
func (c *Courses) All() []api.Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.courses)
}

// SemesterLabel returns the label of semester id, or "" if it is unknown.
func (c *Courses) SemesterLabel(id int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sem := range c.semesters {
		if sem.ID == id {
			return sem.String()
		}
	}
	return ""
}

// Save creates a course when id is 0 and replaces course id otherwise, then
// reloads.
func (c *Courses) Save(ctx context.Context, id int, in api.CourseInput) error {
	if err := in.Validate(); err != nil {
		return &FormError{Message: err.Error(), Err: err}
	}

	err := c.mutate(ctx, "save course", func(ctx context.Context) (func(), error) {
		var err error
		if id == 0 {
			_, err = c.client.CreateCourse(ctx, in)
		} else {
			_, err = c.client.UpdateCourse(ctx, id, in)
		}
		return nil, err
	})
	if err != nil {
		return formError(err, MsgSaveCourse)
	}
	return c.Load(ctx)
}

// Delete removes course id and drops it from the list.
func (c *Courses) Delete(ctx context.Context, id int) error {
	return c.mutate(ctx, "delete course", func(ctx context.Context) (func(), error) {
		if err := c.client.DeleteCourse(ctx, id); err != nil {
			return nil, err
		}
		return func() {
			c.courses = slices.DeleteFunc(c.courses, func(course api.Course) bool { return course.ID == id })
		}, nil
	})
}
