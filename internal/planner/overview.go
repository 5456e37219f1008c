package planner

import (
	"context"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

// MsgLoadOverview is the overview's page-level failure message.
const MsgLoadOverview = "Failed to load dashboard data"

// NoSemester labels the current semester when none is set.
const NoSemester = "Not Set"

// OverviewClient is the part of the API the overview uses.
type OverviewClient interface {
	CurrentSemester(ctx context.Context) (*api.Semester, error)
	UpcomingTasks(ctx context.Context) ([]api.Task, error)
}

// Stat is one summary tile.
type Stat struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Overview is the dashboard landing page: the current semester and the next
// pending tasks.
type Overview struct {
	view
	client   OverviewClient
	current  *api.Semester
	upcoming []api.Task
}

// NewOverview returns an unloaded overview bound to ctx.
func NewOverview(ctx context.Context, client OverviewClient, opts ...Option) *Overview {
	o := &Overview{client: client}
	o.init(ctx, "overview", opts)
	return o
}

// Load fetches the current semester and upcoming tasks in parallel.
func (o *Overview) Load(ctx context.Context) error {
	return o.load(ctx, MsgLoadOverview, func(ctx context.Context) (func(), error) {
		var (
			current  *api.Semester
			upcoming []api.Task
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			current, err = o.client.CurrentSemester(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			upcoming, err = o.client.UpcomingTasks(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		return func() {
			o.current = current
			o.upcoming = upcoming
		}, nil
	})
}

// Current returns the current semester, or nil when none is set.
func (o *Overview) Current() *api.Semester {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.current == nil {
		return nil
	}
	sem := *o.current
	return &sem
}

// Upcoming returns the next pending tasks, earliest due first.
func (o *Overview) Upcoming() []api.Task {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.upcoming)
}

// Stats returns the summary tiles in display order.
func (o *Overview) Stats() []Stat {
	o.mu.RLock()
	defer o.mu.RUnlock()

	label, courses := NoSemester, 0
	if o.current != nil {
		label = o.current.String()
		courses = o.current.CoursesCount
	}
	return []Stat{
		{Label: "Current Semester", Value: label},
		{Label: "Active Courses", Value: strconv.Itoa(courses)},
		{Label: "Upcoming Tasks", Value: strconv.Itoa(len(o.upcoming))},
	}
}
