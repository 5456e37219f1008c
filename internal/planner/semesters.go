package planner

import (
	"context"
	"slices"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

// Page-level messages for the semesters view.
const (
	MsgLoadSemesters = "Failed to load semesters"
	MsgSaveSemester  = "An error occurred while saving the semester"
)

// SemesterClient is the part of the API the semesters view uses.
type SemesterClient interface {
	ListSemesters(ctx context.Context) ([]api.Semester, error)
	CreateSemester(ctx context.Context, in api.SemesterInput) (*api.Semester, error)
	UpdateSemester(ctx context.Context, id int, in api.SemesterInput) (*api.Semester, error)
	SetCurrentSemester(ctx context.Context, id int) (*api.Semester, error)
	DeleteSemester(ctx context.Context, id int) error
}

// Semesters lists and edits the user's semesters.
type Semesters struct {
	view
	client SemesterClient
	items  []api.Semester
}

// NewSemesters returns an unloaded semesters view bound to ctx.
func NewSemesters(ctx context.Context, client SemesterClient, opts ...Option) *Semesters {
	s := &Semesters{client: client}
	s.init(ctx, "semesters", opts)
	return s
}

// Items returns a copy of the loaded semesters.
func (s *Semesters) Items() []api.Semester {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Current returns the semester marked current, if any.
func (s *Semesters) Current() (api.Semester, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sem := range s.items {
		if sem.IsCurrent {
			return sem, true
		}
	}
	return api.Semester{}, false
}

// Load fetches the semester list.
func (s *Semesters) Load(ctx context.Context) error {
	return s.load(ctx, MsgLoadSemesters, func(ctx context.Context) (func(), error) {
		items, err := s.client.ListSemesters(ctx)
		if err != nil {
			return nil, err
		}
		return func() { s.items = items }, nil
	})
}

// Save creates a semester when id is 0 and replaces semester id otherwise,
// then reloads the list. The returned error carries the message a form
// should show; see FormError.
func (s *Semesters) Save(ctx context.Context, id int, in api.SemesterInput) error {
	if err := in.Validate(); err != nil {
		return &FormError{Message: err.Error(), Err: err}
	}

	err := s.mutate(ctx, "save semester", func(ctx context.Context) (func(), error) {
		var err error
		if id == 0 {
			_, err = s.client.CreateSemester(ctx, in)
		} else {
			_, err = s.client.UpdateSemester(ctx, id, in)
		}
		return nil, err
	})
	if err != nil {
		return formError(err, MsgSaveSemester)
	}
	return s.Load(ctx)
}

// SetCurrent marks semester id as current and updates the list locally.
func (s *Semesters) SetCurrent(ctx context.Context, id int) error {
	return s.mutate(ctx, "set current semester", func(ctx context.Context) (func(), error) {
		if _, err := s.client.SetCurrentSemester(ctx, id); err != nil {
			return nil, err
		}
		return func() {
			for i := range s.items {
				s.items[i].IsCurrent = s.items[i].ID == id
			}
		}, nil
	})
}

// Delete removes semester id and drops it from the list.
func (s *Semesters) Delete(ctx context.Context, id int) error {
	return s.mutate(ctx, "delete semester", func(ctx context.Context) (func(), error) {
		if err := s.client.DeleteSemester(ctx, id); err != nil {
			return nil, err
		}
		return func() {
			s.items = slices.DeleteFunc(s.items, func(sem api.Semester) bool { return sem.ID == id })
		}, nil
	})
}
