package planner

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/apitest"
)

const email = "student@example.com"

func newBackend(t *testing.T) (*apitest.Server, *api.Client) {
	t.Helper()

	srv := apitest.NewServer(t)
	srv.AddUser(email, "secret")

	client := api.New(api.Config{BaseURL: srv.URL})
	client.SetToken(srv.IssueToken(email))
	return srv, client
}

func due(days int) time.Time {
	return time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

func TestSemesters_Lifecycle(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()

	fall := srv.SeedSemester(email, api.SemesterInput{Year: 2024, Season: api.SeasonFall, IsCurrent: true})

	v := NewSemesters(ctx, client)
	t.Cleanup(v.Close)

	require.NoError(t, v.Load(ctx))
	assert.Empty(t, v.Err())
	assert.False(t, v.Loading())
	require.Len(t, v.Items(), 1)

	require.NoError(t, v.Save(ctx, 0, api.SemesterInput{Year: 2025, Season: api.SeasonSpring}))
	items := v.Items()
	require.Len(t, items, 2)
	spring := items[1]
	assert.Equal(t, "SPRING 2025", spring.String())

	require.NoError(t, v.SetCurrent(ctx, spring.ID))
	cur, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, spring.ID, cur.ID)
	// Mapped locally, without a reload.
	assert.Equal(t, 2, srv.Count(http.MethodGet, api.PathSemesters))

	require.NoError(t, v.Delete(ctx, fall.ID))
	items = v.Items()
	require.Len(t, items, 1)
	assert.Equal(t, spring.ID, items[0].ID)
	assert.Equal(t, 2, srv.Count(http.MethodGet, api.PathSemesters))
}

func TestSemesters_SaveErrors(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()
	srv.SeedSemester(email, api.SemesterInput{Year: 2024, Season: api.SeasonFall})

	v := NewSemesters(ctx, client)
	t.Cleanup(v.Close)
	require.NoError(t, v.Load(ctx))

	tests := []struct {
		name string
		in   api.SemesterInput
		want string
		sent bool
	}{
		{
			name: "year out of range is rejected locally",
			in:   api.SemesterInput{Year: 1999, Season: api.SeasonFall},
			want: "year must be between 2000 and 2100",
		},
		{
			name: "unknown season is rejected locally",
			in:   api.SemesterInput{Year: 2024, Season: "AUTUMN"},
			want: "season must be one of FALL, SPRING, SUMMER, WINTER",
		},
		{
			name: "backend message is shown",
			in:   api.SemesterInput{Year: 2024, Season: api.SeasonFall},
			want: "The fields year, season must make a unique set.",
			sent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := srv.Count(http.MethodPost, api.PathSemesters)

			err := v.Save(ctx, 0, tt.in)

			var formErr *FormError
			require.ErrorAs(t, err, &formErr)
			assert.Equal(t, tt.want, formErr.Message)
			sent := srv.Count(http.MethodPost, api.PathSemesters) - before
			assert.Equal(t, tt.sent, sent == 1)
			assert.Empty(t, v.Err())
		})
	}
}

func TestSemesters_SaveServerErrorFallsBack(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()
	srv.Fail(http.MethodPost, api.PathSemesters, http.StatusInternalServerError, `{"detail":"boom"}`)

	v := NewSemesters(ctx, client)
	t.Cleanup(v.Close)

	err := v.Save(ctx, 0, api.SemesterInput{Year: 2024, Season: api.SeasonFall})

	var formErr *FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, MsgSaveSemester, formErr.Message)
	assert.Equal(t, api.KindServer, api.KindOf(err))
}

func TestSemesters_LoadFailure(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()
	srv.Fail(http.MethodGet, api.PathSemesters, http.StatusInternalServerError, `{}`)

	v := NewSemesters(ctx, client)
	t.Cleanup(v.Close)

	require.Error(t, v.Load(ctx))
	assert.Equal(t, MsgLoadSemesters, v.Err())
	assert.False(t, v.Loading())

	srv.Restore(http.MethodGet, api.PathSemesters)
	require.NoError(t, v.Load(ctx))
	assert.Empty(t, v.Err())
}

func TestCourses_FiltersByCurrentSemester(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()

	past := srv.SeedSemester(email, api.SemesterInput{Year: 2024, Season: api.SeasonSpring})
	now := srv.SeedSemester(email, api.SemesterInput{Year: 2024, Season: api.SeasonFall, IsCurrent: true})
	old := srv.SeedCourse(email, api.CourseInput{Semester: past.ID, Code: "CS100", Name: "Intro", Credits: 3})
	cur := srv.SeedCourse(email, api.CourseInput{Semester: now.ID, Code: "CS200", Name: "Data Structures", Credits: 4})
	srv.SeedTask(email, api.TaskInput{Course: cur.ID, Title: "Lab 1", DueDate: due(1), Status: api.StatusCompleted})
	srv.SeedTask(email, api.TaskInput{Course: cur.ID, Title: "Lab 2", DueDate: due(2)})

	v := NewCourses(ctx, client)
	t.Cleanup(v.Close)
	require.NoError(t, v.Load(ctx))

	assert.Equal(t, now.ID, v.Semester())
	items := v.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "CS200 - Data Structures", items[0].String())
	assert.Equal(t, "1/2", items[0].Progress())
	assert.Equal(t, "FALL 2024", v.SemesterLabel(items[0].Semester))

	v.SelectSemester(0)
	assert.Len(t, v.Items(), 2)

	// A reload keeps the chosen filter.
	require.NoError(t, v.Load(ctx))
	assert.Equal(t, 0, v.Semester())

	require.NoError(t, v.Delete(ctx, old.ID))
	assert.Len(t, v.All(), 1)
}

func TestCourses_SaveAndValidate(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()
	sem := srv.SeedSemester(email, api.SemesterInput{Year: 2024, Season: api.SeasonFall, IsCurrent: true})

	v := NewCourses(ctx, client)
	t.Cleanup(v.Close)
	require.NoError(t, v.Load(ctx))

	err := v.Save(ctx, 0, api.CourseInput{Semester: sem.ID, Code: "", Name: "Nameless"})
	var formErr *FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "code is required", formErr.Message)
	assert.Zero(t, srv.Count(http.MethodPost, api.PathCourses))

	require.NoError(t, v.Save(ctx, 0, api.CourseInput{Semester: sem.ID, Code: "MA101", Name: "Calculus", Credits: 5}))
	items := v.Items()
	require.Len(t, items, 1)

	id := items[0].ID
	require.NoError(t, v.Save(ctx, id, api.CourseInput{Semester: sem.ID, Code: "MA101", Name: "Calculus I", Credits: 5}))
	assert.Equal(t, "Calculus I", v.Items()[0].Name)
	assert.Equal(t, 1, srv.Count(http.MethodPut, api.PathCourses+strconv.Itoa(id)+"/"))
}

func TestCourses_LoadFailsWhenEitherFetchFails(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()
	srv.Drop(http.MethodGet, api.PathSemesters)

	v := NewCourses(ctx, client)
	t.Cleanup(v.Close)

	err := v.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, MsgLoadCourses, v.Err())
	assert.Empty(t, v.Items())
}

func TestTasks_SortFilterAndStatus(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()

	sem := srv.SeedSemester(email, api.SemesterInput{Year: 2024, Season: api.SeasonFall, IsCurrent: true})
	math := srv.SeedCourse(email, api.CourseInput{Semester: sem.ID, Code: "MA101", Name: "Calculus"})
	cs := srv.SeedCourse(email, api.CourseInput{Semester: sem.ID, Code: "CS200", Name: "Data Structures"})
	late := srv.SeedTask(email, api.TaskInput{Course: math.ID, Title: "Problem set", DueDate: due(5), Priority: api.PriorityHigh})
	early := srv.SeedTask(email, api.TaskInput{Course: cs.ID, Title: "Lab", DueDate: due(1), Priority: api.PriorityLow})
	srv.SeedTask(email, api.TaskInput{Course: cs.ID, Title: "Essay", DueDate: due(3), Status: api.StatusCompleted})

	v := NewTasks(ctx, client)
	t.Cleanup(v.Close)
	require.NoError(t, v.Load(ctx))

	items := v.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"Lab", "Essay", "Problem set"}, titles(items))
	assert.Equal(t, "CS200", v.CourseCode(early.Course))

	v.SetFilter(Filter{Course: cs.ID})
	assert.Equal(t, []string{"Lab", "Essay"}, titles(v.Items()))

	v.SetFilter(Filter{Status: api.StatusTodo, Priority: api.PriorityHigh})
	assert.Equal(t, []string{"Problem set"}, titles(v.Items()))

	v.SetFilter(Filter{})
	require.NoError(t, v.Advance(ctx, late.ID))
	assert.Equal(t, 2, srv.Count(http.MethodGet, api.PathTasks), "status change reloads")

	var got api.Task
	for _, task := range v.Items() {
		if task.ID == late.ID {
			got = task
		}
	}
	assert.Equal(t, api.StatusInProgress, got.Status)

	require.NoError(t, v.Delete(ctx, early.ID))
	assert.Len(t, v.Items(), 2)
	assert.Equal(t, 2, srv.Count(http.MethodGet, api.PathTasks))

	assert.ErrorIs(t, v.Advance(ctx, 9999), ErrNotLoaded)
}

func TestTasks_SaveValidation(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()
	sem := srv.SeedSemester(email, api.SemesterInput{Year: 2024, Season: api.SeasonFall})
	course := srv.SeedCourse(email, api.CourseInput{Semester: sem.ID, Code: "CS1", Name: "Programming"})

	v := NewTasks(ctx, client)
	t.Cleanup(v.Close)

	err := v.Save(ctx, 0, api.TaskInput{Course: course.ID, Title: "No date"})
	var formErr *FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "Due date is required", formErr.Message)
	assert.Zero(t, srv.Count(http.MethodPost, api.PathTasks))

	require.NoError(t, v.Save(ctx, 0, api.TaskInput{Course: course.ID, Title: "Homework", DueDate: due(2)}))
	items := v.Items()
	require.Len(t, items, 1)
	assert.Equal(t, api.PriorityMedium, items[0].Priority)
	assert.Equal(t, api.StatusTodo, items[0].Status)
}

func TestTasks_LoadFailure(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()
	srv.Fail(http.MethodGet, api.PathCourses, http.StatusServiceUnavailable, `{"detail":"down"}`)

	v := NewTasks(ctx, client)
	t.Cleanup(v.Close)

	require.Error(t, v.Load(ctx))
	assert.Equal(t, MsgLoadTasks, v.Err())
}

func TestOverview_Stats(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()

	sem := srv.SeedSemester(email, api.SemesterInput{Year: 2024, Season: api.SeasonFall, IsCurrent: true})
	course := srv.SeedCourse(email, api.CourseInput{Semester: sem.ID, Code: "CS1", Name: "Programming"})
	srv.SeedCourse(email, api.CourseInput{Semester: sem.ID, Code: "CS2", Name: "Systems"})
	srv.SeedTask(email, api.TaskInput{Course: course.ID, Title: "Second", DueDate: due(2)})
	srv.SeedTask(email, api.TaskInput{Course: course.ID, Title: "First", DueDate: due(1)})
	srv.SeedTask(email, api.TaskInput{Course: course.ID, Title: "Done", DueDate: due(0), Status: api.StatusCompleted})

	v := NewOverview(ctx, client)
	t.Cleanup(v.Close)
	require.NoError(t, v.Load(ctx))

	assert.Equal(t, []Stat{
		{Label: "Current Semester", Value: "FALL 2024"},
		{Label: "Active Courses", Value: "2"},
		{Label: "Upcoming Tasks", Value: "2"},
	}, v.Stats())
	assert.Equal(t, []string{"First", "Second"}, titles(v.Upcoming()))
	require.NotNil(t, v.Current())
	assert.Equal(t, sem.ID, v.Current().ID)
}

func TestOverview_NoCurrentSemester(t *testing.T) {
	_, client := newBackend(t)
	ctx := context.Background()

	v := NewOverview(ctx, client)
	t.Cleanup(v.Close)
	require.NoError(t, v.Load(ctx))

	assert.Nil(t, v.Current())
	stats := v.Stats()
	assert.Equal(t, NoSemester, stats[0].Value)
	assert.Equal(t, "0", stats[1].Value)
	assert.Equal(t, "0", stats[2].Value)
}

func TestOverview_LoadFailure(t *testing.T) {
	srv, client := newBackend(t)
	ctx := context.Background()
	srv.Fail(http.MethodGet, api.PathUpcomingTasks, http.StatusInternalServerError, `{}`)

	v := NewOverview(ctx, client)
	t.Cleanup(v.Close)

	require.Error(t, v.Load(ctx))
	assert.Equal(t, MsgLoadOverview, v.Err())
}

// blockingOverview holds its answers until released.
type blockingOverview struct {
	release chan struct{}
}

func (b *blockingOverview) CurrentSemester(ctx context.Context) (*api.Semester, error) {
	<-b.release
	return &api.Semester{ID: 1, Year: 2024, Season: api.SeasonFall}, nil
}

func (b *blockingOverview) UpcomingTasks(ctx context.Context) ([]api.Task, error) {
	<-b.release
	return []api.Task{{ID: 1, Title: "late"}}, nil
}

func TestView_ResultsAfterCloseAreDiscarded(t *testing.T) {
	client := &blockingOverview{release: make(chan struct{})}
	v := NewOverview(context.Background(), client)

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background()) }()

	require.Eventually(t, v.Loading, time.Second, 5*time.Millisecond)
	v.Close()
	close(client.release)

	err := <-done
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, v.Closed())
	assert.Nil(t, v.Current())
	assert.Empty(t, v.Upcoming())
}

func TestView_CloseCancelsRequests(t *testing.T) {
	_, client := newBackend(t)
	v := NewSemesters(context.Background(), client)
	v.Close()

	assert.ErrorIs(t, v.Load(context.Background()), ErrClosed)
	assert.ErrorIs(t, v.Delete(context.Background(), 1), ErrClosed)
	assert.ErrorIs(t, v.Save(context.Background(), 0, api.SemesterInput{Year: 2024, Season: api.SeasonFall}), ErrClosed)
}

func TestFormError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &FormError{Message: "shown", Err: inner}
	assert.Equal(t, "shown", err.Error())
	assert.ErrorIs(t, err, inner)
}

func titles(tasks []api.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}
