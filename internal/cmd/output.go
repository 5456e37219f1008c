package cmd

import (
	"strconv"
	"time"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/contract"
	"github.com/felixgeelhaar/studyplan/internal/health"
	"github.com/felixgeelhaar/studyplan/internal/planner"
)

const dueLayout = "2006-01-02 15:04"

// sessionView is what 'auth status', 'auth login' and 'auth register' print.
type sessionView struct {
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Email         string `json:"email,omitempty" yaml:"email,omitempty"`
	Username      string `json:"username,omitempty" yaml:"username,omitempty"`
	Backend       string `json:"backend" yaml:"backend"`
	Unverified    bool   `json:"unverified,omitempty" yaml:"unverified,omitempty"`
	Next          string `json:"next,omitempty" yaml:"next,omitempty"`
}

func (v sessionView) Table() ([]string, [][]string) {
	state := "signed out"
	switch {
	case v.Authenticated:
		state = "signed in"
	case v.Unverified:
		state = "unverified (backend unreachable)"
	}
	rows := [][]string{{"Session", state}}
	if v.Email != "" {
		rows = append(rows, []string{"Email", v.Email})
	}
	if v.Username != "" && v.Username != v.Email {
		rows = append(rows, []string{"Username", v.Username})
	}
	rows = append(rows, []string{"Backend", v.Backend})
	if v.Next != "" {
		rows = append(rows, []string{"Next", v.Next})
	}
	return []string{"Field", "Value"}, rows
}

type semesterList []api.Semester

func (l semesterList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		current := ""
		if s.IsCurrent {
			current = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(s.ID), s.String(), current, strconv.Itoa(s.CoursesCount)})
	}
	return []string{"ID", "Semester", "Current", "Courses"}, rows
}

// courseList carries the semester labels so the text table can name them.
type courseList struct {
	Courses []api.Course `json:"courses" yaml:"courses"`
	labels  map[int]string
}

func (l courseList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l.Courses))
	for _, c := range l.Courses {
		rows = append(rows, []string{
			strconv.Itoa(c.ID), c.Code, c.Name, l.labels[c.Semester], strconv.Itoa(c.Credits), c.Progress(),
		})
	}
	return []string{"ID", "Code", "Name", "Semester", "Credits", "Tasks"}, rows
}

type taskList struct {
	Tasks []api.Task `json:"tasks" yaml:"tasks"`
	codes map[int]string
	now   time.Time
}

func (l taskList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l.Tasks))
	for _, t := range l.Tasks {
		rows = append(rows, taskRow(t, l.codes[t.Course], l.now))
	}
	return []string{"ID", "Title", "Course", "Due", "Priority", "Status"}, rows
}

func taskRow(t api.Task, course string, now time.Time) []string {
	due := t.DueDate.Local().Format(dueLayout)
	if t.Overdue(now) {
		due += " (overdue)"
	}
	return []string{strconv.Itoa(t.ID), t.Title, course, due, string(t.Priority), string(t.Status)}
}

type overviewView struct {
	Current  *api.Semester  `json:"current_semester" yaml:"current_semester"`
	Stats    []planner.Stat `json:"stats" yaml:"stats"`
	Upcoming []api.Task     `json:"upcoming_tasks" yaml:"upcoming_tasks"`
	now      time.Time
}

func (v overviewView) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(v.Stats)+len(v.Upcoming))
	for _, s := range v.Stats {
		rows = append(rows, []string{s.Label, s.Value})
	}
	for _, t := range v.Upcoming {
		row := taskRow(t, "", v.now)
		rows = append(rows, []string{"Upcoming", row[1] + " due " + row[3]})
	}
	return []string{"Overview", ""}, rows
}

type endpointList []contract.Endpoint

func (l endpointList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l))
	for _, ep := range l {
		auth := "token"
		if ep.Public {
			auth = "public"
		}
		rows = append(rows, []string{ep.Method, ep.Path, auth, ep.Summary})
	}
	return []string{"Method", "Path", "Auth", "Summary"}, rows
}

// configView lists every configuration key with its value.
type configView struct {
	Path   string            `json:"path" yaml:"path"`
	Values map[string]string `json:"values" yaml:"values"`
	keys   []string
}

func (v configView) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(v.keys))
	for _, k := range v.keys {
		rows = append(rows, []string{k, v.Values[k]})
	}
	return []string{"Key", "Value"}, rows
}

type doctorView struct {
	Status health.Status   `json:"status" yaml:"status"`
	Checks []health.Report `json:"checks" yaml:"checks"`
}

func (v doctorView) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(v.Checks))
	for _, c := range v.Checks {
		rows = append(rows, []string{c.Name, c.Status.String(), c.Message, c.Latency.Round(time.Millisecond).String()})
	}
	return []string{"Check", "Status", "Message", "Latency"}, rows
}
