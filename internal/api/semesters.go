package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Semester endpoints.
const (
	PathSemesters       = "/api/dashboard/semesters/"
	PathCurrentSemester = "/api/dashboard/semesters/current/"
)

// Year bounds accepted by the backend.
const (
	MinYear = 2000
	MaxYear = 2100
)

// Season of a semester.
type Season string

// Seasons accepted by the backend.
const (
	SeasonFall   Season = "FALL"
	SeasonSpring Season = "SPRING"
	SeasonSummer Season = "SUMMER"
	SeasonWinter Season = "WINTER"
)

// Seasons lists the valid seasons in display order.
var Seasons = []Season{SeasonFall, SeasonSpring, SeasonSummer, SeasonWinter}

// Valid reports whether s is one of Seasons.
func (s Season) Valid() bool {
	for _, v := range Seasons {
		if s == v {
			return true
		}
	}
	return false
}

// ParseSeason accepts any case.
func ParseSeason(s string) (Season, error) {
	season := Season(strings.ToUpper(strings.TrimSpace(s)))
	if !season.Valid() {
		return "", fmt.Errorf("season must be one of %s", joinValues(Seasons))
	}
	return season, nil
}

// Semester is a term of study.
type Semester struct {
	ID           int      `json:"id"`
	Year         int      `json:"year"`
	Season       Season   `json:"season"`
	IsCurrent    bool     `json:"is_current"`
	Courses      []Course `json:"courses,omitempty"`
	CoursesCount int      `json:"courses_count"`
}

// String renders the semester the way the dashboard labels it, e.g. "FALL 2024".
func (s Semester) String() string {
	return fmt.Sprintf("%s %d", s.Season, s.Year)
}

// SemesterInput is the create/replace body.
type SemesterInput struct {
	Year      int    `json:"year"`
	Season    Season `json:"season"`
	IsCurrent bool   `json:"is_current"`
}

// Validate applies the backend's field rules before a request is sent.
func (in SemesterInput) Validate() error {
	if in.Year < MinYear || in.Year > MaxYear {
		return fmt.Errorf("year must be between %d and %d", MinYear, MaxYear)
	}
	if !in.Season.Valid() {
		return fmt.Errorf("season must be one of %s", joinValues(Seasons))
	}
	return nil
}

// SemesterPatch is a partial update; nil fields are left untouched.
type SemesterPatch struct {
	Year      *int    `json:"year,omitempty"`
	Season    *Season `json:"season,omitempty"`
	IsCurrent *bool   `json:"is_current,omitempty"`
}

func semesterPath(id int) string {
	return fmt.Sprintf("%s%d/", PathSemesters, id)
}

// ListSemesters returns the user's semesters.
func (c *Client) ListSemesters(ctx context.Context) ([]Semester, error) {
	var out []Semester
	if err := c.getJSON(ctx, PathSemesters, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSemester returns one semester.
func (c *Client) GetSemester(ctx context.Context, id int) (*Semester, error) {
	var out Semester
	if err := c.getJSON(ctx, semesterPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentSemester returns the current semester, or nil when none is set.
func (c *Client) CurrentSemester(ctx context.Context) (*Semester, error) {
	var out Semester
	if err := c.getJSON(ctx, PathCurrentSemester, &out); err != nil {
		return nil, err
	}
	// The backend answers with a null-id placeholder when nothing is current.
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

// CreateSemester creates a semester. Marking it current unsets the previous one.
func (c *Client) CreateSemester(ctx context.Context, in SemesterInput) (*Semester, error) {
	var out Semester
	if err := c.sendJSON(ctx, http.MethodPost, PathSemesters, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSemester replaces a semester.
func (c *Client) UpdateSemester(ctx context.Context, id int, in SemesterInput) (*Semester, error) {
	var out Semester
	if err := c.sendJSON(ctx, http.MethodPut, semesterPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchSemester partially updates a semester.
func (c *Client) PatchSemester(ctx context.Context, id int, patch SemesterPatch) (*Semester, error) {
	var out Semester
	if err := c.sendJSON(ctx, http.MethodPatch, semesterPath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetCurrentSemester marks a semester current.
func (c *Client) SetCurrentSemester(ctx context.Context, id int) (*Semester, error) {
	current := true
	return c.PatchSemester(ctx, id, SemesterPatch{IsCurrent: &current})
}

// DeleteSemester deletes a semester and, server-side, its courses and tasks.
func (c *Client) DeleteSemester(ctx context.Context, id int) error {
	_, err := c.Delete(ctx, semesterPath(id))
	return err
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
