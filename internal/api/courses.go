package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// PathCourses is the course collection endpoint.
const PathCourses = "/api/dashboard/courses/"

// Field limits enforced by the backend.
const (
	MaxCourseCodeLength = 20
	MaxCourseNameLength = 200
)

// Course belongs to a semester.
type Course struct {
	ID                  int    `json:"id"`
	Semester            int    `json:"semester"`
	Code                string `json:"code"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	Credits             int    `json:"credits"`
	TasksCount          int    `json:"tasks_count"`
	CompletedTasksCount int    `json:"completed_tasks_count"`
}

// String renders "CODE - Name".
func (c Course) String() string {
	return fmt.Sprintf("%s - %s", c.Code, c.Name)
}

// Progress renders completed/total tasks.
func (c Course) Progress() string {
	return fmt.Sprintf("%d/%d", c.CompletedTasksCount, c.TasksCount)
}

// CourseInput is the create/replace body.
type CourseInput struct {
	Semester    int    `json:"semester"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Credits     int    `json:"credits"`
}

// Validate applies the backend's field rules before a request is sent.
func (in CourseInput) Validate() error {
	if in.Semester <= 0 {
		return fmt.Errorf("semester is required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("code is required")
	}
	if utf8.RuneCountInString(in.Code) > MaxCourseCodeLength {
		return fmt.Errorf("code must be at most %d characters", MaxCourseCodeLength)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(in.Name) > MaxCourseNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxCourseNameLength)
	}
	if in.Credits < 0 {
		return fmt.Errorf("credits must not be negative")
	}
	return nil
}

// CoursePatch is a partial update; nil fields are left untouched.
type CoursePatch struct {
	Semester    *int    `json:"semester,omitempty"`
	Code        *string `json:"code,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Credits     *int    `json:"credits,omitempty"`
}

func coursePath(id int) string {
	return fmt.Sprintf("%s%d/", PathCourses, id)
}

// ListCourses returns all of the user's courses.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	var out []Course
	if err := c.getJSON(ctx, PathCourses, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCourse returns one course.
func (c *Client) GetCourse(ctx context.Context, id int) (*Course, error) {
	var out Course
	if err := c.getJSON(ctx, coursePath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCourse creates a course.
func (c *Client) CreateCourse(ctx context.Context, in CourseInput) (*Course, error) {
	var out Course
	if err := c.sendJSON(ctx, http.MethodPost, PathCourses, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCourse replaces a course.
func (c *Client) UpdateCourse(ctx context.Context, id int, in CourseInput) (*Course, error) {
	var out Course
	if err := c.sendJSON(ctx, http.MethodPut, coursePath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchCourse partially updates a course.
func (c *Client) PatchCourse(ctx context.Context, id int, patch CoursePatch) (*Course, error) {
	var out Course
	if err := c.sendJSON(ctx, http.MethodPatch, coursePath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCourse deletes a course.
func (c *Client) DeleteCourse(ctx context.Context, id int) error {
	_, err := c.Delete(ctx, coursePath(id))
	return err
}
