package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Task endpoints.
const (
	PathTasks         = "/api/dashboard/tasks/"
	PathUpcomingTasks = "/api/dashboard/tasks/upcoming/"
)

// MaxTaskTitleLength is enforced by the backend.
const MaxTaskTitleLength = 200

// Priority of a task.
type Priority string

// Priorities accepted by the backend.
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Priorities lists the valid priorities, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of Priorities.
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePriority accepts any case.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("priority must be one of %s", joinValues(Priorities))
	}
	return p, nil
}

// TaskStatus is the progress of a task.
type TaskStatus string

// Statuses accepted by the backend.
const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
)

// Statuses lists the valid statuses in workflow order.
var Statuses = []TaskStatus{StatusTodo, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of Statuses.
func (s TaskStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Next cycles TODO → IN_PROGRESS → COMPLETED → TODO.
func (s TaskStatus) Next() TaskStatus {
	for i, v := range Statuses {
		if s == v {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return StatusTodo
}

// Pending reports whether the task still needs work.
func (s TaskStatus) Pending() bool {
	return s == StatusTodo || s == StatusInProgress
}

// ParseStatus accepts any case and "in-progress" spelled with a dash.
func ParseStatus(s string) (TaskStatus, error) {
	st := TaskStatus(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	if !st.Valid() {
		return "", fmt.Errorf("status must be one of %s", joinValues(Statuses))
	}
	return st, nil
}

// Task is a piece of coursework.
type Task struct {
	ID          int        `json:"id"`
	Course      int        `json:"course"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"due_date"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
}

// Overdue reports whether a pending task is past its due date at now.
func (t Task) Overdue(now time.Time) bool {
	return t.Status.Pending() && t.DueDate.Before(now)
}

// TaskInput is the create/replace body. Empty priority and status take the
// backend defaults (MEDIUM, TODO).
type TaskInput struct {
	Course      int        `json:"course"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"due_date"`
	Priority    Priority   `json:"priority,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
}

// Validate applies the backend's field rules before a request is sent.
func (in TaskInput) Validate() error {
	if in.Course <= 0 {
		return fmt.Errorf("course is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(in.Title) > MaxTaskTitleLength {
		return fmt.Errorf("title must be at most %d characters", MaxTaskTitleLength)
	}
	if in.DueDate.IsZero() {
		return fmt.Errorf("Due date is required")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return fmt.Errorf("priority must be one of %s", joinValues(Priorities))
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("status must be one of %s", joinValues(Statuses))
	}
	return nil
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Course      *int        `json:"course,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
}

func taskPath(id int) string {
	return fmt.Sprintf("%s%d/", PathTasks, id)
}

// ListTasks returns all of the user's tasks.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.getJSON(ctx, PathTasks, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpcomingTasks returns the next pending tasks by due date (at most five).
func (c *Client) UpcomingTasks(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.getJSON(ctx, PathUpcomingTasks, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id int) (*Task, error) {
	var out Task
	if err := c.getJSON(ctx, taskPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*Task, error) {
	var out Task
	if err := c.sendJSON(ctx, http.MethodPost, PathTasks, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask replaces a task.
func (c *Client) UpdateTask(ctx context.Context, id int, in TaskInput) (*Task, error) {
	var out Task
	if err := c.sendJSON(ctx, http.MethodPut, taskPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchTask partially updates a task.
func (c *Client) PatchTask(ctx context.Context, id int, patch TaskPatch) (*Task, error) {
	var out Task
	if err := c.sendJSON(ctx, http.MethodPatch, taskPath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTaskStatus changes only the status.
func (c *Client) SetTaskStatus(ctx context.Context, id int, status TaskStatus) (*Task, error) {
	return c.PatchTask(ctx, id, TaskPatch{Status: &status})
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id int) error {
	_, err := c.Delete(ctx, taskPath(id))
	return err
}
