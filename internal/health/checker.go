// Package health runs the diagnostics behind 'studyplan doctor'.
//
// Each Checker verifies one thing the client depends on: the backend, the
// credential store, the configuration file, the bundled API contract and the
// stored session. A Manager runs them in parallel and reports the results in
// registration order.
//
//	manager := health.NewManager()
//	manager.AddChecker(health.NewBackendChecker(probe))
//	manager.AddChecker(health.NewStorageChecker(store))
//
//	for _, report := range manager.Check(ctx) {
//	    fmt.Println(report.Name, report.Status)
//	}
package health

import (
	"context"
	"time"
)

// Checker is one diagnostic.
type Checker interface {
	// Name returns the unique name of this check, lowercase with hyphens
	// (e.g., "backend", "credential-store").
	Name() string

	// Check performs the check. It must respect the context deadline.
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check.
type Status string

const (
	// StatusHealthy: the component works.
	StatusHealthy Status = "healthy"

	// StatusDegraded: the client works with reduced functionality,
	// for example while signed out.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy: commands depending on the component will fail.
	StatusUnhealthy Status = "unhealthy"
)

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// Result is what a Checker reports. Details carry check-specific values such
// as the probed URL or the storage path.
type Result struct {
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration  `json:"latency" yaml:"latency"`
}

// NewResult returns a result with empty details.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail sets a detail and returns r.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithLatency overrides the measured latency and returns r.
func (r *Result) WithLatency(latency time.Duration) *Result {
	r.Latency = latency
	return r
}

// Healthy returns a healthy result.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded returns a degraded result.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy returns an unhealthy result.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}
