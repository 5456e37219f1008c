package ux

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\n💡 Suggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError analyzes an error and adds contextual suggestions. Coded
// errors already carry their own and are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var coded *errors.PlannerError
	if stderrors.As(err, &coded) && len(coded.Suggestions) > 0 {
		return err
	}

	var reqErr *api.RequestError
	if stderrors.As(err, &reqErr) {
		switch reqErr.Kind {
		case api.KindNetwork:
			return NewErrorWithSuggestion(err,
				"Is the backend running? Check 'studyplan config get api.url' or pass --api-url")
		case api.KindAuth:
			return NewErrorWithSuggestion(err,
				"Sign in again with 'studyplan auth login'")
		case api.KindServer:
			return NewErrorWithSuggestion(err,
				"The backend failed; retry later or check its logs")
		}
	}

	errMsg := err.Error()

	// Network errors
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no route to host") {
		return NewErrorWithSuggestion(err,
			"Is the backend running? Check 'studyplan config get api.url' or pass --api-url")
	}

	if strings.Contains(errMsg, "deadline exceeded") || strings.Contains(errMsg, "timeout") {
		return NewErrorWithSuggestion(err,
			"The backend did not answer in time; raise api.timeout with 'studyplan config set api.timeout 60s'")
	}

	// Permission errors
	if strings.Contains(errMsg, "permission denied") {
		return NewErrorWithSuggestion(err,
			"Check permissions on the studyplan home directory (default ~/.studyplan) or pass --home")
	}

	// Config errors
	if strings.Contains(errMsg, "config.yaml") {
		return NewErrorWithSuggestion(err,
			"Fix or remove the configuration file; 'studyplan config path' shows where it is")
	}

	// Generic suggestion based on error type
	if strings.Contains(errMsg, "failed to") {
		return NewErrorWithSuggestion(err,
			"Run the command again with --log-level debug for details")
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
