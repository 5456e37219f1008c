package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Auth errors (AUTH-001 to AUTH-099)
	ErrCodeAuthRequired        ErrorCode = "AUTH-001"
	ErrCodeAuthInvalid         ErrorCode = "AUTH-002"
	ErrCodeAuthRegisterFailed  ErrorCode = "AUTH-003"
	ErrCodeAuthSessionExpired  ErrorCode = "AUTH-004"
	ErrCodeAuthUnverified      ErrorCode = "AUTH-005"
	ErrCodeAuthCredentialStore ErrorCode = "AUTH-006"

	// Network errors (NET-001 to NET-099)
	ErrCodeNetworkUnreachable ErrorCode = "NET-001"
	ErrCodeNetworkTimeout     ErrorCode = "NET-002"

	// Validation errors (VALIDATION-001 to VALIDATION-099)
	ErrCodeValidationFailed ErrorCode = "VALIDATION-001"
	ErrCodeInvalidInput     ErrorCode = "VALIDATION-002"
	ErrCodeNotFound         ErrorCode = "VALIDATION-003"

	// Server errors (SERVER-001 to SERVER-099)
	ErrCodeServerFailure ErrorCode = "SERVER-001"

	// Config errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigKey     ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
	ErrCodeFileUnmarshal   ErrorCode = "IO-005"

	// Diagnostics (HEALTH-001 to HEALTH-099)
	ErrCodeHealthCheck ErrorCode = "HEALTH-001"
)

// PlannerError is an error with a code, recovery suggestions and an optional
// documentation link.
type PlannerError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *PlannerError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PlannerError) Unwrap() error {
	return e.Cause
}

// New creates a new PlannerError
func New(code ErrorCode, message string) *PlannerError {
	return &PlannerError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PlannerError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PlannerError {
	return &PlannerError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PlannerError) WithSuggestion(suggestion string) *PlannerError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PlannerError) WithSuggestions(suggestions ...string) *PlannerError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *PlannerError) WithDocs(url string) *PlannerError {
	e.DocsURL = url
	return e
}

// Category returns the prefix of the error code, e.g. "AUTH".
func (e *PlannerError) Category() string {
	code := string(e.Code)
	if i := strings.IndexByte(code, '-'); i > 0 {
		return code[:i]
	}
	return code
}

// Common error constructors

// NewAuthRequiredError is returned when a guarded command runs without a session.
func NewAuthRequiredError(destination string) *PlannerError {
	msg := "not logged in"
	if destination != "" {
		msg = fmt.Sprintf("not logged in (requested %s)", destination)
	}
	return New(ErrCodeAuthRequired, msg).
		WithSuggestion("Run 'studyplan auth login --email <email>' to sign in").
		WithSuggestion("Run 'studyplan auth register --email <email>' to create an account")
}

// NewAuthInvalidError wraps a rejected login.
func NewAuthInvalidError(message string, cause error) *PlannerError {
	return Wrap(ErrCodeAuthInvalid, message, cause).
		WithSuggestion("Check your email and password").
		WithSuggestion("Run 'studyplan auth register' if you do not have an account yet")
}

// NewSessionExpiredError is returned when the backend rejects the stored credential.
func NewSessionExpiredError(cause error) *PlannerError {
	return Wrap(ErrCodeAuthSessionExpired, "session expired or credential rejected", cause).
		WithSuggestion("Run 'studyplan auth login' to sign in again")
}

// NewUnverifiedSessionError is returned when the credential could not be checked.
func NewUnverifiedSessionError(cause error) *PlannerError {
	return Wrap(ErrCodeAuthUnverified, "could not verify the stored credential", cause).
		WithSuggestion("Check that the backend is reachable and retry").
		WithSuggestion("Run 'studyplan auth status' to re-check the session")
}

// NewNetworkError wraps a request that never reached the backend.
func NewNetworkError(baseURL string, cause error) *PlannerError {
	return Wrap(ErrCodeNetworkUnreachable, fmt.Sprintf("cannot reach backend at %s", baseURL), cause).
		WithSuggestion("Check that the backend is running").
		WithSuggestion("Set the backend address with --api-url or STUDYPLAN_API_URL")
}

// NewValidationError carries a message produced by the backend verbatim.
func NewValidationError(message string, cause error) *PlannerError {
	return Wrap(ErrCodeValidationFailed, message, cause)
}

// NewInvalidInputError reports input rejected before any request was sent.
func NewInvalidInputError(message string) *PlannerError {
	return New(ErrCodeInvalidInput, message)
}

// NewServerError wraps a 5xx response.
func NewServerError(cause error) *PlannerError {
	return Wrap(ErrCodeServerFailure, "the backend failed to process the request", cause).
		WithSuggestion("Retry the command later")
}

// NewHealthCheckError reports the checks 'studyplan doctor' found unhealthy.
func NewHealthCheckError(failed []string) *PlannerError {
	return New(ErrCodeHealthCheck, "unhealthy: "+strings.Join(failed, ", ")).
		WithSuggestion("Run 'studyplan doctor --format json' for the details of each check")
}

// NewConfigKeyError reports an unknown configuration key.
func NewConfigKeyError(key string) *PlannerError {
	return New(ErrCodeConfigKey, fmt.Sprintf("unknown configuration key: %s", key)).
		WithSuggestion("Run 'studyplan config view' to list the available keys")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *PlannerError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *PlannerError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
