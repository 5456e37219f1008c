package exitcode

import (
	"errors"
	"fmt"
	"testing"

	plannererrors "github.com/felixgeelhaar/studyplan/internal/errors"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"UsageError", UsageError, 2},
		{"ValidationError", ValidationError, 3},
		{"ServerError", ServerError, 4},
		{"AuthError", AuthError, 5},
		{"NetworkError", NetworkError, 6},
		{"Interrupted", Interrupted, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("Exit code %s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "nil error returns success",
			err:      nil,
			expected: Success,
		},
		{
			name:     "coded auth error",
			err:      plannererrors.NewAuthRequiredError("/dashboard"),
			expected: AuthError,
		},
		{
			name:     "wrapped coded network error",
			err:      fmt.Errorf("list semesters: %w", plannererrors.NewNetworkError("http://localhost:8000", errors.New("boom"))),
			expected: NetworkError,
		},
		{
			name:     "coded validation error",
			err:      plannererrors.NewInvalidInputError("season must be one of FALL, SPRING, SUMMER, WINTER"),
			expected: ValidationError,
		},
		{
			name:     "coded server error",
			err:      plannererrors.NewServerError(errors.New("500")),
			expected: ServerError,
		},
		{
			name:     "coded config error",
			err:      plannererrors.NewConfigKeyError("nope"),
			expected: UsageError,
		},
		{
			name:     "failed health check",
			err:      plannererrors.NewHealthCheckError([]string{"backend"}),
			expected: GeneralError,
		},
		{
			name:     "coded io error falls back to heuristics",
			err:      plannererrors.NewFileNotFoundError("/tmp/x"),
			expected: GeneralError,
		},
		{
			name:     "unauthorized message",
			err:      errors.New("request unauthorized"),
			expected: AuthError,
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:8000: connection refused"),
			expected: NetworkError,
		},
		{
			name:     "timeout",
			err:      errors.New("context deadline exceeded (Client.Timeout exceeded)"),
			expected: NetworkError,
		},
		{
			name:     "unknown command",
			err:      errors.New(`unknown command "foo" for "studyplan"`),
			expected: UsageError,
		},
		{
			name:     "wrong arg count",
			err:      errors.New("accepts 1 arg(s), received 0"),
			expected: UsageError,
		},
		{
			name:     "anything else",
			err:      errors.New("something odd happened"),
			expected: GeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.expected {
				t.Errorf("DetermineExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{Success, "Success"},
		{GeneralError, "General error"},
		{UsageError, "Usage error (invalid flags or arguments)"},
		{ValidationError, "Validation error"},
		{ServerError, "Backend error"},
		{AuthError, "Authentication error"},
		{NetworkError, "Network error"},
		{Interrupted, "Interrupted"},
		{99, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := GetExitCodeDescription(tt.code); got != tt.want {
				t.Errorf("GetExitCodeDescription(%d) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}
