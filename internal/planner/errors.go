package planner

import (
	"errors"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

// FormError is a failed save. Message is what the form displays: the
// client-side validation error, the backend's own message, or a generic
// fallback.
type FormError struct {
	Message string
	Err     error
}

func (e *FormError) Error() string {
	return e.Message
}

func (e *FormError) Unwrap() error {
	return e.Err
}

func formError(err error, fallback string) error {
	if errors.Is(err, ErrClosed) {
		return err
	}
	return &FormError{Message: api.FormMessage(err, fallback), Err: err}
}
