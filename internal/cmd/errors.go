package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/planner"
)

// apiError maps a failed backend call to a coded error. Coded errors and
// errors that did not come from the client pass through unchanged.
func apiError(baseURL string, err error) error {
	if err == nil {
		return nil
	}

	var coded *errors.PlannerError
	if stderrors.As(err, &coded) {
		return err
	}

	var formErr *planner.FormError
	if stderrors.As(err, &formErr) && api.KindOf(err) == 0 {
		return errors.NewInvalidInputError(formErr.Message)
	}

	var reqErr *api.RequestError
	if !stderrors.As(err, &reqErr) {
		return err
	}

	switch reqErr.Kind {
	case api.KindNetwork:
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.Wrap(errors.ErrCodeNetworkTimeout, fmt.Sprintf("backend at %s did not answer in time", baseURL), err).
				WithSuggestion("Raise the timeout with 'studyplan config set api.timeout 60s'")
		}
		return errors.NewNetworkError(baseURL, err)
	case api.KindAuth:
		return errors.NewSessionExpiredError(err)
	case api.KindValidation:
		if reqErr.Status == http.StatusNotFound {
			return errors.Wrap(errors.ErrCodeNotFound, "not found", err).
				WithSuggestion("List the available items to find the right ID")
		}
		return errors.NewValidationError(reqErr.Message(), err)
	case api.KindServer, api.KindUnexpected:
		return errors.NewServerError(err)
	}
	return err
}

// authError maps a rejected sign-in or sign-up. The backend's own message is
// shown when it sent one.
func authError(baseURL string, err error, register bool) error {
	fallback := msgLoginFailed
	if register {
		fallback = msgRegisterFailed
	}

	switch api.KindOf(err) {
	case api.KindAuth, api.KindValidation:
		if register {
			return errors.Wrap(errors.ErrCodeAuthRegisterFailed, api.FormMessage(err, fallback), err).
				WithSuggestion("Run 'studyplan auth login' if the account already exists")
		}
		return errors.NewAuthInvalidError(api.FormMessage(err, fallback), err)
	case 0:
		return errors.Wrap(errors.ErrCodeAuthCredentialStore, fallback, err).
			WithSuggestion("Check permissions on the studyplan home directory")
	}
	return apiError(baseURL, err)
}
