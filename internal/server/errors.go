package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/clinic-studio/internal/draft"
	"github.com/jonathan/clinic-studio/internal/generation"
	"github.com/jonathan/clinic-studio/internal/rendering"
	"github.com/jonathan/clinic-studio/internal/resilience"
	"github.com/jonathan/clinic-studio/internal/store"
	"github.com/jonathan/clinic-studio/internal/types"
)

// ErrInvalidCredentials indicates a failed operator login
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid password"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		requestErr    *types.ValidationError
		fieldErrs     validator.ValidationErrors
		credErr       *ErrInvalidCredentials
		renderErr     *rendering.RenderError
		emptyErr      *generation.EmptyResponseError
		parseErr      *generation.ParseError
		noImageErr    *generation.NoImageInResponseError
		coder         resilience.StatusCoder
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &requestErr), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.As(err, &credErr):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, draft.ErrNoDraft),
		errors.Is(err, draft.ErrRegenerationInFlight),
		errors.Is(err, draft.ErrUserSuppliedImage),
		errors.Is(err, draft.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &renderErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &emptyErr), errors.As(err, &parseErr), errors.As(err, &noImageErr):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrNoSecret):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &coder):
		switch coder.HTTPStatusCode() {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
