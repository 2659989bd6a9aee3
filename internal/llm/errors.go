package llm

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when a reply has no candidates or parts.
var ErrNoContent = errors.New("no content in response")

// BackendError is a failed call to a generation backend.
// StatusCode is zero when the provider did not report one.
type BackendError struct {
	Provider   Provider
	StatusCode int
	Message    string
	Cause      error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s backend error (%d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s backend error: %s", e.Provider, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// HTTPStatusCode exposes the status to retry classification.
func (e *BackendError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
