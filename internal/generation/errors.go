package generation

import (
	"fmt"

	"github.com/jonathan/clinic-studio/internal/types"
)

// EmptyResponseError is returned when the backend answers without usable content.
// It is terminal and never retried.
type EmptyResponseError struct {
	Kind types.Kind
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("empty response from backend for %s", e.Kind)
}

// ParseError represents a reply that does not match the declared schema
type ParseError struct {
	Kind    types.Kind
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error (%s): %s", e.Kind, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NoImageInResponseError is returned when an image reply carries no inline image.
type NoImageInResponseError struct {
	// Text is whatever the backend said instead, often a refusal.
	Text string
}

func (e *NoImageInResponseError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("no image in response: %s", e.Text)
	}
	return "no image in response"
}
