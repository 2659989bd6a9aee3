package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/clinic-studio/internal/draft"
	"github.com/jonathan/clinic-studio/internal/generation"
	"github.com/jonathan/clinic-studio/internal/llm"
	"github.com/jonathan/clinic-studio/internal/persona"
	"github.com/jonathan/clinic-studio/internal/rendering"
	"github.com/jonathan/clinic-studio/internal/store"
	"github.com/jonathan/clinic-studio/internal/types"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid password", (&ErrInvalidCredentials{}).Error())
	assert.Equal(t, "validation error: term - is required", (&ErrValidation{Field: "term", Message: "is required"}).Error())
}

func TestHTTPStatus(t *testing.T) {
	invalidPersona := persona.Persona{}
	personaErr := invalidPersona.Validate()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: http.StatusOK},
		{name: "ErrValidation", err: &ErrValidation{Field: "kind"}, expected: http.StatusBadRequest},
		{name: "request validation", err: (&types.PostRequest{}).Validate(), expected: http.StatusBadRequest},
		{name: "persona validation", err: personaErr, expected: http.StatusBadRequest},
		{name: "ErrInvalidCredentials", err: &ErrInvalidCredentials{}, expected: http.StatusUnauthorized},
		{name: "history not found", err: fmt.Errorf("lookup: %w", store.ErrNotFound), expected: http.StatusNotFound},
		{name: "no draft", err: draft.ErrNoDraft, expected: http.StatusConflict},
		{name: "regeneration in flight", err: draft.ErrRegenerationInFlight, expected: http.StatusConflict},
		{name: "user supplied image", err: draft.ErrUserSuppliedImage, expected: http.StatusConflict},
		{name: "superseded", err: draft.ErrSuperseded, expected: http.StatusConflict},
		{name: "render", err: &rendering.RenderError{Message: "bad"}, expected: http.StatusUnprocessableEntity},
		{name: "empty response", err: &generation.EmptyResponseError{Kind: types.KindPost}, expected: http.StatusBadGateway},
		{name: "parse", err: &generation.ParseError{Kind: types.KindArticle, Message: "bad json"}, expected: http.StatusBadGateway},
		{name: "no image", err: &generation.NoImageInResponseError{}, expected: http.StatusBadGateway},
		{name: "no secret", err: fmt.Errorf("load: %w", store.ErrNoSecret), expected: http.StatusServiceUnavailable},
		{name: "overloaded", err: &llm.BackendError{Provider: llm.ProviderGemini, StatusCode: 503}, expected: http.StatusServiceUnavailable},
		{name: "rate limited", err: &llm.BackendError{Provider: llm.ProviderGemini, StatusCode: 429}, expected: http.StatusServiceUnavailable},
		{name: "backend rejected", err: &llm.BackendError{Provider: llm.ProviderOpenAI, StatusCode: 400}, expected: http.StatusBadGateway},
		{name: "deadline", err: fmt.Errorf("generate: %w", context.DeadlineExceeded), expected: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
