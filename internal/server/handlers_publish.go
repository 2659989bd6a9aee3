package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jonathan/clinic-studio/internal/draft"
	"github.com/jonathan/clinic-studio/internal/pipeline"
	"github.com/jonathan/clinic-studio/internal/publish"
	"github.com/jonathan/clinic-studio/internal/store"
)

// PublishResponse is the terminal state of a publish attempt.
type PublishResponse struct {
	Status   publish.Status `json:"status"`
	ImageURL string         `json:"image_url,omitempty"`
	Result   publish.Result `json:"result"`
}

func publishResponse(a *publish.Attempt) PublishResponse {
	return PublishResponse{Status: a.Status, ImageURL: a.ImageURL, Result: a.Result()}
}

// CredentialsStatus reports which credentials are stored, never their values.
// CredentialKey is false when no key is configured to seal them.
type CredentialsStatus struct {
	Configured      bool `json:"configured"`
	HasImageHostKey bool `json:"has_image_host_key"`
	CredentialKey   bool `json:"credential_key"`
}

// handlePublish publishes the active draft and returns the terminal state.
// Phase failures are reported in the body with 200; only missing drafts and
// storage problems are HTTP errors.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	attempt, err := s.studio.Publish(r.Context(), pipeline.PublishOptions{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, publishResponse(attempt))
}

// handlePublishStream publishes the active draft and streams every
// transition via SSE.
func (s *Server) handlePublishStream(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.studio.Drafts().Current(); !ok {
		s.writeError(w, r, draft.ErrNoDraft)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	attempt, err := s.studio.Publish(r.Context(), pipeline.PublishOptions{
		OnProgress: func(event pipeline.ProgressEvent) {
			if err := sse.WriteEvent("progress", event); err != nil {
				s.log.Warn("Error writing SSE event", "error", err)
			}
		},
	})
	if err != nil {
		sse.WriteError(err)
		return
	}
	sse.WriteComplete(publishResponse(attempt))
}

// handleGetCredentials reports whether publishing credentials are stored.
func (s *Server) handleGetCredentials(w http.ResponseWriter, r *http.Request) {
	creds, found, err := s.studio.Credentials(r.Context())
	if err != nil && !errors.Is(err, store.ErrNoSecret) {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, CredentialsStatus{
		Configured:      found && creds.Configured(),
		HasImageHostKey: found && strings.TrimSpace(creds.ImageHostKey) != "",
		CredentialKey:   err == nil,
	})
}

// handlePutCredentials seals and stores publishing credentials.
func (s *Server) handlePutCredentials(w http.ResponseWriter, r *http.Request) {
	var creds publish.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !creds.Configured() {
		s.writeError(w, r, &ErrValidation{Field: "access_token", Message: "access_token and account_id are required"})
		return
	}
	if err := s.studio.SaveCredentials(r.Context(), creds); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
