package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jonathan/clinic-studio/internal/audit"
	"github.com/jonathan/clinic-studio/internal/draft"
	"github.com/jonathan/clinic-studio/internal/types"
)

// CaptionRequest is the body of PUT /api/v1/draft/caption.
type CaptionRequest struct {
	Caption string `json:"caption"`
}

// AuditRequest is the body of POST /api/v1/audit.
type AuditRequest struct {
	Text string `json:"text"`
}

// AuditResponse is the debounced audit state of the draft caption.
type AuditResponse struct {
	Result  *types.ComplianceAuditResult `json:"result,omitempty"`
	Pending bool                         `json:"pending"`
	Text    string                       `json:"text"`
	Error   string                       `json:"error,omitempty"`
}

func auditResponse(st audit.State) AuditResponse {
	resp := AuditResponse{Result: st.Result, Pending: st.Pending, Text: st.Text}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	return resp
}

// handleGetDraft returns the active post draft.
func (s *Server) handleGetDraft(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.studio.Drafts().Current()
	if !ok {
		s.errorResponse(w, http.StatusNotFound, draft.ErrNoDraft.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, d)
}

func (s *Server) draftAction(w http.ResponseWriter, r *http.Request, action func(context.Context) (*draft.Draft, error)) {
	d, err := action(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, d)
}

// handleRegenerateText replaces the draft text, keeping the image.
func (s *Server) handleRegenerateText(w http.ResponseWriter, r *http.Request) {
	s.draftAction(w, r, s.studio.Drafts().RegenerateText)
}

// handleRegenerateImage replaces the draft image, keeping the text.
func (s *Server) handleRegenerateImage(w http.ResponseWriter, r *http.Request) {
	s.draftAction(w, r, s.studio.Drafts().RegenerateImage)
}

// handleEditCaption applies a manual caption edit.
func (s *Server) handleEditCaption(w http.ResponseWriter, r *http.Request) {
	var body CaptionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.draftAction(w, r, func(ctx context.Context) (*draft.Draft, error) {
		return s.studio.Drafts().EditCaption(ctx, body.Caption)
	})
}

// handleAuditState returns the debounced audit of the draft caption.
func (s *Server) handleAuditState(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, auditResponse(s.studio.AuditState()))
}

// handleAudit audits arbitrary text once, bypassing the debouncer.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditor == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "compliance audit is not configured")
		return
	}
	var body AuditRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		s.writeError(w, r, &ErrValidation{Field: "text", Message: "is required"})
		return
	}

	result, err := s.auditor.Audit(r.Context(), body.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleAuditStream pushes every completed audit of the draft caption via SSE,
// starting with the current state.
func (s *Server) handleAuditStream(w http.ResponseWriter, r *http.Request) {
	if s.audits == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "audit stream is not configured")
		return
	}

	updates, unsubscribe := s.audits.Subscribe()
	defer unsubscribe()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := sse.WriteEvent("audit", auditResponse(s.studio.AuditState())); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.WriteEvent("audit", auditResponse(st)); err != nil {
				return
			}
		}
	}
}
