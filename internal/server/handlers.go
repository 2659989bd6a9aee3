package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/clinic-studio/internal/persona"
	"github.com/jonathan/clinic-studio/internal/pipeline"
	"github.com/jonathan/clinic-studio/internal/rendering"
	"github.com/jonathan/clinic-studio/internal/types"
)

// GenerateRequest is the body of /api/v1/generate. Request holds the
// kind-specific fields.
type GenerateRequest struct {
	Kind    string          `json:"kind"`
	Request json.RawMessage `json:"request"`
}

// GenerateResponse carries the produced artifact.
type GenerateResponse struct {
	Kind     types.Kind     `json:"kind"`
	Artifact types.Artifact `json:"artifact"`
}

// parseGenerateRequest decodes and validates a tagged generation request.
func parseGenerateRequest(w http.ResponseWriter, r *http.Request) (types.GenerationRequest, error) {
	var body GenerateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		return nil, err
	}
	kind, err := types.ParseKind(body.Kind)
	if err != nil {
		return nil, &ErrValidation{Field: "kind", Message: err.Error()}
	}
	if len(body.Request) == 0 {
		return nil, &ErrValidation{Field: "request", Message: "is required"}
	}
	req, err := types.NewRequest(kind)
	if err != nil {
		return nil, &ErrValidation{Field: "kind", Message: err.Error()}
	}
	if err := json.Unmarshal(body.Request, req); err != nil {
		return nil, &ErrValidation{Field: "request", Message: err.Error()}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// handleGenerate runs one generation and returns the artifact.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := parseGenerateRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	artifact, err := s.studio.Run(r.Context(), pipeline.RunOptions{Request: req})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, GenerateResponse{Kind: req.Kind(), Artifact: artifact})
}

// handleGenerateStream runs one generation and streams progress via SSE.
// Infographic image patches arrive as progress events before completion.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseGenerateRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	artifact, err := s.studio.Run(r.Context(), pipeline.RunOptions{
		Request: req,
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
	sse.WriteComplete(GenerateResponse{Kind: req.Kind(), Artifact: artifact})
}

// handleListHistory lists history entries, newest first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, &ErrValidation{Field: "limit", Message: "must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := s.studio.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	s.jsonResponse(w, http.StatusOK, entries)
}

func (s *Server) historyEntry(w http.ResponseWriter, r *http.Request) (*types.HistoryEntry, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "id", Message: "invalid history id"})
		return nil, false
	}
	entry, err := s.studio.HistoryEntry(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return entry, true
}

// handleGetHistory returns one history entry.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.historyEntry(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, entry)
}

// handleExportHistory renders an entry as a standalone HTML page, or as a
// PNG screenshot with ?format=png.
func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.historyEntry(w, r)
	if !ok {
		return
	}
	page, err := rendering.RenderHTML(entry.Artifact, s.studio.Persona())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(page))
	case "png":
		png, err := s.screenshot(r.Context(), page)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entry.ID.String()+".png"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	default:
		s.writeError(w, r, &ErrValidation{Field: "format", Message: "must be html or png"})
	}
}

// handleGetPersona returns the active persona.
func (s *Server) handleGetPersona(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.studio.Persona())
}

// handlePutPersona replaces and persists the active persona.
func (s *Server) handlePutPersona(w http.ResponseWriter, r *http.Request) {
	var p persona.Persona
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.studio.SetPersona(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.studio.Persona())
}

// handleListCalculations lists calculator runs, newest first.
func (s *Server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	records, err := s.studio.Calculations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []types.CalculatorRecord{}
	}
	s.jsonResponse(w, http.StatusOK, records)
}

// handleSaveCalculation stores one calculator run.
func (s *Server) handleSaveCalculation(w http.ResponseWriter, r *http.Request) {
	var rec types.CalculatorRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.studio.SaveCalculation(r.Context(), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, saved)
}
