package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/clinic-studio/internal/feed"
	"github.com/jonathan/clinic-studio/internal/types"
)

// handleCitations searches PubMed for evidence on ?term=.
func (s *Server) handleCitations(w http.ResponseWriter, r *http.Request) {
	if s.citations == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "citation search is not configured")
		return
	}
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		s.writeError(w, r, &ErrValidation{Field: "term", Message: "is required"})
		return
	}

	results, err := s.citations.Search(r.Context(), term)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []types.Citation{}
	}
	s.jsonResponse(w, http.StatusOK, results)
}

// handleFeed lists posts from the clinic blog.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "blog feed is not configured")
		return
	}
	q := feed.Query{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"per_page", &q.PerPage}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, &ErrValidation{Field: p.name, Message: "must be a positive integer"})
			return
		}
		*p.dst = n
	}

	page, err := s.feed.Posts(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, page)
}
