package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/clinic-studio/internal/audit"
	"github.com/jonathan/clinic-studio/internal/config"
	"github.com/jonathan/clinic-studio/internal/feed"
	"github.com/jonathan/clinic-studio/internal/logger"
	"github.com/jonathan/clinic-studio/internal/metrics"
	"github.com/jonathan/clinic-studio/internal/pipeline"
	"github.com/jonathan/clinic-studio/internal/rendering"
	"github.com/jonathan/clinic-studio/internal/server/middleware"
	"github.com/jonathan/clinic-studio/internal/server/ratelimit"
	"github.com/jonathan/clinic-studio/internal/types"
)

// maxBodyBytes bounds request bodies; media travels base64 encoded.
const maxBodyBytes = 32 << 20

// CitationSearcher looks up scientific evidence. citations.Client implements it.
type CitationSearcher interface {
	Search(ctx context.Context, term string) ([]types.Citation, error)
}

// FeedReader reads the clinic blog. feed.Client implements it.
type FeedReader interface {
	Posts(ctx context.Context, q feed.Query) (*feed.Page, error)
}

// ScreenshotFunc renders an HTML page to PNG.
type ScreenshotFunc func(ctx context.Context, page string) ([]byte, error)

// Deps are the collaborators behind the API. Only Studio is required; routes
// whose collaborator is missing answer 503.
type Deps struct {
	Studio     *pipeline.Studio
	Auditor    audit.Auditor
	Audits     *Broadcaster
	Citations  CitationSearcher
	Feed       FeedReader
	JWT        *JWTService
	Passwords  *config.PasswordConfig
	Limiter    *ratelimit.Limiter
	Screenshot ScreenshotFunc
	Log        *logger.Logger
}

// Server represents the HTTP server
type Server struct {
	cfg        config.ServerConfig
	studio     *pipeline.Studio
	auditor    audit.Auditor
	audits     *Broadcaster
	citations  CitationSearcher
	feed       FeedReader
	jwtService *JWTService
	passwords  *config.PasswordConfig
	limiter    *ratelimit.Limiter
	screenshot ScreenshotFunc
	log        *logger.Logger

	handler    http.Handler
	httpServer *http.Server
}

// New creates a new server instance
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Studio == nil {
		return nil, fmt.Errorf("server requires a studio")
	}
	if cfg.RequireAuth && deps.JWT == nil {
		return nil, fmt.Errorf("server.require_auth is set but no JWT service is configured")
	}

	s := &Server{
		cfg:        cfg,
		studio:     deps.Studio,
		auditor:    deps.Auditor,
		audits:     deps.Audits,
		citations:  deps.Citations,
		feed:       deps.Feed,
		jwtService: deps.JWT,
		passwords:  deps.Passwords,
		limiter:    deps.Limiter,
		screenshot: deps.Screenshot,
		log:        deps.Log,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.FromSettings(cfg.RateLimit, cfg.RateBurst, nil))
	}
	if s.screenshot == nil {
		s.screenshot = func(ctx context.Context, page string) ([]byte, error) {
			return rendering.Screenshot(ctx, page, rendering.DefaultScreenshotOptions())
		}
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/generate", s.handleGenerate)
	api.HandleFunc("POST /api/v1/generate/stream", s.handleGenerateStream)

	api.HandleFunc("GET /api/v1/draft", s.handleGetDraft)
	api.HandleFunc("POST /api/v1/draft/regenerate/text", s.handleRegenerateText)
	api.HandleFunc("POST /api/v1/draft/regenerate/image", s.handleRegenerateImage)
	api.HandleFunc("PUT /api/v1/draft/caption", s.handleEditCaption)

	api.HandleFunc("GET /api/v1/audit", s.handleAuditState)
	api.HandleFunc("POST /api/v1/audit", s.handleAudit)
	api.HandleFunc("GET /api/v1/audit/stream", s.handleAuditStream)

	api.HandleFunc("POST /api/v1/publish", s.handlePublish)
	api.HandleFunc("POST /api/v1/publish/stream", s.handlePublishStream)
	api.HandleFunc("GET /api/v1/publish/credentials", s.handleGetCredentials)
	api.HandleFunc("PUT /api/v1/publish/credentials", s.handlePutCredentials)

	api.HandleFunc("GET /api/v1/history", s.handleListHistory)
	api.HandleFunc("GET /api/v1/history/{id}", s.handleGetHistory)
	api.HandleFunc("GET /api/v1/history/{id}/export", s.handleExportHistory)

	api.HandleFunc("GET /api/v1/persona", s.handleGetPersona)
	api.HandleFunc("PUT /api/v1/persona", s.handlePutPersona)

	api.HandleFunc("GET /api/v1/citations", s.handleCitations)
	api.HandleFunc("GET /api/v1/feed", s.handleFeed)

	api.HandleFunc("GET /api/v1/calculator", s.handleListCalculations)
	api.HandleFunc("POST /api/v1/calculator", s.handleSaveCalculation)

	var protected http.Handler = api
	if cfg.RequireAuth {
		protected = middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/v1/auth/token", s.handleIssueToken)
	mux.Handle("/api/v1/", protected)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Generation and publish streams run for minutes.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server starting", "addr", s.httpServer.Addr, "auth", s.cfg.RequireAuth)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.limiter.Stop()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.limiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("Server stopped")
	return nil
}

// withCORS adds CORS headers for the configured origins
func (s *Server) withCORS(next http.Handler) http.Handler {
	anyOrigin := slices.Contains(s.cfg.CORSOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case anyOrigin:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.cfg.CORSOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.limiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status and keeps streaming working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging logs each request and counts it by route pattern
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(status)).Inc()
		s.log.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("Error encoding JSON response", "error", err)
	}
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, errorBody{Error: message})
}

// writeError maps err onto a status and writes it.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// extractClientID uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		secs := int((info.RetryAfter + time.Second - 1) / time.Second)
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.log.Warn("Rate limit exceeded", "limit", info.Limit, "reset", info.ResetTime.Format(time.RFC3339))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
