package server

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

// OperatorSubject is the subject of tokens issued by password login.
const OperatorSubject = "operator"

// TokenRequest is the body of POST /api/v1/auth/token.
type TokenRequest struct {
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued API token.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

var tokenRequestValidator = validator.New()

// handleIssueToken exchanges the operator password for a bearer token.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.jwtService == nil || s.passwords == nil || !s.passwords.LoginEnabled() {
		s.errorResponse(w, http.StatusServiceUnavailable, "password login is not configured")
		return
	}

	var req TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := tokenRequestValidator.Struct(req); err != nil {
		s.writeError(w, r, &ErrValidation{Field: "password", Message: "is required"})
		return
	}
	if !s.passwords.VerifyAdmin(req.Password) {
		s.log.Warn("Rejected operator login", "remote", s.extractClientID(r))
		s.writeError(w, r, &ErrInvalidCredentials{})
		return
	}

	token, err := s.jwtService.GenerateToken(OperatorSubject)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	s.jsonResponse(w, http.StatusOK, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.jwtService.config.Expiration().Seconds()),
	})
}
