package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct{ subject string }

func (c *testClaims) GetSubject() (string, error) { return c.subject, nil }

type testTokenValidator struct {
	validTokens map[string]string
}

func (v *testTokenValidator) ValidateToken(token string) (SubjectGetter, error) {
	subject, ok := v.validTokens[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &testClaims{subject: subject}, nil
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	validator := &testTokenValidator{validTokens: map[string]string{"valid-token": "operator"}}

	var gotSubject string
	handler := AuthMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := Subject(r)
		require.True(t, ok)
		gotSubject = subject
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"Bearer valid-token", "bearer valid-token", "BEARER   valid-token "} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, header)
		assert.Equal(t, "operator", gotSubject)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	validator := &testTokenValidator{validTokens: map[string]string{"valid-token": "operator", "anonymous": ""}}
	handler := AuthMiddleware(validator)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "no token", header: "Bearer"},
		{name: "extra parts", header: "Bearer a b"},
		{name: "unknown token", header: "Bearer forged"},
		{name: "empty subject", header: "Bearer anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
		})
	}
}

func TestSubject_Missing(t *testing.T) {
	_, ok := Subject(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}
