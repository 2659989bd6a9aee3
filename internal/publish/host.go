package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/clinic-studio/internal/types"
)

// DefaultImgBBURL is the ImgBB upload endpoint.
const DefaultImgBBURL = "https://api.imgbb.com/1/upload"

// DefaultHTTPTimeout bounds a single call to a publishing collaborator.
const DefaultHTTPTimeout = 60 * time.Second

// ImageHost turns locally held image bytes into a publicly resolvable URL.
type ImageHost interface {
	Upload(ctx context.Context, creds Credentials, img *types.Image) (string, error)
	// Configured reports whether creds are enough for this host.
	Configured(creds Credentials) bool
}

// HostError is an upload failure reported by the host.
type HostError struct {
	Host       string
	StatusCode int
	Message    string
	Cause      error
}

func (e *HostError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s upload error: %s: %v", e.Host, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s upload error: %s", e.Host, e.Message)
}

func (e *HostError) Unwrap() error {
	return e.Cause
}

// ImgBB uploads to imgbb.com using the per-user API key.
type ImgBB struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewImgBB returns an ImgBB host. An empty endpoint selects DefaultImgBBURL.
func NewImgBB(endpoint string) *ImgBB {
	if endpoint == "" {
		endpoint = DefaultImgBBURL
	}
	return &ImgBB{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
}

// Configured implements ImageHost.
func (h *ImgBB) Configured(creds Credentials) bool {
	return strings.TrimSpace(creds.ImageHostKey) != ""
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload implements ImageHost.
func (h *ImgBB) Upload(ctx context.Context, creds Credentials, img *types.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", &HostError{Host: "imgbb", Message: "no image data"}
	}

	form := url.Values{}
	form.Set("key", creds.ImageHostKey)
	form.Set("image", base64.StdEncoding.EncodeToString(img.Data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &HostError{Host: "imgbb", Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return "", &HostError{Host: "imgbb", Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &HostError{Host: "imgbb", StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	var parsed imgbbResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &HostError{Host: "imgbb", StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode), Cause: err}
	}
	if !parsed.Success || parsed.Data.URL == "" {
		msg := parsed.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP status %d", resp.StatusCode)
		}
		return "", &HostError{Host: "imgbb", StatusCode: resp.StatusCode, Message: msg}
	}
	return parsed.Data.URL, nil
}
