package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultGraphURL is the Graph API base used for media publishing.
const DefaultGraphURL = "https://graph.facebook.com/v19.0"

// Social is the two-call publishing API.
type Social interface {
	CreateContainer(ctx context.Context, creds Credentials, imageURL, caption string) (string, error)
	PublishContainer(ctx context.Context, creds Credentials, containerID string) (string, error)
}

// APIError is an error reported by the social platform.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("graph api %s error: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("graph api %s error: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// GraphClient calls the Graph API media endpoints.
type GraphClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewGraphClient returns a client for baseURL, or DefaultGraphURL when empty.
func NewGraphClient(baseURL string) *GraphClient {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	return &GraphClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
}

type graphResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateContainer implements Social.
func (c *GraphClient) CreateContainer(ctx context.Context, creds Credentials, imageURL, caption string) (string, error) {
	form := url.Values{}
	form.Set("image_url", imageURL)
	form.Set("caption", caption)
	form.Set("access_token", creds.AccessToken)
	return c.post(ctx, "create container", creds.AccountID+"/media", form)
}

// PublishContainer implements Social.
func (c *GraphClient) PublishContainer(ctx context.Context, creds Credentials, containerID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", creds.AccessToken)
	return c.post(ctx, "publish", creds.AccountID+"/media_publish", form)
}

func (c *GraphClient) post(ctx context.Context, op, path string, form url.Values) (string, error) {
	endpoint := c.BaseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &APIError{Op: op, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &APIError{Op: op, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{Op: op, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	var parsed graphResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &APIError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode), Cause: err}
	}
	if parsed.Error != nil {
		return "", &APIError{Op: op, StatusCode: resp.StatusCode, Message: parsed.Error.Message}
	}
	if parsed.ID == "" {
		return "", &APIError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("missing id (HTTP status %d)", resp.StatusCode)}
	}
	return parsed.ID, nil
}
