// Package publish pushes a finished post to the social platform: the image is
// uploaded to a public host, a media container is created from its URL, and
// the container is published. Each phase fails independently and nothing is
// retried automatically.
package publish

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the state of a publish attempt.
type Status string

const (
	StatusNotConfigured     Status = "not_configured"
	StatusUploading         Status = "uploading"
	StatusContainerCreating Status = "container_creating"
	StatusPublishing        Status = "publishing"
	StatusPublished         Status = "published"
	StatusFailed            Status = "failed"
)

// Terminal reports whether no further transition can follow s.
func (s Status) Terminal() bool {
	switch s {
	case StatusNotConfigured, StatusPublished, StatusFailed:
		return true
	}
	return false
}

// Phase names the step a failed attempt stopped at.
type Phase string

const (
	PhaseUpload    Phase = "upload"
	PhaseContainer Phase = "container"
	PhasePublish   Phase = "publish"
)

// ErrNotConfigured is returned when no publishing credentials are present.
var ErrNotConfigured = errors.New("publishing credentials are not configured")

// PhaseError is the terminal error of a failed attempt.
type PhaseError struct {
	Phase   Phase
	Message string
	Cause   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Phase, e.Message)
}

func (e *PhaseError) Unwrap() error {
	return e.Cause
}

// Credentials hold what the three phases need.
type Credentials struct {
	ImageHostKey string `json:"image_host_key"`
	AccessToken  string `json:"access_token"`
	AccountID    string `json:"account_id"`
}

// Configured reports whether the social credentials are complete. Hosts
// that need their own key check it separately.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.AccessToken) != "" && strings.TrimSpace(c.AccountID) != ""
}

// Attempt tracks a single publish run. It is discarded once terminal.
type Attempt struct {
	Status      Status `json:"status"`
	ImageURL    string `json:"image_url,omitempty"`
	Caption     string `json:"caption"`
	ContainerID string `json:"container_id,omitempty"`
	PostID      string `json:"post_id,omitempty"`
	Err         error  `json:"-"`
}

// Result is the caller-facing summary of a terminal attempt.
type Result struct {
	Success bool   `json:"success"`
	PostID  string `json:"postId,omitempty"`
	Phase   Phase  `json:"phase,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result summarizes the attempt.
func (a *Attempt) Result() Result {
	switch a.Status {
	case StatusPublished:
		return Result{Success: true, PostID: a.PostID}
	case StatusNotConfigured:
		return Result{Error: ErrNotConfigured.Error()}
	}
	res := Result{}
	var pe *PhaseError
	if errors.As(a.Err, &pe) {
		res.Phase = pe.Phase
		res.Error = pe.Message
	} else if a.Err != nil {
		res.Error = a.Err.Error()
	}
	return res
}

// Phase returns the failed phase, or "" when the attempt did not fail.
func (a *Attempt) Phase() Phase {
	var pe *PhaseError
	if a.Status == StatusFailed && errors.As(a.Err, &pe) {
		return pe.Phase
	}
	return ""
}
