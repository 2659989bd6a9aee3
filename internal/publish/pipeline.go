package publish

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonathan/clinic-studio/internal/logger"
	"github.com/jonathan/clinic-studio/internal/metrics"
	"github.com/jonathan/clinic-studio/internal/types"
)

var tracer = otel.Tracer("github.com/jonathan/clinic-studio/internal/publish")

// Input is what gets published.
type Input struct {
	Image    *types.Image
	Caption  string
	Hashtags []string
}

// FullCaption joins the caption and hashtags the way the post is published.
func (in Input) FullCaption() string {
	tags := strings.TrimSpace(strings.Join(in.Hashtags, " "))
	if tags == "" {
		return in.Caption
	}
	return in.Caption + "\n\n" + tags
}

// Observer receives a copy of the attempt after every transition.
type Observer func(Attempt)

// Pipeline runs publish attempts.
type Pipeline struct {
	host   ImageHost
	social Social
	cache  URLCache
	log    *logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithURLCache enables skipping uploads of bytes already hosted.
func WithURLCache(c URLCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline builds a pipeline over host and social.
func NewPipeline(host ImageHost, social Social, opts ...Option) *Pipeline {
	p := &Pipeline{host: host, social: social, log: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish runs one attempt to a terminal state and returns it. Errors are
// carried on the attempt, never returned; nothing is retried.
func (p *Pipeline) Publish(ctx context.Context, creds Credentials, in Input, observe Observer) *Attempt {
	ctx, span := tracer.Start(ctx, "publish.attempt")
	defer span.End()

	a := &Attempt{Caption: in.FullCaption()}
	transition := func(s Status) {
		a.Status = s
		if observe != nil {
			observe(*a)
		}
	}
	fail := func(phase Phase, err error) *Attempt {
		a.Err = &PhaseError{Phase: phase, Message: messageOf(err), Cause: err}
		transition(StatusFailed)
		span.RecordError(a.Err)
		span.SetAttributes(attribute.String("publish.failed_phase", string(phase)))
		metrics.PublishAttemptsTotal.WithLabelValues(string(phase), string(StatusFailed)).Inc()
		p.log.Warn("Publish attempt failed", "phase", phase, "error", err)
		return a
	}

	if !creds.Configured() || p.host == nil || !p.host.Configured(creds) {
		a.Err = ErrNotConfigured
		transition(StatusNotConfigured)
		metrics.PublishAttemptsTotal.WithLabelValues("none", string(StatusNotConfigured)).Inc()
		return a
	}

	transition(StatusUploading)
	url, err := p.upload(ctx, creds, in.Image)
	if err != nil {
		return fail(PhaseUpload, err)
	}
	a.ImageURL = url

	transition(StatusContainerCreating)
	containerID, err := p.social.CreateContainer(ctx, creds, url, a.Caption)
	if err != nil {
		return fail(PhaseContainer, err)
	}
	a.ContainerID = containerID

	transition(StatusPublishing)
	postID, err := p.social.PublishContainer(ctx, creds, containerID)
	if err != nil {
		return fail(PhasePublish, err)
	}
	a.PostID = postID
	transition(StatusPublished)
	metrics.PublishAttemptsTotal.WithLabelValues(string(PhasePublish), string(StatusPublished)).Inc()
	p.log.Info("Post published", "post_id", postID)
	return a
}

func (p *Pipeline) upload(ctx context.Context, creds Credentials, img *types.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", errors.New("post has no image")
	}
	if img.URL != "" {
		return img.URL, nil
	}
	var digest string
	if p.cache != nil {
		digest = Digest(img.Data)
		if url, ok := p.cache.Get(ctx, digest); ok {
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return url, nil
		}
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
	url, err := p.host.Upload(ctx, creds, img)
	if err != nil {
		return "", err
	}
	if p.cache != nil {
		p.cache.Put(ctx, digest, url)
	}
	return url, nil
}

// messageOf prefers the collaborator's own message over the wrapped chain.
func messageOf(err error) string {
	var hostErr *HostError
	if errors.As(err, &hostErr) {
		return hostErr.Message
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
