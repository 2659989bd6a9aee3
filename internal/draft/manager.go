// Package draft owns the single active post draft: primary generation,
// independent text and image regeneration, and persistence of the last
// open artifact.
package draft

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonathan/clinic-studio/internal/logger"
	"github.com/jonathan/clinic-studio/internal/store"
	"github.com/jonathan/clinic-studio/internal/types"
)

var (
	// ErrNoDraft is returned by regeneration before any draft exists.
	ErrNoDraft = errors.New("no active draft")
	// ErrUserSuppliedImage refuses image regeneration of an uploaded image.
	ErrUserSuppliedImage = errors.New("image was supplied by the user and cannot be regenerated")
	// ErrRegenerationInFlight is returned while the same sub-field is already regenerating.
	ErrRegenerationInFlight = errors.New("regeneration already in progress")
	// ErrSuperseded is returned by a generation whose result was dropped
	// because a newer primary generation started.
	ErrSuperseded = errors.New("superseded by a newer generation")
)

// TextGenerator produces the textual part of a post.
type TextGenerator interface {
	Post(ctx context.Context, req *types.PostRequest) (*types.PostContent, error)
}

// ImageGenerator produces a post image.
type ImageGenerator interface {
	Image(ctx context.Context, prompt string, layout types.Layout) (*types.Image, error)
}

// AuditTrigger receives the caption after every change. audit.Debouncer implements it.
type AuditTrigger interface {
	Trigger(text string)
}

// Draft is the active post.
type Draft struct {
	Request           types.PostRequest `json:"request"`
	Post              types.PostContent `json:"post"`
	Image             *types.Image      `json:"image,omitempty"`
	ImageUserSupplied bool              `json:"image_user_supplied"`
	Layout            types.Layout      `json:"layout"`
	Version           uint64            `json:"version"`
}

// Artifact returns the draft as a history artifact.
func (d *Draft) Artifact() *types.PostArtifact {
	return &types.PostArtifact{
		Post:              d.Post,
		Image:             d.Image,
		ImageUserSupplied: d.ImageUserSupplied,
		Layout:            d.Layout,
	}
}

func (d *Draft) clone() *Draft {
	c := *d
	c.Post.Hashtags = slices.Clone(d.Post.Hashtags)
	return &c
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore persists history and the last artifact.
func WithStore(st store.Store) Option {
	return func(m *Manager) { m.store = st }
}

// WithAuditor triggers audits on caption changes.
func WithAuditor(a AuditTrigger) Option {
	return func(m *Manager) { m.auditor = a }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock overrides time.Now for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager coordinates generation and regeneration of the active draft.
type Manager struct {
	text    TextGenerator
	image   ImageGenerator
	store   store.Store
	auditor AuditTrigger
	log     *logger.Logger
	now     func() time.Time

	mu        sync.Mutex
	draft     *Draft
	genSeq    uint64
	cancelGen context.CancelFunc
	textBusy  bool
	imageBusy bool

	// persistMu orders last_artifact writes; saved is the newest version written.
	persistMu sync.Mutex
	saved     uint64
}

// NewManager builds a manager over the two generators.
func NewManager(text TextGenerator, image ImageGenerator, opts ...Option) *Manager {
	m := &Manager{
		text:  text,
		image: image,
		log:   logger.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns a copy of the active draft.
func (m *Manager) Current() (*Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draft == nil {
		return nil, false
	}
	return m.draft.clone(), true
}

// Generate runs a primary generation. The text generator runs once; the
// image generator runs only when the request carries no reference image.
// A newer Generate cancels and supersedes this one. On failure the previous
// draft is kept.
func (m *Manager) Generate(ctx context.Context, req *types.PostRequest) (*Draft, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.mu.Lock()
	if m.cancelGen != nil {
		m.cancelGen()
	}
	m.genSeq++
	seq := m.genSeq
	m.cancelGen = cancel
	m.mu.Unlock()

	next, err := m.build(ctx, req)

	m.mu.Lock()
	if seq != m.genSeq {
		m.mu.Unlock()
		m.log.Debug("Dropping superseded generation", "seq", seq)
		return nil, ErrSuperseded
	}
	m.cancelGen = nil
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if m.draft != nil {
		next.Version = m.draft.Version + 1
	} else {
		next.Version = 1
	}
	m.draft = next
	snapshot := next.clone()
	m.mu.Unlock()

	m.persist(ctx, snapshot, true)
	m.trigger(snapshot.Post.Caption)
	return snapshot, nil
}

func (m *Manager) build(ctx context.Context, req *types.PostRequest) (*Draft, error) {
	post, err := m.text.Post(ctx, req)
	if err != nil {
		return nil, err
	}
	d := &Draft{Request: *req, Post: *post, Layout: layoutOf(req)}
	if req.ReferenceImage != nil {
		d.Image = &types.Image{MIMEType: req.ReferenceImage.MIMEType, Data: req.ReferenceImage.Data}
		d.ImageUserSupplied = true
		return d, nil
	}
	img, err := m.image.Image(ctx, post.ImagePrompt, d.Layout)
	if err != nil {
		return nil, err
	}
	d.Image = img
	return d, nil
}

// RegenerateText re-runs the text generator with the last request and
// replaces only the post text. The result is dropped with ErrSuperseded when
// the draft it was computed for has been replaced meanwhile.
func (m *Manager) RegenerateText(ctx context.Context) (*Draft, error) {
	m.mu.Lock()
	if m.draft == nil {
		m.mu.Unlock()
		return nil, ErrNoDraft
	}
	if m.textBusy {
		m.mu.Unlock()
		return nil, fmt.Errorf("text: %w", ErrRegenerationInFlight)
	}
	m.textBusy = true
	target := m.draft
	req := target.Request
	m.mu.Unlock()

	post, err := m.text.Post(ctx, &req)

	m.mu.Lock()
	m.textBusy = false
	if m.draft != target {
		m.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.draft.Post = *post
	m.draft.Version++
	snapshot := m.draft.clone()
	m.mu.Unlock()

	m.persist(ctx, snapshot, false)
	m.trigger(snapshot.Post.Caption)
	return snapshot, nil
}

// RegenerateImage draws a new image from the current post's image prompt
// and replaces only the image. An uploaded image is never regenerated.
func (m *Manager) RegenerateImage(ctx context.Context) (*Draft, error) {
	m.mu.Lock()
	if m.draft == nil {
		m.mu.Unlock()
		return nil, ErrNoDraft
	}
	if m.draft.ImageUserSupplied {
		m.mu.Unlock()
		return nil, ErrUserSuppliedImage
	}
	if m.imageBusy {
		m.mu.Unlock()
		return nil, fmt.Errorf("image: %w", ErrRegenerationInFlight)
	}
	m.imageBusy = true
	target := m.draft
	prompt := target.Post.ImagePrompt
	layout := target.Layout
	m.mu.Unlock()

	img, err := m.image.Image(ctx, prompt, layout)

	m.mu.Lock()
	m.imageBusy = false
	if m.draft != target {
		m.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.draft.Image = img
	m.draft.Version++
	snapshot := m.draft.clone()
	m.mu.Unlock()

	m.persist(ctx, snapshot, false)
	return snapshot, nil
}

// EditCaption replaces the caption with user text and re-audits it.
func (m *Manager) EditCaption(ctx context.Context, caption string) (*Draft, error) {
	m.mu.Lock()
	if m.draft == nil {
		m.mu.Unlock()
		return nil, ErrNoDraft
	}
	m.draft.Post.Caption = caption
	m.draft.Version++
	snapshot := m.draft.clone()
	m.mu.Unlock()

	m.persist(ctx, snapshot, false)
	m.trigger(caption)
	return snapshot, nil
}

// Restore loads the last open artifact, if any, as the active draft.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	if m.store == nil {
		return false, nil
	}
	var d Draft
	found, err := m.store.LoadRecord(ctx, store.KeyLastArtifact, &d)
	if err != nil {
		return false, fmt.Errorf("failed to restore draft: %w", err)
	}
	if !found {
		return false, nil
	}
	m.persistMu.Lock()
	d.Version = max(m.saved, d.Version)
	m.saved = d.Version
	m.persistMu.Unlock()
	m.mu.Lock()
	m.draft = &d
	m.mu.Unlock()
	m.trigger(d.Post.Caption)
	return true, nil
}

// persist writes the last artifact and, for primary generations, a history
// entry. Failures are logged; the in-memory draft is already current.
// Snapshots older than the last written version never overwrite it.
func (m *Manager) persist(ctx context.Context, d *Draft, appendHistory bool) {
	if m.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if appendHistory {
		if err := m.store.AppendHistory(ctx, types.NewHistoryEntry(d.Artifact(), m.now())); err != nil {
			m.log.Error("Failed to append history", "error", err)
		}
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	if d.Version <= m.saved {
		m.log.Debug("Skipping stale draft snapshot", "version", d.Version, "saved", m.saved)
		return
	}
	if err := m.store.SaveRecord(ctx, store.KeyLastArtifact, d); err != nil {
		m.log.Error("Failed to save last artifact", "error", err)
		return
	}
	m.saved = d.Version
}

func (m *Manager) trigger(caption string) {
	if m.auditor != nil {
		m.auditor.Trigger(caption)
	}
}

func layoutOf(req *types.PostRequest) types.Layout {
	if req.Layout == "" {
		return types.LayoutFeed
	}
	return req.Layout
}
