// Package pipeline provides the high-level orchestration of the content studio.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonathan/clinic-studio/internal/audit"
	"github.com/jonathan/clinic-studio/internal/draft"
	"github.com/jonathan/clinic-studio/internal/logger"
	"github.com/jonathan/clinic-studio/internal/persona"
	"github.com/jonathan/clinic-studio/internal/publish"
	"github.com/jonathan/clinic-studio/internal/store"
	"github.com/jonathan/clinic-studio/internal/types"
)

var tracer = otel.Tracer("github.com/jonathan/clinic-studio/internal/pipeline")

// Progress steps.
const (
	StepStarted     = "started"
	StepGenerated   = "generated"
	StepImagePatch  = "image_patch"
	StepCompleted   = "completed"
	StepFailed      = "failed"
	StepPublish     = "publish"
	CategoryPublish = "publish"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when run progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for one generation run
type RunOptions struct {
	Request    types.GenerationRequest
	OnProgress ProgressCallback
}

// PublishOptions holds configuration for one publish attempt
type PublishOptions struct {
	OnProgress ProgressCallback
}

// ContentGenerator is the generation surface the studio drives.
// generation.Generator implements it.
type ContentGenerator interface {
	Generate(ctx context.Context, req types.GenerationRequest) (types.Artifact, error)
	FillInfographicImages(ctx context.Context, content *types.InfographicContent, apply func(types.InfographicPatch))
}

// Publisher runs publication attempts. publish.Pipeline implements it.
type Publisher interface {
	Publish(ctx context.Context, creds publish.Credentials, in publish.Input, observe publish.Observer) *publish.Attempt
}

// Studio wires the generator, the draft manager, the compliance auditor,
// the publisher and the store.
type Studio struct {
	gen       ContentGenerator
	drafts    *draft.Manager
	auditor   *audit.Debouncer
	publisher Publisher
	store     store.Store
	sealer    *store.Sealer
	persona   *persona.Holder
	log       *logger.Logger
	now       func() time.Time
}

// Option configures a Studio.
type Option func(*Studio)

// WithAuditor exposes the debounced auditor state through the studio.
func WithAuditor(a *audit.Debouncer) Option {
	return func(s *Studio) { s.auditor = a }
}

// WithPublisher sets the publication pipeline.
func WithPublisher(p Publisher) Option {
	return func(s *Studio) { s.publisher = p }
}

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(st store.Store) Option {
	return func(s *Studio) { s.store = st }
}

// WithSealer enables encrypted publishing credentials.
func WithSealer(sealer *store.Sealer) Option {
	return func(s *Studio) { s.sealer = sealer }
}

// WithPersona shares the persona holder the generator reads.
func WithPersona(h *persona.Holder) Option {
	return func(s *Studio) { s.persona = h }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Studio) { s.log = l }
}

// WithClock overrides time.Now for history stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Studio) { s.now = now }
}

// New builds a studio. drafts must share the store passed with WithStore.
func New(gen ContentGenerator, drafts *draft.Manager, opts ...Option) *Studio {
	s := &Studio{
		gen:       gen,
		drafts:    drafts,
		publisher: publish.NewPipeline(nil, nil),
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	if s.persona == nil {
		s.persona = persona.NewHolder(persona.Default())
	}
	return s
}

// emitProgress calls the progress callback if configured
func emitProgress(cb ProgressCallback, runID, step, category, message string, content any) {
	if cb != nil {
		cb(ProgressEvent{
			Step:     step,
			Category: category,
			Message:  message,
			RunID:    runID,
			Content:  content,
		})
	}
}

// Run generates one artifact. Posts go through the draft manager, which owns
// their history and audit. Every other kind is appended to history here;
// infographic images are streamed as patches before the entry is written.
func (s *Studio) Run(ctx context.Context, opts RunOptions) (types.Artifact, error) {
	if opts.Request == nil {
		return nil, errors.New("generation request is required")
	}
	kind := opts.Request.Kind()
	runID := uuid.NewString()
	category := string(kind)

	ctx, span := tracer.Start(ctx, "studio.run")
	defer span.End()
	span.SetAttributes(attribute.String("studio.kind", category), attribute.String("studio.run_id", runID))

	emitProgress(opts.OnProgress, runID, StepStarted, category, fmt.Sprintf("Generating %s", kind), nil)
	s.log.Info("Run started", "run_id", runID, "kind", kind)

	artifact, err := s.generate(ctx, runID, opts)
	if err != nil {
		span.RecordError(err)
		s.log.Warn("Run failed", "run_id", runID, "kind", kind, "error", err)
		emitProgress(opts.OnProgress, runID, StepFailed, category, err.Error(), nil)
		return nil, err
	}

	emitProgress(opts.OnProgress, runID, StepCompleted, category, fmt.Sprintf("Generated %s", kind), artifact)
	s.log.Info("Run completed", "run_id", runID, "kind", kind)
	return artifact, nil
}

func (s *Studio) generate(ctx context.Context, runID string, opts RunOptions) (types.Artifact, error) {
	if req, ok := opts.Request.(*types.PostRequest); ok {
		d, err := s.drafts.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		return d.Artifact(), nil
	}

	artifact, err := s.gen.Generate(ctx, opts.Request)
	if err != nil {
		return nil, err
	}
	category := string(artifact.ArtifactKind())

	if info, ok := artifact.(*types.InfographicContent); ok {
		emitProgress(opts.OnProgress, runID, StepGenerated, category, "Infographic text ready, fetching images", info)
		s.gen.FillInfographicImages(ctx, info, func(p types.InfographicPatch) {
			info.Apply(p)
			emitProgress(opts.OnProgress, runID, StepImagePatch, category, fmt.Sprintf("Image ready: %s", p.Field), p)
		})
	}

	if err := s.store.AppendHistory(context.WithoutCancel(ctx), types.NewHistoryEntry(artifact, s.now())); err != nil {
		s.log.Error("Failed to append history", "run_id", runID, "error", err)
	}
	return artifact, nil
}

// Publish runs the publication pipeline for the active draft with the stored
// credentials. Missing credentials end the attempt in not_configured.
func (s *Studio) Publish(ctx context.Context, opts PublishOptions) (*publish.Attempt, error) {
	d, ok := s.drafts.Current()
	if !ok {
		return nil, draft.ErrNoDraft
	}
	creds, _, err := s.Credentials(ctx)
	if err != nil && !errors.Is(err, store.ErrNoSecret) {
		return nil, err
	}

	runID := uuid.NewString()
	observe := func(a publish.Attempt) {
		msg := string(a.Status)
		if a.Err != nil {
			msg = a.Err.Error()
		}
		emitProgress(opts.OnProgress, runID, StepPublish, CategoryPublish, msg, a)
	}
	in := publish.Input{Image: d.Image, Caption: d.Post.Caption, Hashtags: d.Post.Hashtags}
	attempt := s.publisher.Publish(ctx, creds, in, observe)
	s.log.Info("Publish attempt finished", "run_id", runID, "status", attempt.Status)
	return attempt, nil
}

// Credentials loads the sealed publishing credentials.
func (s *Studio) Credentials(ctx context.Context) (publish.Credentials, bool, error) {
	var creds publish.Credentials
	found, err := store.LoadSealed(ctx, s.store, s.sealer, store.KeyPublishCredentials, &creds)
	if err != nil {
		return publish.Credentials{}, found, fmt.Errorf("failed to load publish credentials: %w", err)
	}
	return creds, found, nil
}

// SaveCredentials seals and stores the publishing credentials.
func (s *Studio) SaveCredentials(ctx context.Context, creds publish.Credentials) error {
	if err := store.SaveSealed(ctx, s.store, s.sealer, store.KeyPublishCredentials, creds); err != nil {
		return fmt.Errorf("failed to save publish credentials: %w", err)
	}
	return nil
}

// Restore reloads the persisted persona and the last open draft.
func (s *Studio) Restore(ctx context.Context) error {
	var p persona.Persona
	found, err := s.store.LoadRecord(ctx, store.KeyPersona, &p)
	if err != nil {
		return fmt.Errorf("failed to load persona: %w", err)
	}
	if found {
		s.persona.Set(p)
	}
	if _, err := s.drafts.Restore(ctx); err != nil {
		return err
	}
	return nil
}

// Persona returns the active persona.
func (s *Studio) Persona() persona.Persona {
	return s.persona.Current()
}

// SetPersona validates, activates and persists p.
func (s *Studio) SetPersona(ctx context.Context, p persona.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.persona.Set(p)
	if err := s.store.SaveRecord(ctx, store.KeyPersona, p); err != nil {
		return fmt.Errorf("failed to save persona: %w", err)
	}
	return nil
}

// Drafts returns the draft manager.
func (s *Studio) Drafts() *draft.Manager {
	return s.drafts
}

// AuditState returns the latest compliance audit of the draft caption.
func (s *Studio) AuditState() audit.State {
	if s.auditor == nil {
		return audit.State{}
	}
	return s.auditor.State()
}

// History lists up to limit entries, newest first.
func (s *Studio) History(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	return s.store.ListHistory(ctx, limit)
}

// HistoryEntry returns one entry by id.
func (s *Studio) HistoryEntry(ctx context.Context, id uuid.UUID) (*types.HistoryEntry, error) {
	return s.store.GetHistory(ctx, id)
}

// SaveCalculation appends a calculator run.
func (s *Studio) SaveCalculation(ctx context.Context, rec types.CalculatorRecord) (*types.CalculatorRecord, error) {
	return store.AppendCalculator(ctx, s.store, rec)
}

// Calculations lists calculator runs, newest first.
func (s *Studio) Calculations(ctx context.Context) ([]types.CalculatorRecord, error) {
	return store.ListCalculator(ctx, s.store)
}
