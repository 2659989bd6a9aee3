// Package generation builds backend requests for every content kind and parses
// the structured replies into typed artifacts.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jonathan/clinic-studio/internal/llm"
	"github.com/jonathan/clinic-studio/internal/logger"
	"github.com/jonathan/clinic-studio/internal/metrics"
	"github.com/jonathan/clinic-studio/internal/persona"
	"github.com/jonathan/clinic-studio/internal/resilience"
	"github.com/jonathan/clinic-studio/internal/schemas"
	"github.com/jonathan/clinic-studio/internal/types"
)

var tracer = otel.Tracer("github.com/jonathan/clinic-studio/internal/generation")

// Generator turns typed requests into artifacts. Every backend call goes
// through the retry policy; nothing else in the package retries.
type Generator struct {
	client  llm.Client
	persona *persona.Holder
	policy  resilience.Policy
	log     *logger.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithPolicy overrides the retry policy.
func WithPolicy(p resilience.Policy) Option {
	return func(g *Generator) { g.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// New creates a Generator reading the persona from holder at call time.
func New(client llm.Client, holder *persona.Holder, opts ...Option) *Generator {
	g := &Generator{
		client:  client,
		persona: holder,
		policy:  resilience.DefaultPolicy(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.policy.Log == nil {
		g.policy.Log = g.log
	}
	return g
}

// call runs one request through the retry policy.
func (g *Generator) call(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	return resilience.Execute(ctx, g.policy, func(ctx context.Context) (*llm.Response, error) {
		return g.client.Generate(ctx, req)
	})
}

// generateJSON sends a structured request and decodes the validated reply into out.
func (g *Generator) generateJSON(ctx context.Context, kind types.Kind, req *llm.Request, out any) (err error) {
	ctx, span := tracer.Start(ctx, "generation."+string(kind))
	start := time.Now()
	defer func() {
		observe(kind, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("studio.kind", string(kind)),
		attribute.String("studio.model", g.client.GetModel(req.Tier)),
	)

	resp, err := g.call(ctx, req)
	if errors.Is(err, llm.ErrNoContent) {
		g.log.Warn("Backend returned no content", "kind", kind)
		return &EmptyResponseError{Kind: kind}
	}
	if err != nil {
		g.log.Error("Generation failed", "kind", kind, "error", err)
		return err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return &EmptyResponseError{Kind: kind}
	}

	doc := llm.CleanJSONBlock(text)
	if err := schemas.ValidateDocument(string(kind), req.Schema.JSONSchema(), []byte(doc)); err != nil {
		return &ParseError{Kind: kind, Message: "reply does not match schema", Cause: err}
	}
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return &ParseError{Kind: kind, Message: "failed to decode reply", Cause: err}
	}

	g.log.Debug("Generation succeeded", "kind", kind, "duration", time.Since(start))
	return nil
}

func observe(kind types.Kind, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GenerationTotal.WithLabelValues(string(kind), status).Inc()
	metrics.GenerationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}
