package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/clinic-studio/internal/llm"
	"github.com/jonathan/clinic-studio/internal/prompts"
	"github.com/jonathan/clinic-studio/internal/types"
)

// imageKind labels image calls in metrics and errors.
const imageKind types.Kind = "image"

// Image generates a photorealistic image for prompt. Feed layouts are square
// (1:1) and story layouts tall (9:16). The first inline image of the reply is
// returned.
func (g *Generator) Image(ctx context.Context, prompt string, layout types.Layout) (img *types.Image, err error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &types.ValidationError{
			Kind:   imageKind,
			Fields: []types.FieldError{{Field: "prompt", Rule: "required"}},
		}
	}

	ctx, span := tracer.Start(ctx, "generation.image")
	span.SetAttributes(attribute.String("studio.aspect_ratio", layout.AspectRatio()))
	start := time.Now()
	defer func() {
		observe(imageKind, start, err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	resp, err := g.call(ctx, &llm.Request{
		Tier:        llm.TierImage,
		Image:       true,
		AspectRatio: layout.AspectRatio(),
		Parts: []llm.Part{llm.TextPart(prompts.Format(prompts.MustGet(prompts.StudioFile, "image"), map[string]string{
			"Prompt": prompt,
		}))},
	})
	if errors.Is(err, llm.ErrNoContent) {
		return nil, &NoImageInResponseError{}
	}
	if err != nil {
		g.log.Error("Image generation failed", "error", err)
		return nil, err
	}
	for _, blob := range resp.Images {
		if len(blob.Data) > 0 {
			return &types.Image{MIMEType: blob.MIMEType, Data: blob.Data}, nil
		}
	}
	return nil, &NoImageInResponseError{Text: strings.TrimSpace(resp.Text)}
}

// FillInfographicImages fetches the hero and anatomy images concurrently.
// Each result is delivered through apply as a patch touching only its own
// field, in whichever order they finish. A failed fetch is logged and leaves
// its field nil; it never fails the artifact. apply calls are serialized.
func (g *Generator) FillInfographicImages(ctx context.Context, content *types.InfographicContent, apply func(types.InfographicPatch)) {
	// No shared context: one failed fetch never cancels the other.
	var (
		group errgroup.Group
		mu    sync.Mutex
	)
	fetch := func(field types.InfographicField, prompt string) {
		if strings.TrimSpace(prompt) == "" {
			return
		}
		group.Go(func() error {
			img, err := g.Image(ctx, prompt, types.LayoutFeed)
			if err != nil {
				g.log.Warn("Infographic image failed", "field", field, "error", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			apply(types.InfographicPatch{Field: field, Image: img})
			return nil
		})
	}
	fetch(types.FieldHeroImage, content.HeroImagePrompt)
	fetch(types.FieldAnatomyImage, content.AnatomyImagePrompt)
	_ = group.Wait()
}
