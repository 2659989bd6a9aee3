package generation

import (
	"strconv"
	"strings"

	"github.com/jonathan/clinic-studio/internal/llm"
	"github.com/jonathan/clinic-studio/internal/prompts"
	"github.com/jonathan/clinic-studio/internal/types"
)

// payload assembles the parts of a request in a fixed order: instruction,
// persona block, evidence block, then any media with its analysis instruction.
type payload struct {
	instruction string
	persona     string
	evidence    *types.Citation
	media       *types.Media
	mediaNote   string
}

func (p payload) parts() []llm.Part {
	parts := []llm.Part{llm.TextPart(p.instruction), llm.TextPart(p.persona)}
	if p.evidence != nil {
		parts = append(parts, llm.TextPart(renderEvidence(p.evidence)))
	}
	if p.media != nil {
		parts = append(parts, llm.TextPart(p.mediaNote), llm.BlobPart(p.media.MIMEType, p.media.Data))
	}
	return parts
}

func (g *Generator) instruction(key string, data map[string]string) string {
	return prompts.Format(prompts.MustGet(prompts.StudioFile, key), data)
}

func renderEvidence(c *types.Citation) string {
	return prompts.Format(prompts.MustGet(prompts.StudioFile, "evidence"), map[string]string{
		"Title":    c.Title,
		"Source":   c.Source,
		"Year":     c.Year,
		"Authors":  strings.Join(c.Authors, ", "),
		"Abstract": c.Abstract,
	})
}

// toneOr falls back to the persona's default tone when the request leaves it blank.
func toneOr(t types.Tone, fallback string) string {
	if t != "" {
		return string(t)
	}
	if fallback != "" {
		return fallback
	}
	return string(types.ToneProfessional)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func listOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func itoaOr(n int, fallback string) string {
	if n == 0 {
		return fallback
	}
	return strconv.Itoa(n)
}
