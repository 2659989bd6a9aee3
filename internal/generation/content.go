package generation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/clinic-studio/internal/llm"
	"github.com/jonathan/clinic-studio/internal/persona"
	"github.com/jonathan/clinic-studio/internal/prompts"
	"github.com/jonathan/clinic-studio/internal/types"
)

const (
	creativeTemperature = 0.7
	clinicalTemperature = 0.2
	auditTemperature    = 0.1
)

// Post generates the text of a social post. A reference image travels as
// inline data and the instruction asks the backend to analyze it.
func (g *Generator) Post(ctx context.Context, req *types.PostRequest) (*types.PostContent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	who := g.persona.Current()
	p := payload{
		instruction: g.instruction("post", map[string]string{
			"Topic":    req.Topic,
			"Tone":     toneOr(req.Tone, who.DefaultTone),
			"Audience": orDefault(req.Audience, "general public"),
		}),
		persona:  persona.Render(who),
		evidence: req.Evidence,
	}
	if req.ReferenceImage != nil {
		p.media = req.ReferenceImage
		p.mediaNote = prompts.MustGet(prompts.StudioFile, "reference-image")
	}

	var post types.PostContent
	err := g.generateJSON(ctx, types.KindPost, &llm.Request{
		Tier:        llm.TierStandard,
		Parts:       p.parts(),
		Schema:      postSchema,
		Temperature: creativeTemperature,
	}, &post)
	if err != nil {
		return nil, err
	}
	post.Hashtags = NormalizeHashtags(post.Hashtags)
	return &post, nil
}

type articleReply struct {
	Title        string   `json:"title"`
	Slug         string   `json:"slug"`
	MarkdownBody string   `json:"markdown_body"`
	SEONotes     []string `json:"seo_notes"`
}

// Article generates an SEO article rendered to HTML.
func (g *Generator) Article(ctx context.Context, req *types.ArticleRequest) (*types.ArticleContent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	who := g.persona.Current()
	p := payload{
		instruction: g.instruction("article", map[string]string{
			"Topic":    req.Topic,
			"Keywords": listOr(req.Keywords, "choose the most relevant"),
			"Tone":     toneOr(req.Tone, who.DefaultTone),
			"Audience": orDefault(req.Audience, "patients and caregivers"),
		}),
		persona:  persona.Render(who),
		evidence: req.Evidence,
	}

	var reply articleReply
	err := g.generateJSON(ctx, types.KindArticle, &llm.Request{
		Tier:        llm.TierAdvanced,
		Parts:       p.parts(),
		Schema:      articleSchema,
		Temperature: creativeTemperature,
	}, &reply)
	if err != nil {
		return nil, err
	}
	return buildArticle(types.KindArticle, reply)
}

// ArticleFromAudio transcribes a recording into an article.
func (g *Generator) ArticleFromAudio(ctx context.Context, req *types.AudioArticleRequest) (*types.AudioArticle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	who := g.persona.Current()
	p := payload{
		instruction: g.instruction("audio-article", map[string]string{
			"Topic": orDefault(req.Topic, "infer from the recording"),
			"Tone":  toneOr(req.Tone, who.DefaultTone),
		}),
		persona:   persona.Render(who),
		media:     req.Audio,
		mediaNote: "The recording to transcribe is attached.",
	}

	var reply articleReply
	err := g.generateJSON(ctx, types.KindAudioArticle, &llm.Request{
		Tier:        llm.TierAdvanced,
		Parts:       p.parts(),
		Schema:      articleSchema,
		Temperature: clinicalTemperature,
	}, &reply)
	if err != nil {
		return nil, err
	}
	article, err := buildArticle(types.KindAudioArticle, reply)
	if err != nil {
		return nil, err
	}
	return &types.AudioArticle{ArticleContent: *article}, nil
}

func buildArticle(kind types.Kind, reply articleReply) (*types.ArticleContent, error) {
	if strings.TrimSpace(reply.MarkdownBody) == "" {
		return nil, &EmptyResponseError{Kind: kind}
	}
	html, err := RenderMarkdown(reply.MarkdownBody)
	if err != nil {
		return nil, &ParseError{Kind: kind, Message: "invalid markdown body", Cause: err}
	}
	slug := Slugify(reply.Slug)
	if slug == "" {
		slug = Slugify(reply.Title)
	}
	return &types.ArticleContent{
		Title:     reply.Title,
		Slug:      slug,
		HTMLBody:  html,
		WordCount: CountWords(reply.MarkdownBody),
		SEONotes:  reply.SEONotes,
	}, nil
}

// Infographic generates sectioned content. Images are fetched separately by FillInfographicImages.
func (g *Generator) Infographic(ctx context.Context, req *types.InfographicRequest) (*types.InfographicContent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := payload{
		instruction: g.instruction("infographic", map[string]string{
			"Topic":    req.Topic,
			"Audience": orDefault(req.Audience, "general public"),
		}),
		persona:  g.persona.Block(),
		evidence: req.Evidence,
	}

	var content types.InfographicContent
	err := g.generateJSON(ctx, types.KindInfographic, &llm.Request{
		Tier:        llm.TierStandard,
		Parts:       p.parts(),
		Schema:      infographicSchema,
		Temperature: creativeTemperature,
	}, &content)
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// ConversionAsset generates a channel-specific persuasive asset.
func (g *Generator) ConversionAsset(ctx context.Context, req *types.ConversionAssetRequest) (*types.ConversionAsset, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	who := g.persona.Current()
	p := payload{
		instruction: g.instruction("conversion-asset", map[string]string{
			"Topic":    req.Topic,
			"Channel":  string(req.Channel),
			"Goal":     orDefault(req.Goal, "schedule an evaluation"),
			"Audience": orDefault(req.Audience, "prospective patients"),
			"Tone":     toneOr(req.Tone, who.DefaultTone),
		}),
		persona: persona.Render(who),
	}

	var asset types.ConversionAsset
	err := g.generateJSON(ctx, types.KindConversionAsset, &llm.Request{
		Tier:        llm.TierStandard,
		Parts:       p.parts(),
		Schema:      conversionSchema,
		Temperature: creativeTemperature,
	}, &asset)
	if err != nil {
		return nil, err
	}
	asset.Channel = req.Channel
	return &asset, nil
}

// VideoScript generates a short-form video script with ordered lines.
func (g *Generator) VideoScript(ctx context.Context, req *types.VideoScriptRequest) (*types.VideoScript, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	who := g.persona.Current()
	p := payload{
		instruction: g.instruction("video-script", map[string]string{
			"Topic":    req.Topic,
			"Duration": itoaOr(req.DurationSeconds, "60"),
			"Tone":     toneOr(req.Tone, who.DefaultTone),
		}),
		persona:  persona.Render(who),
		evidence: req.Evidence,
	}

	var script types.VideoScript
	err := g.generateJSON(ctx, types.KindVideoScript, &llm.Request{
		Tier:        llm.TierStandard,
		Parts:       p.parts(),
		Schema:      videoScriptSchema,
		Temperature: creativeTemperature,
	}, &script)
	if err != nil {
		return nil, err
	}
	sortLines(script.Lines)
	return &script, nil
}

// sortLines orders script lines by Order and renumbers them from 1.
func sortLines(lines []types.ScriptLine) {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Order < lines[j].Order })
	for i := range lines {
		lines[i].Order = i + 1
	}
}

// AnalyzeWound reads a wound photo.
func (g *Generator) AnalyzeWound(ctx context.Context, req *types.WoundAnalysisRequest) (*types.WoundAnalysis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := payload{
		instruction: g.instruction("wound-analysis", map[string]string{
			"Notes": orDefault(req.Notes, "none"),
		}),
		persona:   g.persona.Block(),
		media:     req.Photo,
		mediaNote: "Analyze the attached wound photograph.",
	}

	var analysis types.WoundAnalysis
	err := g.generateJSON(ctx, types.KindWoundAnalysis, &llm.Request{
		Tier:        llm.TierAdvanced,
		Parts:       p.parts(),
		Schema:      woundSchema,
		Temperature: clinicalTemperature,
	}, &analysis)
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

// CheckDrugInteractions reports interactions among the requested drugs.
func (g *Generator) CheckDrugInteractions(ctx context.Context, req *types.DrugInteractionRequest) (*types.DrugInteractionReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := payload{
		instruction: g.instruction("drug-interaction", map[string]string{
			"Drugs": strings.Join(req.Drugs, ", "),
		}),
		persona: g.persona.Block(),
	}

	var report types.DrugInteractionReport
	err := g.generateJSON(ctx, types.KindDrugInteraction, &llm.Request{
		Tier:        llm.TierAdvanced,
		Parts:       p.parts(),
		Schema:      drugInteractionSchema,
		Temperature: clinicalTemperature,
	}, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// PlanSupplements proposes a supplementation plan.
func (g *Generator) PlanSupplements(ctx context.Context, req *types.SupplementPlanRequest) (*types.SupplementPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := payload{
		instruction: g.instruction("supplement-plan", map[string]string{
			"Goal":        req.Goal,
			"Age":         itoaOr(req.Age, "not informed"),
			"Conditions":  listOr(req.Conditions, "none informed"),
			"Medications": listOr(req.Medications, "none informed"),
		}),
		persona: g.persona.Block(),
	}

	var plan types.SupplementPlan
	err := g.generateJSON(ctx, types.KindSupplementPlan, &llm.Request{
		Tier:        llm.TierStandard,
		Parts:       p.parts(),
		Schema:      supplementSchema,
		Temperature: clinicalTemperature,
	}, &plan)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// auditKind labels audit calls in metrics and errors.
const auditKind types.Kind = "audit"

// Audit classifies text against the advertising rules. Blank text returns a
// nil result without calling the backend.
func (g *Generator) Audit(ctx context.Context, text string) (*types.ComplianceAuditResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	p := payload{
		instruction: g.instruction("audit", map[string]string{"Text": text}),
		persona:     g.persona.Block(),
	}

	var result types.ComplianceAuditResult
	err := g.generateJSON(ctx, auditKind, &llm.Request{
		Tier:        llm.TierLite,
		Parts:       p.parts(),
		Schema:      auditSchema,
		Temperature: auditTemperature,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Generate dispatches any request to its generator. Posts come back complete:
// the user's image when supplied, otherwise one generated from the text.
func (g *Generator) Generate(ctx context.Context, req types.GenerationRequest) (types.Artifact, error) {
	if req == nil {
		return nil, fmt.Errorf("generation request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	switch r := req.(type) {
	case *types.PostRequest:
		return asArtifact(g.completePost(ctx, r))
	case *types.ArticleRequest:
		return asArtifact(g.Article(ctx, r))
	case *types.InfographicRequest:
		return asArtifact(g.Infographic(ctx, r))
	case *types.ConversionAssetRequest:
		return asArtifact(g.ConversionAsset(ctx, r))
	case *types.VideoScriptRequest:
		return asArtifact(g.VideoScript(ctx, r))
	case *types.AudioArticleRequest:
		return asArtifact(g.ArticleFromAudio(ctx, r))
	case *types.WoundAnalysisRequest:
		return asArtifact(g.AnalyzeWound(ctx, r))
	case *types.DrugInteractionRequest:
		return asArtifact(g.CheckDrugInteractions(ctx, r))
	case *types.SupplementPlanRequest:
		return asArtifact(g.PlanSupplements(ctx, r))
	}
	return nil, fmt.Errorf("unsupported request kind %s", req.Kind())
}

// asArtifact keeps a failed call from returning a typed nil artifact.
func asArtifact[T types.Artifact](a T, err error) (types.Artifact, error) {
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (g *Generator) completePost(ctx context.Context, req *types.PostRequest) (*types.PostArtifact, error) {
	post, err := g.Post(ctx, req)
	if err != nil {
		return nil, err
	}
	artifact := &types.PostArtifact{Post: *post, Layout: layoutOf(req)}
	if req.ReferenceImage != nil {
		artifact.Image = &types.Image{MIMEType: req.ReferenceImage.MIMEType, Data: req.ReferenceImage.Data}
		artifact.ImageUserSupplied = true
		return artifact, nil
	}
	img, err := g.Image(ctx, post.ImagePrompt, artifact.Layout)
	if err != nil {
		return nil, err
	}
	artifact.Image = img
	return artifact, nil
}

func layoutOf(req *types.PostRequest) types.Layout {
	if req.Layout == "" {
		return types.LayoutFeed
	}
	return req.Layout
}
