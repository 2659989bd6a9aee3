//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Artifact is a parsed generation result. ArtifactKind matches the Kind of the
// request that produced it.
type Artifact interface {
	ArtifactKind() Kind
}

// Image is an image reference: inline bytes, a hosted URL, or both.
type Image struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// PostContent is the text portion of a social post.
type PostContent struct {
	Headline    string   `json:"headline"`
	Caption     string   `json:"caption"`
	Hashtags    []string `json:"hashtags"`
	ImagePrompt string   `json:"image_prompt"`
}

// PostArtifact is a complete post: text plus its image.
type PostArtifact struct {
	Post              PostContent `json:"post"`
	Image             *Image      `json:"image,omitempty"`
	ImageUserSupplied bool        `json:"image_user_supplied"`
	Layout            Layout      `json:"layout"`
}

// ArticleContent is an SEO article rendered to HTML.
type ArticleContent struct {
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	HTMLBody  string   `json:"html_body"`
	WordCount int      `json:"word_count"`
	SEONotes  []string `json:"seo_notes,omitempty"`
}

// InfographicSection is one block of an infographic.
type InfographicSection struct {
	Heading     string   `json:"heading"`
	Points      []string `json:"points"`
	ImagePrompt string   `json:"image_prompt,omitempty"`
}

// InfographicContent is sectioned infographic content with two background images.
type InfographicContent struct {
	Title              string               `json:"title"`
	Sections           []InfographicSection `json:"sections"`
	HeroImagePrompt    string               `json:"hero_image_prompt"`
	AnatomyImagePrompt string               `json:"anatomy_image_prompt"`
	HeroImage          *Image               `json:"hero_image,omitempty"`
	AnatomyImage       *Image               `json:"anatomy_image,omitempty"`
}

// InfographicField names the image slot an InfographicPatch fills.
type InfographicField string

const (
	FieldHeroImage    InfographicField = "hero_image"
	FieldAnatomyImage InfographicField = "anatomy_image"
)

// InfographicPatch sets exactly one image slot of an infographic.
type InfographicPatch struct {
	Field InfographicField `json:"field"`
	Image *Image           `json:"image"`
}

// Apply sets the patched slot and leaves every other field alone.
func (c *InfographicContent) Apply(p InfographicPatch) {
	switch p.Field {
	case FieldHeroImage:
		c.HeroImage = p.Image
	case FieldAnatomyImage:
		c.AnatomyImage = p.Image
	}
}

// ConversionAsset is a short persuasive piece for one channel.
type ConversionAsset struct {
	Headline     string  `json:"headline"`
	Body         string  `json:"body"`
	CallToAction string  `json:"call_to_action"`
	Channel      Channel `json:"channel"`
}

// Thumbnail describes a video cover.
type Thumbnail struct {
	Headline string `json:"headline"`
	Visual   string `json:"visual"`
}

// ScriptLine is one timed beat of a video script.
type ScriptLine struct {
	Order     int    `json:"order"`
	Visual    string `json:"visual"`
	Narration string `json:"narration"`
	Seconds   int    `json:"seconds"`
}

// VideoScript is an ordered short-form video script.
type VideoScript struct {
	Title     string       `json:"title"`
	Thumbnail Thumbnail    `json:"thumbnail"`
	Lines     []ScriptLine `json:"lines"`
}

// AudioArticle is an article transcribed from a recording.
type AudioArticle struct {
	ArticleContent
}

// WoundAnalysis is the structured reading of a wound photo.
type WoundAnalysis struct {
	Classification  string   `json:"classification"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
	Disclaimer      string   `json:"disclaimer"`
}

// Interaction is one reported drug interaction.
type Interaction struct {
	Drugs          []string `json:"drugs"`
	Severity       string   `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// DrugInteractionReport lists interactions among the requested drugs.
type DrugInteractionReport struct {
	Summary      string        `json:"summary"`
	Interactions []Interaction `json:"interactions"`
}

// SupplementItem is one entry of a supplement plan.
type SupplementItem struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Timing    string `json:"timing"`
	Rationale string `json:"rationale"`
}

// SupplementPlan is a supplementation plan with safety warnings.
type SupplementPlan struct {
	Items    []SupplementItem `json:"items"`
	Warnings []string         `json:"warnings"`
}

func (*PostArtifact) ArtifactKind() Kind          { return KindPost }
func (*ArticleContent) ArtifactKind() Kind        { return KindArticle }
func (*InfographicContent) ArtifactKind() Kind    { return KindInfographic }
func (*ConversionAsset) ArtifactKind() Kind       { return KindConversionAsset }
func (*VideoScript) ArtifactKind() Kind           { return KindVideoScript }
func (*AudioArticle) ArtifactKind() Kind          { return KindAudioArticle }
func (*WoundAnalysis) ArtifactKind() Kind         { return KindWoundAnalysis }
func (*DrugInteractionReport) ArtifactKind() Kind { return KindDrugInteraction }
func (*SupplementPlan) ArtifactKind() Kind        { return KindSupplementPlan }

// NewArtifact returns an empty artifact value for kind, ready for JSON decoding.
func NewArtifact(kind Kind) (Artifact, error) {
	switch kind {
	case KindPost:
		return &PostArtifact{}, nil
	case KindArticle:
		return &ArticleContent{}, nil
	case KindInfographic:
		return &InfographicContent{}, nil
	case KindConversionAsset:
		return &ConversionAsset{}, nil
	case KindVideoScript:
		return &VideoScript{}, nil
	case KindAudioArticle:
		return &AudioArticle{}, nil
	case KindWoundAnalysis:
		return &WoundAnalysis{}, nil
	case KindDrugInteraction:
		return &DrugInteractionReport{}, nil
	case KindSupplementPlan:
		return &SupplementPlan{}, nil
	}
	return nil, fmt.Errorf("unknown artifact kind %q", kind)
}

// RiskLevel is the compliance risk tier of a text.
type RiskLevel string

const (
	RiskSafe    RiskLevel = "safe"
	RiskWarning RiskLevel = "warning"
	RiskDanger  RiskLevel = "danger"
)

// ComplianceAuditResult classifies a text against the advertising rules.
// It is recomputed on every qualifying change and never stored in history.
type ComplianceAuditResult struct {
	RiskLevel   RiskLevel `json:"riskLevel"`
	Issues      []string  `json:"issues"`
	Suggestions []string  `json:"suggestions"`
}

// HistoryEntry is an immutable snapshot of a successful primary generation.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Kind      Kind      `json:"kind"`
	Artifact  Artifact  `json:"-"`
}

// NewHistoryEntry stamps an artifact with a fresh id and time.
func NewHistoryEntry(artifact Artifact, now time.Time) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.New(),
		CreatedAt: now.UTC(),
		Kind:      artifact.ArtifactKind(),
		Artifact:  artifact,
	}
}

type historyEntryJSON struct {
	ID        uuid.UUID       `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Kind      Kind            `json:"kind"`
	Artifact  json.RawMessage `json:"artifact"`
}

// MarshalJSON writes the artifact next to its kind tag.
func (h HistoryEntry) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(h.Artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return json.Marshal(historyEntryJSON{ID: h.ID, CreatedAt: h.CreatedAt, Kind: h.Kind, Artifact: raw})
}

// UnmarshalJSON decodes the artifact into the concrete type named by kind.
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var wire historyEntryJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	artifact, err := DecodeArtifact(wire.Kind, wire.Artifact)
	if err != nil {
		return err
	}
	*h = HistoryEntry{ID: wire.ID, CreatedAt: wire.CreatedAt, Kind: wire.Kind, Artifact: artifact}
	return nil
}

// DecodeArtifact decodes raw JSON into the artifact type for kind.
func DecodeArtifact(kind Kind, raw []byte) (Artifact, error) {
	artifact, err := NewArtifact(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, artifact); err != nil {
		return nil, fmt.Errorf("failed to decode %s artifact: %w", kind, err)
	}
	return artifact, nil
}

// CalculatorRecord is one saved clinical calculator run.
type CalculatorRecord struct {
	ID         uuid.UUID          `json:"id"`
	Calculator string             `json:"calculator" validate:"required"`
	Inputs     map[string]float64 `json:"inputs"`
	Score      float64            `json:"score"`
	Band       string             `json:"band,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Validate checks the record fields.
func (r *CalculatorRecord) Validate() error { return validateStruct("calculator", r) }
