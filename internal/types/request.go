// Package types provides the request and artifact types shared across the content studio.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind identifies a generation request variant and the artifact it produces.
type Kind string

const (
	KindPost            Kind = "post"
	KindArticle         Kind = "article"
	KindInfographic     Kind = "infographic"
	KindConversionAsset Kind = "conversion_asset"
	KindVideoScript     Kind = "video_script"
	KindAudioArticle    Kind = "audio_article"
	KindWoundAnalysis   Kind = "wound_analysis"
	KindDrugInteraction Kind = "drug_interaction"
	KindSupplementPlan  Kind = "supplement_plan"
)

// Kinds lists every request kind.
var Kinds = []Kind{
	KindPost, KindArticle, KindInfographic, KindConversionAsset, KindVideoScript,
	KindAudioArticle, KindWoundAnalysis, KindDrugInteraction, KindSupplementPlan,
}

// Tone is the voice requested for generated copy.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneEmpathetic   Tone = "empathetic"
	ToneEducational  Tone = "educational"
	ToneCasual       Tone = "casual"
)

// Layout selects the image format of a post.
type Layout string

const (
	LayoutFeed  Layout = "feed"
	LayoutStory Layout = "story"
)

// AspectRatio returns the image ratio for the layout: square for feed, tall for story.
func (l Layout) AspectRatio() string {
	if l == LayoutStory {
		return "9:16"
	}
	return "1:1"
}

// Channel is the delivery channel of a conversion asset.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
	ChannelLanding  Channel = "landing_page"
)

// Media is inline binary input: a reference image, an audio recording or a wound photo.
type Media struct {
	MIMEType string `json:"mime_type" validate:"required"`
	Data     []byte `json:"data" validate:"required"`
}

// Citation is a piece of published evidence quoted into a request.
type Citation struct {
	PMID     string   `json:"pmid,omitempty"`
	Title    string   `json:"title" validate:"required"`
	Source   string   `json:"source"`
	Year     string   `json:"year,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
}

// GenerationRequest is the sum type over request kinds. Each variant carries
// only the fields its generator reads.
type GenerationRequest interface {
	Kind() Kind
	Validate() error
}

// PostRequest asks for a social post.
type PostRequest struct {
	Topic          string    `json:"topic" validate:"required"`
	Tone           Tone      `json:"tone" validate:"omitempty,oneof=professional empathetic educational casual"`
	Audience       string    `json:"audience,omitempty"`
	Layout         Layout    `json:"layout" validate:"omitempty,oneof=feed story"`
	Evidence       *Citation `json:"evidence,omitempty"`
	ReferenceImage *Media    `json:"reference_image,omitempty"`
}

// ArticleRequest asks for an SEO article.
type ArticleRequest struct {
	Topic    string    `json:"topic" validate:"required"`
	Keywords []string  `json:"keywords,omitempty" validate:"max=10"`
	Tone     Tone      `json:"tone" validate:"omitempty,oneof=professional empathetic educational casual"`
	Audience string    `json:"audience,omitempty"`
	Evidence *Citation `json:"evidence,omitempty"`
}

// InfographicRequest asks for sectioned infographic content.
type InfographicRequest struct {
	Topic    string    `json:"topic" validate:"required"`
	Audience string    `json:"audience,omitempty"`
	Evidence *Citation `json:"evidence,omitempty"`
}

// ConversionAssetRequest asks for a short persuasive asset for a channel.
type ConversionAssetRequest struct {
	Topic    string  `json:"topic" validate:"required"`
	Channel  Channel `json:"channel" validate:"required,oneof=whatsapp email landing_page"`
	Goal     string  `json:"goal,omitempty"`
	Audience string  `json:"audience,omitempty"`
	Tone     Tone    `json:"tone" validate:"omitempty,oneof=professional empathetic educational casual"`
}

// VideoScriptRequest asks for a short-form video script.
type VideoScriptRequest struct {
	Topic           string    `json:"topic" validate:"required"`
	DurationSeconds int       `json:"duration_seconds" validate:"omitempty,min=15,max=600"`
	Tone            Tone      `json:"tone" validate:"omitempty,oneof=professional empathetic educational casual"`
	Evidence        *Citation `json:"evidence,omitempty"`
}

// AudioArticleRequest asks for an article transcribed from a recording.
type AudioArticleRequest struct {
	Audio *Media `json:"audio" validate:"required"`
	Topic string `json:"topic,omitempty"`
	Tone  Tone   `json:"tone" validate:"omitempty,oneof=professional empathetic educational casual"`
}

// WoundAnalysisRequest asks for an analysis of a wound photo.
type WoundAnalysisRequest struct {
	Photo *Media `json:"photo" validate:"required"`
	Notes string `json:"notes,omitempty"`
}

// DrugInteractionRequest asks for interactions among a set of drugs.
type DrugInteractionRequest struct {
	Drugs []string `json:"drugs" validate:"min=2,max=20,dive,required"`
}

// SupplementPlanRequest asks for a supplementation plan.
type SupplementPlanRequest struct {
	Goal        string   `json:"goal" validate:"required"`
	Age         int      `json:"age,omitempty" validate:"omitempty,min=0,max=120"`
	Conditions  []string `json:"conditions,omitempty"`
	Medications []string `json:"medications,omitempty"`
}

func (*PostRequest) Kind() Kind            { return KindPost }
func (*ArticleRequest) Kind() Kind         { return KindArticle }
func (*InfographicRequest) Kind() Kind     { return KindInfographic }
func (*ConversionAssetRequest) Kind() Kind { return KindConversionAsset }
func (*VideoScriptRequest) Kind() Kind     { return KindVideoScript }
func (*AudioArticleRequest) Kind() Kind    { return KindAudioArticle }
func (*WoundAnalysisRequest) Kind() Kind   { return KindWoundAnalysis }
func (*DrugInteractionRequest) Kind() Kind { return KindDrugInteraction }
func (*SupplementPlanRequest) Kind() Kind  { return KindSupplementPlan }

// Validate validates the PostRequest using the validator.
func (r *PostRequest) Validate() error { return validateStruct(KindPost, r) }

// Validate validates the ArticleRequest using the validator.
func (r *ArticleRequest) Validate() error { return validateStruct(KindArticle, r) }

// Validate validates the InfographicRequest using the validator.
func (r *InfographicRequest) Validate() error { return validateStruct(KindInfographic, r) }

// Validate validates the ConversionAssetRequest using the validator.
func (r *ConversionAssetRequest) Validate() error { return validateStruct(KindConversionAsset, r) }

// Validate validates the VideoScriptRequest using the validator.
func (r *VideoScriptRequest) Validate() error { return validateStruct(KindVideoScript, r) }

// Validate validates the AudioArticleRequest using the validator.
func (r *AudioArticleRequest) Validate() error { return validateStruct(KindAudioArticle, r) }

// Validate validates the WoundAnalysisRequest using the validator.
func (r *WoundAnalysisRequest) Validate() error { return validateStruct(KindWoundAnalysis, r) }

// Validate validates the DrugInteractionRequest using the validator.
func (r *DrugInteractionRequest) Validate() error { return validateStruct(KindDrugInteraction, r) }

// Validate validates the SupplementPlanRequest using the validator.
func (r *SupplementPlanRequest) Validate() error { return validateStruct(KindSupplementPlan, r) }

// FieldError is a single rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError reports malformed user input. It is raised before any backend call.
type ValidationError struct {
	Kind   Kind
	Fields []FieldError
	Cause  error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("invalid %s request: %v", e.Kind, e.Cause)
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s (%s)", f.Field, f.Rule)
	}
	return fmt.Sprintf("invalid %s request: %s", e.Kind, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func validateStruct(kind Kind, v any) error {
	if err := validator.New().Struct(v); err != nil {
		verr := &ValidationError{Kind: kind, Cause: err}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.Fields = append(verr.Fields, FieldError{Field: fe.Namespace(), Rule: fe.Tag()})
			}
		}
		return verr
	}
	return nil
}

// ParseKind maps a wire name onto a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown request kind %q", s)
}

// NewRequest returns an empty request value for kind, ready for JSON decoding.
func NewRequest(kind Kind) (GenerationRequest, error) {
	switch kind {
	case KindPost:
		return &PostRequest{}, nil
	case KindArticle:
		return &ArticleRequest{}, nil
	case KindInfographic:
		return &InfographicRequest{}, nil
	case KindConversionAsset:
		return &ConversionAssetRequest{}, nil
	case KindVideoScript:
		return &VideoScriptRequest{}, nil
	case KindAudioArticle:
		return &AudioArticleRequest{}, nil
	case KindWoundAnalysis:
		return &WoundAnalysisRequest{}, nil
	case KindDrugInteraction:
		return &DrugInteractionRequest{}, nil
	case KindSupplementPlan:
		return &SupplementPlanRequest{}, nil
	}
	return nil, fmt.Errorf("unknown request kind %q", kind)
}
