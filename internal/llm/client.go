package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Client is an abstraction over generation backends
type Client interface {
	// Generate runs one request against the model configured for its tier
	Generate(ctx context.Context, req *Request) (*Response, error)
	// GetModel returns the provider model name for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new backend client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config, apiKey)
	default:
		return NewGeminiClient(ctx, config, apiKey)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Generate sends the request parts to the model for req.Tier
func (c *GeminiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	model := c.client.GenerativeModel(modelName)
	model.SafetySettings = clinicalSafetySettings()
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.Schema != nil && !req.Image {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toGenaiSchema(req.Schema)
	}

	parts := make([]genai.Part, 0, len(req.Parts)+1)
	for _, p := range req.Parts {
		if p.Blob != nil {
			parts = append(parts, genai.Blob{MIMEType: p.Blob.MIMEType, Data: p.Blob.Data})
			continue
		}
		parts = append(parts, genai.Text(p.Text))
	}
	// This SDK exposes no image config, so the ratio travels in the prompt.
	if req.Image && req.AspectRatio != "" {
		parts = append(parts, genai.Text("Aspect ratio: "+req.AspectRatio+"."))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, wrapGeminiError(err)
	}
	return responseFromGemini(resp)
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Wound photos and drug questions trip the default medium thresholds.
func clinicalSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
	}
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       toGenaiSchema(s.Items),
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeInteger:
		out.Type = genai.TypeInteger
	case TypeNumber:
		out.Type = genai.TypeNumber
	case TypeBoolean:
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

// responseFromGemini collects text and inline image parts of the first candidate
func responseFromGemini(resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ErrNoContent
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, ErrNoContent
	}

	var text strings.Builder
	out := &Response{}
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.Blob:
			out.Images = append(out.Images, Blob{MIMEType: p.MIMEType, Data: p.Data})
		}
	}
	out.Text = text.String()
	return out, nil
}

func wrapGeminiError(err error) error {
	be := &BackendError{Provider: ProviderGemini, Message: err.Error(), Cause: err}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		be.StatusCode = apiErr.Code
	}
	return be
}
