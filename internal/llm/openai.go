package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient implements Client for OpenAI and OpenAI-compatible gateways
type OpenAIClient struct {
	client openai.Client
	config *Config
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(config *Config, apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), config: config}, nil
}

// Generate routes image requests to the images endpoint and everything else to chat completions
func (c *OpenAIClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", req.Tier)
	}
	if req.Image {
		return c.generateImage(ctx, modelName, req)
	}

	content := make([]openai.ChatCompletionContentPartUnionParam, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Blob == nil {
			content = append(content, openai.TextContentPart(p.Text))
			continue
		}
		part, err := openAIBlobPart(p.Blob)
		if err != nil {
			return nil, err
		}
		content = append(content, part)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(content)},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "studio_reply",
					Schema: req.Schema.JSONSchema(),
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoContent
	}
	return &Response{Text: resp.Choices[0].Message.Content}, nil
}

func (c *OpenAIClient) generateImage(ctx context.Context, modelName string, req *Request) (*Response, error) {
	var prompt []string
	for _, p := range req.Parts {
		if p.Blob == nil && p.Text != "" {
			prompt = append(prompt, p.Text)
		}
	}

	size := "1024x1024"
	if req.AspectRatio == "9:16" {
		size = "1024x1536"
	}

	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: strings.Join(prompt, "\n\n"),
		Model:  openai.ImageModel(modelName),
		Size:   openai.ImageGenerateParamsSize(size),
		N:      openai.Int(1),
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}

	out := &Response{}
	for _, img := range resp.Data {
		if img.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}
		out.Images = append(out.Images, Blob{MIMEType: "image/png", Data: data})
	}
	return out, nil
}

// GetModel returns the model name for a tier
func (c *OpenAIClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client holds no resources
func (c *OpenAIClient) Close() error {
	return nil
}

func openAIBlobPart(b *Blob) (openai.ChatCompletionContentPartUnionParam, error) {
	encoded := base64.StdEncoding.EncodeToString(b.Data)
	switch {
	case strings.HasPrefix(b.MIMEType, "image/"):
		return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:" + b.MIMEType + ";base64," + encoded,
		}), nil
	case b.MIMEType == "audio/wav" || b.MIMEType == "audio/x-wav":
		return openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
			Data: encoded, Format: "wav",
		}), nil
	case b.MIMEType == "audio/mpeg" || b.MIMEType == "audio/mp3":
		return openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
			Data: encoded, Format: "mp3",
		}), nil
	}
	return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("unsupported inline content type %q", b.MIMEType)
}

func wrapOpenAIError(err error) error {
	be := &BackendError{Provider: ProviderOpenAI, Message: err.Error(), Cause: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		be.StatusCode = apiErr.StatusCode
	}
	return be
}
