package explain

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Skufu/symptomdx/pkg/errors"
)

const (
	DefaultEndpoint = "https://api.openai.com/v1"
	DefaultModel    = "gpt-3.5-turbo"
)

// Completer turns a system and user prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIClient calls an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
}

var _ Completer = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client for endpoint. A full ".../chat/completions"
// URL is accepted and trimmed to its base.
func NewOpenAIClient(apiKey, endpoint, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.NewValidationError("api_key", "is required", "")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	endpoint = strings.TrimSuffix(strings.TrimRight(endpoint, "/"), "/chat/completions")
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(endpoint+"/"),
		option.WithMaxRetries(0),
	)
	return &OpenAIClient{client: client, model: model, temperature: 0.7}, nil
}

// Complete sends one chat completion request and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", errors.Wrapf(errors.ErrUpstream, "chat completion: %v", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.Wrap(errors.ErrUpstream, "chat completion returned no choices")
	}
	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.Wrap(errors.ErrUpstream, "chat completion returned empty content")
	}
	return content, nil
}
