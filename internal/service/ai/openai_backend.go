package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/zhouzirui/madchat/backend/internal/model/chat"
)

// OpenAIBackend talks to any OpenAI-compatible chat completions endpoint, hosted or
// a locally served model.
type OpenAIBackend struct {
	client openai.Client
	model  string
}

// NewOpenAIBackend builds a backend for baseURL. An empty apiKey leaves the SDK's
// environment default in place, which local servers ignore.
func NewOpenAIBackend(baseURL, apiKey, model string, opts ...option.RequestOption) *OpenAIBackend {
	clientOpts := make([]option.RequestOption, 0, len(opts)+2)
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAIBackend{
		client: openai.NewClient(clientOpts...),
		model:  model,
	}
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Generate implements Backend.
func (b *OpenAIBackend) Generate(ctx context.Context, turns []chat.Turn, opts GenerateOptions) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case chat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(b.model),
		Messages:    messages,
		Temperature: openai.Float(opts.Temperature),
		MaxTokens:   openai.Int(int64(opts.MaxTokens)),
	}
	if opts.TopP != nil {
		params.TopP = openai.Float(*opts.TopP)
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model %s", b.model)
	}
	return resp.Choices[0].Message.Content, nil
}
