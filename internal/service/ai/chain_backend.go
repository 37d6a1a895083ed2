package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/madchat/backend/internal/model/chat"
)

// ChainBackend runs the conversation through an eino prompt template and chat model.
type ChainBackend struct {
	name  string
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChainBackend compiles the system+history chain around chatModel.
func NewChainBackend(ctx context.Context, name string, chatModel model.BaseChatModel) (*ChainBackend, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ChainBackend{name: name, chain: runnable}, nil
}

// Name implements Backend.
func (b *ChainBackend) Name() string {
	return b.name
}

// Generate implements Backend.
func (b *ChainBackend) Generate(ctx context.Context, turns []chat.Turn, opts GenerateOptions) (string, error) {
	system, history := splitSystem(turns)
	input := map[string]any{
		"system":  system,
		"history": buildHistoryMessages(history),
	}

	modelOpts := []model.Option{
		model.WithTemperature(float32(opts.Temperature)),
		model.WithMaxTokens(opts.MaxTokens),
	}
	if opts.TopP != nil {
		modelOpts = append(modelOpts, model.WithTopP(float32(*opts.TopP)))
	}

	response, err := b.chain.Invoke(ctx, input, compose.WithChatModelOption(modelOpts...))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return "", fmt.Errorf("chain returned no message")
	}
	return response.Content, nil
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
