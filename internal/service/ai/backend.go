package ai

import (
	"context"
	"fmt"

	"github.com/zhouzirui/madchat/backend/internal/config"
)

// NewBackend builds the backend selected by cfg.
func NewBackend(ctx context.Context, cfg config.AIConfig) (Backend, error) {
	if !cfg.Enabled() {
		return nil, ErrBackendUnavailable
	}

	switch cfg.Backend {
	case config.BackendArk:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		backend, err := NewChainBackend(ctx, string(config.BackendArk), chatModel)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.BackendOpenAI:
		return NewOpenAIBackend(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}
