package ai

import (
	"context"
	"fmt"

	"github.com/johnquangdev/call-coach/pkg/config"
)

// CompletionRequest is a single-turn prompt sent to an LLM provider
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSON asks the provider to constrain output to a JSON object when it supports that
	JSON bool
}

// Completer is the LLM surface used by the scoring and aggregation stages
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}

// NewCompleter builds the provider selected by LLM_PROVIDER
func NewCompleter(cfg *config.Config) (Completer, error) {
	switch cfg.LLM.Provider {
	case "groq":
		if cfg.Groq.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewGroqClient(&cfg.Groq), nil
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewAnthropicClient(&cfg.Anthropic), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
}
