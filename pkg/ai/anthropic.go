package ai

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/johnquangdev/call-coach/pkg/config"
)

// AnthropicClient implements Completer on the Messages API
type AnthropicClient struct {
	client sdk.Client
	model  string
}

// NewAnthropicClient creates a client from config. Extra options are appended
// after the API key (base URL overrides in tests).
func NewAnthropicClient(cfg *config.AnthropicConfig, opts ...option.RequestOption) *AnthropicClient {
	all := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	return &AnthropicClient{
		client: sdk.NewClient(all...),
		model:  cfg.Model,
	}
}

// Model returns the configured model name
func (a *AnthropicClient) Model() string {
	return a.model
}

// Complete sends one user message and joins the text blocks of the reply
func (a *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	prompt := req.Prompt
	if req.JSON {
		prompt += "\n\nRespond with a single JSON object and nothing else."
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(a.model),
		MaxTokens:   maxTokens,
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
		Temperature: sdk.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: create message: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from anthropic")
	}
	return sb.String(), nil
}
