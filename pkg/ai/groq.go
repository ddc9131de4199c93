package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/johnquangdev/call-coach/pkg/config"
	"github.com/johnquangdev/call-coach/pkg/jobcontext"
)

// ErrNotConfigured is returned when a provider has no credentials
var ErrNotConfigured = errors.New("ai provider is not configured")

// GroqClient is a minimal client for Groq's OpenAI-compatible chat API
type GroqClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	retry   jobcontext.RetryPolicy
}

// NewGroqClient creates a Groq client using values from the provided config
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.groq.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GroqClient{
		apiKey:  cfg.APIKey,
		baseURL: base,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		retry:   jobcontext.DefaultRetryPolicy,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Model returns the configured model name
func (g *GroqClient) Model() string {
	return g.model
}

// Complete sends one prompt and returns the assistant content
func (g *GroqClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := ChatRequest{
		Model:       g.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	var content string
	err = jobcontext.Retry(ctx, g.retry, func() error {
		var callErr error
		content, callErr = g.post(ctx, b)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("groq completion failed: %w", err)
	}
	return content, nil
}

func (g *GroqClient) post(ctx context.Context, payload []byte) (string, error) {
	endpoint := g.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &jobcontext.StatusError{Service: "groq", StatusCode: resp.StatusCode, Body: string(msg)}
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response from groq")
	}
	return cr.Choices[0].Message.Content, nil
}
