// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/digest-engine/internal/httputil"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// openaiAPIBase is the OpenAI chat completions endpoint. Declared as a
// var so tests can substitute an httptest server.
var openaiAPIBase = "https://api.openai.com/v1/chat/completions"

const defaultOpenAIModel = "gpt-4o"

// OpenAI calls the OpenAI chat completions API.
type OpenAI struct {
	Client  *http.Client
	APIKey  string
	Model   string
	Retries int
}

// NewOpenAI builds a backend from config, applying defaults.
func NewOpenAI(cfg types.AIConfig) *OpenAI {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		Client:  &http.Client{Timeout: timeout},
		APIKey:  cfg.APIKey,
		Model:   model,
		Retries: cfg.MaxRetries,
	}
}

// Generate performs one chat completion call and returns the text plus
// token usage. API and transport failures are wrapped in ErrBackend.
func (o *OpenAI) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = o.Model
	}

	body := openaiRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []openaiMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserMessage},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIBase, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := httputil.DoWithRetry(ctx, o.Client, httpReq, o.Retries)
	if err != nil {
		return Response{}, fmt.Errorf("%w: openai request: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, fmt.Errorf("%w: openai returned HTTP %d: %s", ErrBackend, resp.StatusCode, msg)
	}

	var or openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return Response{}, fmt.Errorf("%w: decoding openai response: %v", ErrBackend, err)
	}
	if len(or.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: openai returned no choices", ErrBackend)
	}

	return Response{
		Content:      or.Choices[0].Message.Content,
		InputTokens:  or.Usage.PromptTokens,
		OutputTokens: or.Usage.CompletionTokens,
		Model:        model,
	}, nil
}

// OpenAI chat completions API JSON structures.
type openaiRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
	Messages    []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}
