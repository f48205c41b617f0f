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

// anthropicAPIBase is the Anthropic Messages endpoint. Declared as a
// var so tests can substitute an httptest server.
var anthropicAPIBase = "https://api.anthropic.com/v1/messages"

const (
	anthropicVersion      = "2023-06-01"
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

// Anthropic calls the Anthropic Messages API.
type Anthropic struct {
	Client  *http.Client
	APIKey  string
	Model   string
	Retries int
}

// NewAnthropic builds a backend from config, applying defaults.
func NewAnthropic(cfg types.AIConfig) *Anthropic {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		Client:  &http.Client{Timeout: timeout},
		APIKey:  cfg.APIKey,
		Model:   model,
		Retries: cfg.MaxRetries,
	}
}

// Generate performs one Messages API call and returns the text plus
// token usage. API and transport failures are wrapped in ErrBackend.
func (a *Anthropic) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = a.Model
	}

	body := anthropicRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.UserMessage},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIBase, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := httputil.DoWithRetry(ctx, a.Client, httpReq, a.Retries)
	if err != nil {
		return Response{}, fmt.Errorf("%w: anthropic request: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, fmt.Errorf("%w: anthropic returned HTTP %d: %s", ErrBackend, resp.StatusCode, msg)
	}

	var ar anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return Response{}, fmt.Errorf("%w: decoding anthropic response: %v", ErrBackend, err)
	}
	if len(ar.Content) == 0 {
		return Response{}, fmt.Errorf("%w: anthropic returned no content blocks", ErrBackend)
	}

	return Response{
		Content:      ar.Content[0].Text,
		InputTokens:  ar.Usage.InputTokens,
		OutputTokens: ar.Usage.OutputTokens,
		Model:        model,
	}, nil
}

// Anthropic Messages API JSON structures.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
