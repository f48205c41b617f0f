// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm abstracts the Generative AI API behind a one-method
// provider interface and tracks token usage per call.
// See docs/ARCHITECTURE § Stage Capabilities.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// Failure kinds for stage calls. Callers distinguish an unparseable
// response (the clustering stage recovers from it) from a transport or
// API failure (always fatal to the run).
var (
	// ErrParse marks a response that could not be parsed into the
	// stage's expected structure.
	ErrParse = errors.New("unparseable response")

	// ErrBackend marks a transport or API failure.
	ErrBackend = errors.New("backend failure")
)

// Request is a single generation call.
type Request struct {
	Model        string
	SystemPrompt string
	UserMessage  string
	MaxTokens    int
	Temperature  float64
}

// Response is the provider's reply with usage accounting.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Provider generates a completion for a request. Implementations wrap
// failures in ErrBackend so callers can classify them with errors.Is.
// Each backend (Anthropic, OpenAI) implements this interface per the
// Strategy pattern.
type Provider interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// NewProvider creates a provider by name.
func NewProvider(cfg types.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case "anthropic", "claude", "":
		return NewAnthropic(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
