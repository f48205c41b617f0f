// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent implements the four pipeline stages (cluster, research,
// write, edit) as thin wrappers around the LLM provider: prompt
// assembly, response parsing, and per-call step logging.
// See docs/ARCHITECTURE § Stage Capabilities.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/digest-engine/internal/llm"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// StepRecorder persists one StepLog per capability invocation.
// *store.Store implements it.
type StepRecorder interface {
	SaveStepLog(ctx context.Context, step types.StepLog) error
}

// base carries what every agent needs: the provider, the step recorder,
// and the rendered system prompt.
type base struct {
	provider llm.Provider
	model    string
	recorder StepRecorder
	name     string
	system   string
	log      *zap.Logger
}

// call invokes the provider once and records exactly one StepLog,
// whether the call succeeds or fails. StepLog persistence failures are
// logged and swallowed: telemetry loss must not abort the run.
func (b *base) call(ctx context.Context, runID, userMessage string, maxTokens int, temperature float64) (llm.Response, error) {
	stepID := uuid.NewString()
	startedAt := time.Now()

	resp, err := b.provider.Generate(ctx, llm.Request{
		Model:        b.model,
		SystemPrompt: b.system,
		UserMessage:  userMessage,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	})

	step := types.StepLog{
		ID:         stepID,
		RunID:      runID,
		Agent:      b.name,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Model:      b.model,
	}
	if err != nil {
		step.Status = "failed"
		step.Error = err.Error()
	} else {
		step.Status = "completed"
		step.InputTokens = resp.InputTokens
		step.OutputTokens = resp.OutputTokens
		step.Model = resp.Model
	}

	if runID != "" {
		if logErr := b.recorder.SaveStepLog(ctx, step); logErr != nil {
			b.log.Warn("failed to save step log",
				zap.String("agent", b.name),
				zap.String("run_id", runID),
				zap.Error(logErr))
		}
	}

	return resp, err
}

// fencePattern matches a ```json ... ``` (or plain ```) code block.
var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON pulls a JSON document out of a model response that may
// wrap it in Markdown fences. Parse failures are wrapped in
// llm.ErrParse so callers can classify them.
func extractJSON(text string, v any) error {
	candidate := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("%w: %v", llm.ErrParse, err)
	}
	return nil
}

// languageName maps a digest language code to the name agents put in
// their prompts. Unknown codes fall back to English.
func languageName(code string) string {
	names := map[string]string{
		"en": "English",
		"ru": "Russian",
		"de": "German",
		"fr": "French",
		"es": "Spanish",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return "English"
}

// truncate cuts content to at most limit bytes, marking the cut. Items
// can carry arbitrarily long extracted text; per-item truncation keeps
// prompts inside the model's context budget.
func truncate(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	return content[:limit] + "\n[...truncated]"
}
