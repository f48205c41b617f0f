// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/digest-engine/internal/llm"
	"github.com/pdiddy/digest-engine/pkg/types"
)

const (
	// writerItemLimit caps per-item content in the writing prompt.
	writerItemLimit = 5000

	// wordsPerMinute converts a cluster's estimated read time into a
	// target word count.
	wordsPerMinute = 250

	// writerMaxTokens caps the writer's response budget.
	writerMaxTokens = 8192
)

// Writer drafts one article per cluster from the cluster's items and
// its research brief.
type Writer struct {
	base
}

// NewWriter builds the writing stage.
func NewWriter(provider llm.Provider, model string, recorder StepRecorder, profile types.UserProfile, log *zap.Logger) *Writer {
	return &Writer{base{
		provider: provider,
		model:    model,
		recorder: recorder,
		name:     "writer",
		system:   renderSystem(writerPromptTmpl, profile),
		log:      log,
	}}
}

// Process writes the article for one cluster. The response budget is
// derived from the cluster's target read time (tokens ≈ words × 1.3,
// doubled for margin, capped).
func (w *Writer) Process(ctx context.Context, runID string, cluster types.Cluster, items []types.Item, brief, language string) (string, error) {
	targetWords := cluster.EstimatedReadMinutes * wordsPerMinute
	maxTokens := targetWords * 2
	if maxTokens < 2048 {
		maxTokens = 2048
	}
	if maxTokens > writerMaxTokens {
		maxTokens = writerMaxTokens
	}

	resp, err := w.call(ctx, runID, writerUserMessage(cluster, items, brief, language), maxTokens, 0.8)
	if err != nil {
		return "", fmt.Errorf("writing %q: %w", cluster.Title, err)
	}
	return resp.Content, nil
}

func writerUserMessage(cluster types.Cluster, items []types.Item, brief, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Output language: %s\n", languageName(language))
	fmt.Fprintf(&b, "## Topic: %s\n", cluster.Title)
	fmt.Fprintf(&b, "Editorial angle: %s\n", cluster.EditorialAngle)
	fmt.Fprintf(&b, "Target read time: %d minutes (~%d words)\n",
		cluster.EstimatedReadMinutes, cluster.EstimatedReadMinutes*wordsPerMinute)
	fmt.Fprintf(&b, "\n## Source Materials (%d items):\n\n", len(items))

	for i, item := range items {
		fmt.Fprintf(&b, "### Source %d\n", i+1)
		fmt.Fprintf(&b, "Summary: %s\n", item.Summary)
		if item.SourceURL != "" {
			fmt.Fprintf(&b, "URL: %s\n", item.SourceURL)
		}
		fmt.Fprintf(&b, "Content:\n%s\n\n", truncate(item.Content(), writerItemLimit))
	}

	fmt.Fprintf(&b, "\n## Research Brief:\n%s\n", brief)
	return b.String()
}
