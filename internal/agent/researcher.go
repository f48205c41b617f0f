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

// researchItemLimit caps per-item content in the research prompt.
const researchItemLimit = 4000

// Researcher produces a per-cluster research brief that fills gaps in
// the source material before writing.
type Researcher struct {
	base
}

// NewResearcher builds the research stage.
func NewResearcher(provider llm.Provider, model string, recorder StepRecorder, profile types.UserProfile, log *zap.Logger) *Researcher {
	return &Researcher{base{
		provider: provider,
		model:    model,
		recorder: recorder,
		name:     "researcher",
		system:   renderSystem(researcherPromptTmpl, profile),
		log:      log,
	}}
}

// Process returns the research brief for one cluster. Any failure is
// fatal to the run: unlike clustering there is no safe fallback brief.
func (r *Researcher) Process(ctx context.Context, runID string, cluster types.Cluster, items []types.Item, language string) (string, error) {
	resp, err := r.call(ctx, runID, researchUserMessage(cluster, items, language), 2048, 0.7)
	if err != nil {
		return "", fmt.Errorf("researching %q: %w", cluster.Title, err)
	}
	return resp.Content, nil
}

func researchUserMessage(cluster types.Cluster, items []types.Item, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Output language: %s\n", languageName(language))
	fmt.Fprintf(&b, "## Cluster: %s\n", cluster.Title)
	fmt.Fprintf(&b, "Editorial angle: %s\n", cluster.EditorialAngle)
	fmt.Fprintf(&b, "Target read time: %d minutes\n", cluster.EstimatedReadMinutes)
	fmt.Fprintf(&b, "\n## Source Materials (%d items):\n\n", len(items))

	for i, item := range items {
		fmt.Fprintf(&b, "### Source %d: %s\n", i+1, item.Summary)
		fmt.Fprintf(&b, "Type: %s\n", item.Type)
		if item.SourceURL != "" {
			fmt.Fprintf(&b, "URL: %s\n", item.SourceURL)
		}
		fmt.Fprintf(&b, "Content:\n%s\n\n", truncate(item.Content(), researchItemLimit))
	}
	return b.String()
}
