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

// Clusterer groups the week's items into topic clusters.
type Clusterer struct {
	base
}

// NewClusterer builds the clustering stage.
func NewClusterer(provider llm.Provider, model string, recorder StepRecorder, profile types.UserProfile, log *zap.Logger) *Clusterer {
	return &Clusterer{base{
		provider: provider,
		model:    model,
		recorder: recorder,
		name:     "clusterer",
		system:   renderSystem(clustererPromptTmpl, profile),
		log:      log,
	}}
}

// Process clusters the items. A response that cannot be parsed into a
// ClusterResult returns an error wrapping llm.ErrParse; the coordinator
// treats that as recoverable and falls back to a single cluster.
// Membership filtering against the input set is the coordinator's job.
func (c *Clusterer) Process(ctx context.Context, runID string, items []types.Item) (types.ClusterResult, error) {
	resp, err := c.call(ctx, runID, clusterUserMessage(items), 2048, 0.3)
	if err != nil {
		return types.ClusterResult{}, fmt.Errorf("clustering: %w", err)
	}

	var result types.ClusterResult
	if err := extractJSON(resp.Content, &result); err != nil {
		return types.ClusterResult{}, fmt.Errorf("clustering: %w", err)
	}

	// Tolerate missing optional fields the way the prompt allows.
	for i := range result.Clusters {
		if result.Clusters[i].EstimatedReadMinutes <= 0 {
			result.Clusters[i].EstimatedReadMinutes = 3
		}
		if result.Clusters[i].Priority <= 0 {
			result.Clusters[i].Priority = 1
		}
	}
	return result, nil
}

func clusterUserMessage(items []types.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Items to cluster (%d total):\n\n", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "- ID: %s\n  Type: %s\n  Summary: %s\n  Tags: %s\n  Language: %s\n",
			item.ID, item.Type, item.Summary, strings.Join(item.Tags, ", "), item.Language)
	}
	return b.String()
}

// FallbackResult is the total fallback applied when clustering returns
// an unparseable response: one cluster holding every input item and an
// empty quick-bites set.
func FallbackResult(items []types.Item) types.ClusterResult {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return types.ClusterResult{
		Clusters: []types.Cluster{{
			ID:                   "cluster-1",
			Title:                "This Week's Highlights",
			EditorialAngle:       "A collection of this week's items",
			ItemIDs:              ids,
			EstimatedReadMinutes: 5,
			Priority:             1,
		}},
	}
}
