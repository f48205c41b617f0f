// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/digest-engine/internal/llm"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// Editor assembles the week's articles into the final digest document.
type Editor struct {
	base
}

// NewEditor builds the assembly stage.
func NewEditor(provider llm.Provider, model string, recorder StepRecorder, profile types.UserProfile, log *zap.Logger) *Editor {
	return &Editor{base{
		provider: provider,
		model:    model,
		recorder: recorder,
		name:     "editor",
		system:   renderSystem(editorPromptTmpl, profile),
		log:      log,
	}}
}

// AssemblyInput is everything the editor needs to produce the final
// digest: the per-cluster articles keyed by cluster ID, the full
// clustering result, the quick-bites items, and the complete item set.
type AssemblyInput struct {
	Articles      map[string]string
	ClusterResult types.ClusterResult
	QuickBites    []types.Item
	AllItems      []types.Item
	WeekID        string
	Language      string
}

// Process assembles the final digest. Any failure is fatal to the run.
func (e *Editor) Process(ctx context.Context, runID string, in AssemblyInput) (string, error) {
	resp, err := e.call(ctx, runID, assemblyUserMessage(in), 8192, 0.5)
	if err != nil {
		return "", fmt.Errorf("assembling digest: %w", err)
	}
	return resp.Content, nil
}

func assemblyUserMessage(in AssemblyInput) string {
	var b strings.Builder

	totalReadMinutes := 0
	for _, c := range in.ClusterResult.Clusters {
		totalReadMinutes += c.EstimatedReadMinutes
	}

	fmt.Fprintf(&b, "## Metadata\n")
	fmt.Fprintf(&b, "Output language: %s\n", languageName(in.Language))
	fmt.Fprintf(&b, "Week: %s\n", in.WeekID)
	if dateRange := itemDateRange(in.AllItems); dateRange != "" {
		fmt.Fprintf(&b, "Date range: %s\n", dateRange)
	}
	fmt.Fprintf(&b, "Total items: %d\n", len(in.AllItems))
	fmt.Fprintf(&b, "Topic count: %d\n", len(in.ClusterResult.Clusters))
	fmt.Fprintf(&b, "Total estimated read time: %d minutes\n\n", totalReadMinutes)

	// Articles ordered by priority, lead story first.
	clusters := make([]types.Cluster, len(in.ClusterResult.Clusters))
	copy(clusters, in.ClusterResult.Clusters)
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Priority < clusters[j].Priority
	})

	itemsByID := make(map[string]types.Item, len(in.AllItems))
	for _, item := range in.AllItems {
		itemsByID[item.ID] = item
	}

	fmt.Fprintf(&b, "## Articles\n\n")
	for _, cluster := range clusters {
		fmt.Fprintf(&b, "### %s\n", cluster.Title)
		fmt.Fprintf(&b, "Read time: ~%d min\n", cluster.EstimatedReadMinutes)
		if urls := sourceURLs(cluster.ItemIDs, itemsByID); len(urls) > 0 {
			fmt.Fprintf(&b, "Sources: %s\n", strings.Join(urls, ", "))
		}
		fmt.Fprintf(&b, "\n%s\n\n---\n\n", in.Articles[cluster.ID])
	}

	if len(in.QuickBites) > 0 {
		fmt.Fprintf(&b, "## Quick Bites Items\n\n")
		for _, item := range in.QuickBites {
			if item.SourceURL != "" {
				fmt.Fprintf(&b, "- %s [%s]\n", item.Summary, item.SourceURL)
			} else {
				fmt.Fprintf(&b, "- %s\n", item.Summary)
			}
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## All Source URLs\n\n")
	for _, item := range in.AllItems {
		if item.SourceURL != "" {
			fmt.Fprintf(&b, "- %s — collected %s\n", item.SourceURL, item.CreatedAt.Format("Mon, Jan 02"))
		}
	}

	return b.String()
}

// itemDateRange formats the collection span of the week's items.
func itemDateRange(items []types.Item) string {
	if len(items) == 0 {
		return ""
	}
	min, max := items[0].CreatedAt, items[0].CreatedAt
	for _, item := range items[1:] {
		if item.CreatedAt.Before(min) {
			min = item.CreatedAt
		}
		if item.CreatedAt.After(max) {
			max = item.CreatedAt
		}
	}
	return fmt.Sprintf("%s–%s", min.Format("Jan 02"), max.Format("Jan 02, 2006"))
}

func sourceURLs(itemIDs []string, itemsByID map[string]types.Item) []string {
	var urls []string
	for _, id := range itemIDs {
		if item, ok := itemsByID[id]; ok && item.SourceURL != "" {
			urls = append(urls, item.SourceURL)
		}
	}
	return urls
}
