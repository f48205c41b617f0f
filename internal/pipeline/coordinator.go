// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline coordinates a digest run through its four stages:
// clustering, research, writing, and assembly. It owns run state, item
// status transitions, and cost accounting.
// See docs/ARCHITECTURE § Run Coordinator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/digest-engine/internal/agent"
	"github.com/pdiddy/digest-engine/internal/llm"
	"github.com/pdiddy/digest-engine/internal/store"
	"github.com/pdiddy/digest-engine/internal/vault"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// ErrRunInProgress is returned when a run for the same week is already
// active in this process.
var ErrRunInProgress = errors.New("a digest run for this week is already in progress")

// defaultLanguage is used when the digest_language setting is unset.
const defaultLanguage = "ru"

// ProgressSink receives run progress. progress.Reporter implements it;
// a nil sink is replaced with a no-op.
type ProgressSink interface {
	Start(ctx context.Context, weekID string, itemCount int)
	Update(ctx context.Context, step int, detail string)
	Finish(ctx context.Context, resultPath string)
	Fail(ctx context.Context, errText string)
}

// Coordinator runs the digest pipeline for one week at a time. Runs for
// distinct weeks may proceed concurrently; a second run for the same
// week fails fast with ErrRunInProgress.
type Coordinator struct {
	store      *store.Store
	clusterer  *agent.Clusterer
	researcher *agent.Researcher
	writer     *agent.Writer
	editor     *agent.Editor
	vault      *vault.Writer
	progress   ProgressSink
	log        *zap.Logger

	mu     sync.Mutex
	active map[string]bool // week IDs with a run in flight
}

// New wires a coordinator. progress may be nil.
func New(st *store.Store, clusterer *agent.Clusterer, researcher *agent.Researcher,
	writer *agent.Writer, editor *agent.Editor, vw *vault.Writer,
	progress ProgressSink, log *zap.Logger) *Coordinator {
	if progress == nil {
		progress = noopProgress{}
	}
	return &Coordinator{
		store:      st,
		clusterer:  clusterer,
		researcher: researcher,
		writer:     writer,
		editor:     editor,
		vault:      vw,
		progress:   progress,
		log:        log,
		active:     make(map[string]bool),
	}
}

// Run executes the full pipeline for weekID and returns the path of the
// saved digest. When the week has no unpublished items it returns an
// empty path, nil error, and records nothing.
func (c *Coordinator) Run(ctx context.Context, weekID string) (string, error) {
	if err := c.acquire(weekID); err != nil {
		return "", err
	}
	defer c.release(weekID)

	items, err := c.pendingItems(ctx, weekID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		c.log.Info("no items to process", zap.String("week", weekID))
		return "", nil
	}

	run := types.PipelineRun{
		ID:        uuid.NewString(),
		WeekID:    weekID,
		StartedAt: time.Now(),
		Status:    types.RunRunning,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	c.log.Info("pipeline run started",
		zap.String("run", run.ID), zap.String("week", weekID), zap.Int("items", len(items)))

	language, err := c.store.Setting(ctx, "digest_language", defaultLanguage)
	if err != nil {
		language = defaultLanguage
	}

	c.progress.Start(ctx, weekID, len(items))

	path, err := c.execute(ctx, run.ID, weekID, language, items)
	if err != nil {
		c.finish(ctx, run.ID, types.RunFailed)
		c.progress.Fail(ctx, err.Error())
		return "", err
	}

	c.finish(ctx, run.ID, types.RunCompleted)
	c.progress.Finish(ctx, path)
	c.log.Info("pipeline run completed", zap.String("run", run.ID), zap.String("path", path))
	return path, nil
}

func (c *Coordinator) acquire(weekID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[weekID] {
		return ErrRunInProgress
	}
	c.active[weekID] = true
	return nil
}

func (c *Coordinator) release(weekID string) {
	c.mu.Lock()
	delete(c.active, weekID)
	c.mu.Unlock()
}

// pendingItems returns the week's items that have not been published.
// Items left CLUSTERED by an earlier failed run are picked up again.
func (c *Coordinator) pendingItems(ctx context.Context, weekID string) ([]types.Item, error) {
	all, err := c.store.ItemsByWeek(ctx, weekID, "")
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	pending := all[:0]
	for _, item := range all {
		if item.Status != types.StatusPublished {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// execute runs the four stages and saves the digest.
func (c *Coordinator) execute(ctx context.Context, runID, weekID, language string, items []types.Item) (string, error) {
	itemsByID := make(map[string]types.Item, len(items))
	known := make(map[string]bool, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
		known[item.ID] = true
	}

	// Stage 1: clustering. An unparseable response degrades to a single
	// catch-all cluster instead of failing the run.
	c.progress.Update(ctx, 0, "Grouping items into topics")
	result, err := c.clusterer.Process(ctx, runID, items)
	if err != nil {
		if !errors.Is(err, llm.ErrParse) {
			return "", err
		}
		c.log.Warn("clustering output unusable, falling back to a single cluster",
			zap.String("run", runID), zap.Error(err))
		result = agent.FallbackResult(items)
	}
	result.FilterKnown(known)
	clusters := nonEmptyClusters(result.Clusters)
	if len(clusters) == 0 {
		c.log.Warn("no valid clusters after membership filtering, falling back",
			zap.String("run", runID))
		result = agent.FallbackResult(items)
		clusters = result.Clusters
	}

	// Stage 2: research, one brief per cluster, sequential.
	briefs := make(map[string]string, len(clusters))
	for i, cluster := range clusters {
		c.progress.Update(ctx, 1, fmt.Sprintf("Researching %d/%d: %s", i+1, len(clusters), cluster.Title))
		brief, err := c.researcher.Process(ctx, runID, cluster, clusterItems(cluster, itemsByID), language)
		if err != nil {
			return "", err
		}
		briefs[cluster.ID] = brief
	}

	// Stage 3: writing, one article per cluster, sequential.
	articles := make(map[string]string, len(clusters))
	for i, cluster := range clusters {
		c.progress.Update(ctx, 2, fmt.Sprintf("Writing %d/%d: %s", i+1, len(clusters), cluster.Title))
		article, err := c.writer.Process(ctx, runID, cluster, clusterItems(cluster, itemsByID), briefs[cluster.ID], language)
		if err != nil {
			return "", err
		}
		articles[cluster.ID] = article
	}

	// Stage 4: assembly.
	c.progress.Update(ctx, 3, "Assembling the final digest")
	quickBites := make([]types.Item, 0, len(result.QuickBiteItemIDs))
	for _, id := range result.QuickBiteItemIDs {
		quickBites = append(quickBites, itemsByID[id])
	}
	digest, err := c.editor.Process(ctx, runID, agent.AssemblyInput{
		Articles:      articles,
		ClusterResult: types.ClusterResult{Clusters: clusters, QuickBiteItemIDs: result.QuickBiteItemIDs},
		QuickBites:    quickBites,
		AllItems:      items,
		WeekID:        weekID,
		Language:      language,
	})
	if err != nil {
		return "", err
	}

	path, err := c.vault.SaveWeek(weekID, digest)
	if err != nil {
		return "", fmt.Errorf("saving digest: %w", err)
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	if err := c.store.UpdateItemsStatus(ctx, ids, types.StatusPublished); err != nil {
		return "", fmt.Errorf("marking items published: %w", err)
	}
	return path, nil
}

// finish aggregates the run's step logs into totals and moves the run
// to a terminal status. Aggregation failures are logged, not fatal: the
// run outcome matters more than its accounting.
func (c *Coordinator) finish(ctx context.Context, runID string, status types.RunStatus) {
	var inputTokens, outputTokens int
	var cost float64
	steps, err := c.store.StepsForRun(ctx, runID)
	if err != nil {
		c.log.Warn("failed to aggregate step logs", zap.String("run", runID), zap.Error(err))
	}
	for _, step := range steps {
		inputTokens += step.InputTokens
		outputTokens += step.OutputTokens
		cost += llm.EstimateCost(step.Model, step.InputTokens, step.OutputTokens)
	}
	if err := c.store.FinishRun(ctx, runID, status, inputTokens, outputTokens, cost); err != nil {
		c.log.Error("failed to finalize run record", zap.String("run", runID), zap.Error(err))
	}
}

func clusterItems(cluster types.Cluster, itemsByID map[string]types.Item) []types.Item {
	items := make([]types.Item, 0, len(cluster.ItemIDs))
	for _, id := range cluster.ItemIDs {
		items = append(items, itemsByID[id])
	}
	return items
}

func nonEmptyClusters(clusters []types.Cluster) []types.Cluster {
	kept := clusters[:0]
	for _, c := range clusters {
		if len(c.ItemIDs) > 0 {
			kept = append(kept, c)
		}
	}
	return kept
}

type noopProgress struct{}

func (noopProgress) Start(context.Context, string, int)  {}
func (noopProgress) Update(context.Context, int, string) {}
func (noopProgress) Finish(context.Context, string)      {}
func (noopProgress) Fail(context.Context, string)        {}
