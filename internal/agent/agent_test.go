// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/digest-engine/internal/llm"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// --- mocks ---

type mockProvider struct {
	content  string
	err      error
	requests []llm.Request
}

func (m *mockProvider) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return llm.Response{}, m.err
	}
	return llm.Response{
		Content:      m.content,
		InputTokens:  100,
		OutputTokens: 50,
		Model:        "test-model",
	}, nil
}

type mockRecorder struct {
	steps []types.StepLog
	err   error
}

func (m *mockRecorder) SaveStepLog(_ context.Context, step types.StepLog) error {
	m.steps = append(m.steps, step)
	return m.err
}

func testItems() []types.Item {
	return []types.Item{
		{ID: "item-a", Type: types.ItemArticle, Summary: "A", Tags: []string{"go"}, Language: "en", CreatedAt: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{ID: "item-b", Type: types.ItemTopicSeed, Summary: "B", Language: "en", CreatedAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
}

// --- extractJSON ---

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"bare json", `{"clusters": []}`, false},
		{"fenced json", "```json\n{\"clusters\": []}\n```", false},
		{"fenced without language tag", "```\n{\"clusters\": []}\n```", false},
		{"surrounding whitespace", "\n  {\"clusters\": []}  \n", false},
		{"prose", "I could not produce clusters, sorry.", true},
		{"truncated json", `{"clusters": [`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out types.ClusterResult
			err := extractJSON(tt.text, &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractJSON(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, llm.ErrParse) {
				t.Errorf("parse failure must wrap llm.ErrParse, got %v", err)
			}
		})
	}
}

// --- clusterer ---

func TestClustererProcess(t *testing.T) {
	provider := &mockProvider{content: `{
		"clusters": [
			{"id": "c1", "title": "Go News", "editorial_angle": "tooling", "item_ids": ["item-a", "item-b"], "estimated_read_minutes": 4, "priority": 1}
		],
		"quick_bites_item_ids": []
	}`}
	recorder := &mockRecorder{}
	c := NewClusterer(provider, "test-model", recorder, types.UserProfile{Name: "Ana"}, zap.NewNop())

	result, err := c.Process(context.Background(), "run-1", testItems())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(result.Clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(result.Clusters))
	}
	if got := result.Clusters[0].Title; got != "Go News" {
		t.Errorf("title = %q", got)
	}

	if len(recorder.steps) != 1 {
		t.Fatalf("step logs = %d, want 1", len(recorder.steps))
	}
	step := recorder.steps[0]
	if step.Agent != "clusterer" || step.Status != "completed" {
		t.Errorf("step = %+v", step)
	}
	if step.InputTokens != 100 || step.OutputTokens != 50 {
		t.Errorf("token accounting lost: %+v", step)
	}
}

func TestClustererProcessDefaultsOptionalFields(t *testing.T) {
	provider := &mockProvider{content: `{"clusters": [{"id": "c1", "title": "T", "item_ids": ["item-a"]}]}`}
	c := NewClusterer(provider, "m", &mockRecorder{}, types.UserProfile{}, zap.NewNop())

	result, err := c.Process(context.Background(), "run-1", testItems())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Clusters[0].EstimatedReadMinutes != 3 {
		t.Errorf("read minutes = %d, want default 3", result.Clusters[0].EstimatedReadMinutes)
	}
	if result.Clusters[0].Priority != 1 {
		t.Errorf("priority = %d, want default 1", result.Clusters[0].Priority)
	}
}

func TestClustererProcessParseFailure(t *testing.T) {
	provider := &mockProvider{content: "not json at all"}
	recorder := &mockRecorder{}
	c := NewClusterer(provider, "m", recorder, types.UserProfile{}, zap.NewNop())

	_, err := c.Process(context.Background(), "run-1", testItems())
	if !errors.Is(err, llm.ErrParse) {
		t.Fatalf("want ErrParse, got %v", err)
	}
	// The provider call itself succeeded, so the step is logged as completed.
	if len(recorder.steps) != 1 || recorder.steps[0].Status != "completed" {
		t.Errorf("steps = %+v", recorder.steps)
	}
}

func TestClustererProcessBackendFailure(t *testing.T) {
	provider := &mockProvider{err: fmt.Errorf("%w: HTTP 500", llm.ErrBackend)}
	recorder := &mockRecorder{}
	c := NewClusterer(provider, "m", recorder, types.UserProfile{}, zap.NewNop())

	_, err := c.Process(context.Background(), "run-1", testItems())
	if !errors.Is(err, llm.ErrBackend) {
		t.Fatalf("want ErrBackend, got %v", err)
	}
	if len(recorder.steps) != 1 {
		t.Fatalf("step logs = %d, want 1 (failures are logged too)", len(recorder.steps))
	}
	step := recorder.steps[0]
	if step.Status != "failed" || step.Error == "" {
		t.Errorf("failure step = %+v", step)
	}
}

func TestStepLogPersistenceFailureIsSwallowed(t *testing.T) {
	provider := &mockProvider{content: `{"clusters": []}`}
	recorder := &mockRecorder{err: errors.New("disk full")}
	c := NewClusterer(provider, "m", recorder, types.UserProfile{}, zap.NewNop())

	if _, err := c.Process(context.Background(), "run-1", testItems()); err != nil {
		t.Fatalf("telemetry loss must not fail the stage: %v", err)
	}
}

func TestFallbackResult(t *testing.T) {
	items := testItems()
	result := FallbackResult(items)

	if len(result.Clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(result.Clusters))
	}
	if len(result.Clusters[0].ItemIDs) != len(items) {
		t.Errorf("fallback cluster must contain every item")
	}
	if len(result.QuickBiteItemIDs) != 0 {
		t.Errorf("fallback quick bites must be empty")
	}
}

// --- researcher / writer / editor ---

func TestResearcherProcess(t *testing.T) {
	provider := &mockProvider{content: "the brief"}
	r := NewResearcher(provider, "m", &mockRecorder{}, types.UserProfile{}, zap.NewNop())

	cluster := types.Cluster{ID: "c1", Title: "Go News", EstimatedReadMinutes: 4}
	brief, err := r.Process(context.Background(), "run-1", cluster, testItems(), "ru")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if brief != "the brief" {
		t.Errorf("brief = %q", brief)
	}
	if !strings.Contains(provider.requests[0].UserMessage, "Output language: Russian") {
		t.Errorf("prompt must carry the output language:\n%s", provider.requests[0].UserMessage)
	}
}

func TestWriterTokenBudget(t *testing.T) {
	tests := []struct {
		name        string
		readMinutes int
		wantTokens  int
	}{
		{"short article hits the floor", 2, 2048},
		{"mid-size article scales with read time", 8, 4000},
		{"long article hits the cap", 30, 8192},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{content: "article"}
			w := NewWriter(provider, "m", &mockRecorder{}, types.UserProfile{}, zap.NewNop())

			cluster := types.Cluster{ID: "c1", Title: "T", EstimatedReadMinutes: tt.readMinutes}
			if _, err := w.Process(context.Background(), "run-1", cluster, testItems(), "brief", "en"); err != nil {
				t.Fatalf("Process: %v", err)
			}
			if got := provider.requests[0].MaxTokens; got != tt.wantTokens {
				t.Errorf("MaxTokens = %d, want %d", got, tt.wantTokens)
			}
		})
	}
}

func TestEditorAssemblyInput(t *testing.T) {
	provider := &mockProvider{content: "# The Digest"}
	e := NewEditor(provider, "m", &mockRecorder{}, types.UserProfile{}, zap.NewNop())

	items := testItems()
	items[0].SourceURL = "https://example.com/a"
	in := AssemblyInput{
		Articles: map[string]string{"c1": "article one", "c2": "article two"},
		ClusterResult: types.ClusterResult{Clusters: []types.Cluster{
			{ID: "c1", Title: "Second", Priority: 2, EstimatedReadMinutes: 3, ItemIDs: []string{"item-b"}},
			{ID: "c2", Title: "Lead", Priority: 1, EstimatedReadMinutes: 4, ItemIDs: []string{"item-a"}},
		}},
		QuickBites: items[1:],
		AllItems:   items,
		WeekID:     "2024-W10",
		Language:   "en",
	}

	digest, err := e.Process(context.Background(), "run-1", in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if digest != "# The Digest" {
		t.Errorf("digest = %q", digest)
	}

	msg := provider.requests[0].UserMessage
	// Priority ordering: the lead story must appear before the second one.
	if strings.Index(msg, "### Lead") > strings.Index(msg, "### Second") {
		t.Errorf("articles not ordered by priority:\n%s", msg)
	}
	if !strings.Contains(msg, "Week: 2024-W10") {
		t.Errorf("missing week metadata:\n%s", msg)
	}
	if !strings.Contains(msg, "Quick Bites Items") {
		t.Errorf("missing quick bites section:\n%s", msg)
	}
	if !strings.Contains(msg, "https://example.com/a") {
		t.Errorf("missing source URL appendix:\n%s", msg)
	}
}

func TestLanguageName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", "English"},
		{"ru", "Russian"},
		{"de", "German"},
		{"xx", "English"},
		{"", "English"},
	}
	for _, tt := range tests {
		if got := languageName(tt.code); got != tt.want {
			t.Errorf("languageName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := truncate(long, 10)
	if !strings.HasPrefix(got, "xxxxxxxxxx") || !strings.HasSuffix(got, "[...truncated]") {
		t.Errorf("truncate = %q", got)
	}
	if truncate("short", 10) != "short" {
		t.Errorf("short content must pass through unchanged")
	}
}
