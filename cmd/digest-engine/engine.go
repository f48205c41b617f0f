package main

import (
	"fmt"

	"github.com/pdiddy/digest-engine/internal/agent"
	"github.com/pdiddy/digest-engine/internal/llm"
	"github.com/pdiddy/digest-engine/internal/notify"
	"github.com/pdiddy/digest-engine/internal/pipeline"
	"github.com/pdiddy/digest-engine/internal/progress"
	"github.com/pdiddy/digest-engine/internal/store"
	"github.com/pdiddy/digest-engine/internal/vault"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// openStore opens the run state store from config.
func openStore(cfg types.PipelineConfig) (*store.Store, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

// telegramClient returns the configured Telegram client, or nil when
// Telegram delivery is disabled or unconfigured.
func telegramClient(cfg types.PipelineConfig) *notify.Telegram {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" {
		return nil
	}
	return notify.NewTelegram(cfg.Telegram)
}

// buildCoordinator wires the pipeline from config. Progress reporting
// is attached only when a Telegram client is available.
func buildCoordinator(cfg types.PipelineConfig, st *store.Store) (*pipeline.Coordinator, error) {
	provider, err := llm.NewProvider(cfg.AI)
	if err != nil {
		return nil, err
	}
	profile, err := types.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}

	var sink pipeline.ProgressSink
	if tg := telegramClient(cfg); tg != nil {
		sink = progress.New(tg, cfg.Telegram.MinEditInterval, logger)
	}

	model := cfg.AI.Model
	return pipeline.New(st,
		agent.NewClusterer(provider, model, st, profile, logger),
		agent.NewResearcher(provider, model, st, profile, logger),
		agent.NewWriter(provider, model, st, profile, logger),
		agent.NewEditor(provider, model, st, profile, logger),
		vault.NewWriter(cfg.Vault),
		sink, logger), nil
}
