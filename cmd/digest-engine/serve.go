package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/schedule"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the weekly scheduler",
	Long: `Serve blocks and triggers the digest pipeline at the configured weekly
slot (schedule.day_of_week / hour / minute in schedule.timezone).
Finished digests are delivered over Telegram when it is configured.
Stop with SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if !cfg.Schedule.Enabled {
		return fmt.Errorf("scheduling is disabled; set schedule.enabled: true")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	coordinator, err := buildCoordinator(cfg, st)
	if err != nil {
		return err
	}

	var deliverer schedule.Deliverer
	if tg := telegramClient(cfg); tg != nil {
		deliverer = tg
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := schedule.New(cfg.Schedule, coordinator, deliverer, logger)
	if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
