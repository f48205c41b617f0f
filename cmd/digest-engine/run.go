package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/period"
	"github.com/pdiddy/digest-engine/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [week-id]",
	Short: "Run the digest pipeline for a week",
	Long: `Run executes the full pipeline for the given ISO week (e.g. 2026-W34),
defaulting to the current week: clustering, research, writing, and
assembly. The finished digest is written to the vault directory and the
week's items are marked published.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("week", "", "ISO week to run (default: current week)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	weekID := period.Current()
	if flagWeek, _ := cmd.Flags().GetString("week"); flagWeek != "" {
		weekID = flagWeek
	}
	if len(args) == 1 {
		weekID = args[0]
	}
	if !period.Valid(weekID) {
		return fmt.Errorf("invalid week ID %q (expected e.g. 2026-W34)", weekID)
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	coordinator, err := buildCoordinator(cfg, st)
	if err != nil {
		return err
	}

	path, err := coordinator.Run(cmd.Context(), weekID)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return fmt.Errorf("a run for %s is already in progress", weekID)
	}
	if err != nil {
		return fmt.Errorf("pipeline run for %s: %w", weekID, err)
	}
	if path == "" {
		fmt.Printf("No items collected for %s, nothing to do.\n", weekID)
		return nil
	}
	fmt.Printf("Digest for %s saved to %s\n", weekID, path)
	return nil
}
