package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/period"
)

var logsCmd = &cobra.Command{
	Use:   "logs [week-id]",
	Short: "Show step logs for the most recent pipeline run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	weekID := ""
	if len(args) == 1 {
		weekID = args[0]
		if !period.Valid(weekID) {
			return fmt.Errorf("invalid week ID %q", weekID)
		}
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.LastRun(cmd.Context(), weekID)
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("Run %s (%s, %s)\n\n", run.ID, run.WeekID, run.Status)
	for _, step := range run.Steps {
		fmt.Printf("%s  %-10s %-9s %6d in / %5d out  %s\n",
			step.StartedAt.Local().Format("15:04:05"),
			step.Agent, step.Status, step.InputTokens, step.OutputTokens, step.Model)
		if step.Details != "" {
			fmt.Printf("          %s\n", step.Details)
		}
		if step.Error != "" {
			fmt.Printf("          error: %s\n", step.Error)
		}
	}
	return nil
}
