package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/period"
)

var statusCmd = &cobra.Command{
	Use:   "status [week-id]",
	Short: "Show the most recent pipeline run",
	Long: `Status prints the latest run for a week (default: any week): its state,
timing, token totals, and estimated cost.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Run:     %s\n", run.ID)
	fmt.Printf("Week:    %s\n", run.WeekID)
	fmt.Printf("Status:  %s\n", run.Status)
	fmt.Printf("Started: %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if !run.FinishedAt.IsZero() {
		fmt.Printf("Took:    %s\n", run.Duration().Round(time.Second))
	}
	fmt.Printf("Tokens:  %d in / %d out\n", run.TotalInputTokens, run.TotalOutputTokens)
	fmt.Printf("Cost:    $%.4f\n", run.EstimatedCostUSD)
	fmt.Printf("Steps:   %d\n", len(run.Steps))
	return nil
}
