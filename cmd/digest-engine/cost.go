package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/llm"
	"github.com/pdiddy/digest-engine/internal/period"
)

var costCmd = &cobra.Command{
	Use:   "cost [week-id]",
	Short: "Show the cost breakdown of the most recent pipeline run",
	Long: `Cost prints a per-stage breakdown of token usage and estimated spend for
the latest run, priced from the model rate table.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCost,
}

func init() {
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Run %s (%s)\n\n", run.ID, run.WeekID)
	perAgent := make(map[string]*agentCost)
	var order []string
	for _, step := range run.Steps {
		ac, ok := perAgent[step.Agent]
		if !ok {
			ac = &agentCost{}
			perAgent[step.Agent] = ac
			order = append(order, step.Agent)
		}
		ac.calls++
		ac.inputTokens += step.InputTokens
		ac.outputTokens += step.OutputTokens
		ac.costUSD += llm.EstimateCost(step.Model, step.InputTokens, step.OutputTokens)
	}

	for _, name := range order {
		ac := perAgent[name]
		fmt.Printf("%-10s %2d call(s)  %7d in / %6d out  $%.4f\n",
			name, ac.calls, ac.inputTokens, ac.outputTokens, ac.costUSD)
	}
	fmt.Printf("\nTotal: %d in / %d out, $%.4f\n",
		run.TotalInputTokens, run.TotalOutputTokens, run.EstimatedCostUSD)
	return nil
}

type agentCost struct {
	calls        int
	inputTokens  int
	outputTokens int
	costUSD      float64
}
