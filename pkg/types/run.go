// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunStatus is the lifecycle state of a pipeline run. A run transitions
// from RUNNING to exactly one of COMPLETED or FAILED; both are terminal.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// PipelineRun records one end-to-end execution of the digest pipeline
// against one week's collected items.
type PipelineRun struct {
	ID                string
	WeekID            string
	StartedAt         time.Time
	FinishedAt        time.Time // zero until the run reaches a terminal state
	Status            RunStatus
	TotalInputTokens  int
	TotalOutputTokens int
	EstimatedCostUSD  float64

	// Steps holds the run's StepLogs ordered by start time. Populated
	// on read-back; not written through PipelineRun itself.
	Steps []StepLog
}

// Duration returns the wall-clock duration of a finished run, or zero
// if the run has not finished.
func (r PipelineRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StepLog records a single stage invocation within a run. One StepLog
// is written per capability call whether it succeeds or fails; a failed
// call carries the error text.
type StepLog struct {
	ID           string
	RunID        string
	Agent        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string
	InputTokens  int
	OutputTokens int
	Model        string
	Details      string
	Error        string
}
