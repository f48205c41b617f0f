// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress maintains a single live status message that tracks a
// pipeline run through its stages. See docs/ARCHITECTURE § Progress
// Reporting.
package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Channel is the minimal edit-or-send capability the reporter needs.
// notify.Telegram implements it.
type Channel interface {
	Send(ctx context.Context, text string) (int64, error)
	Edit(ctx context.Context, messageID int64, text string) error
}

// stepNames are the four pipeline stages in execution order.
var stepNames = [...]string{"Clustering", "Researching", "Writing", "Assembling"}

// StepCount is the fixed number of reported stages.
const StepCount = len(stepNames)

const (
	iconDone    = "✅"
	iconActive  = "🔄"
	iconPending = "⬜"
)

// DefaultMinPushInterval spaces message edits to stay under the
// channel's own throttling.
const DefaultMinPushInterval = 2 * time.Second

// Reporter renders run progress into a fixed-format message and pushes
// it to the channel. Pushes are rate limited: a state change arriving
// before the minimum interval has elapsed waits rather than being
// dropped, so every transition is eventually visible. Channel failures
// are logged and swallowed; progress reporting never fails the run.
//
// A Reporter tracks one run and is not safe for concurrent use.
type Reporter struct {
	ch      Channel
	log     *zap.Logger
	limiter *rate.Limiter

	messageID   int64
	weekID      string
	itemCount   int
	currentStep int // -1 before the first stage starts
	detail      string
}

// New creates a reporter with the given minimum interval between
// pushes. A zero or negative interval disables the governor (used by
// tests running on virtual time).
func New(ch Channel, minPushInterval time.Duration, log *zap.Logger) *Reporter {
	return &Reporter{
		ch:          ch,
		log:         log,
		limiter:     rate.NewLimiter(rate.Every(minPushInterval), 1),
		currentStep: -1,
	}
}

// Start sends the initial progress message for a run.
func (r *Reporter) Start(ctx context.Context, weekID string, itemCount int) {
	r.weekID = weekID
	r.itemCount = itemCount
	r.currentStep = -1
	r.detail = ""

	id, err := r.ch.Send(ctx, r.render())
	if err != nil {
		r.log.Error("failed to send status message", zap.Error(err))
		return
	}
	r.messageID = id
}

// Update advances the active step and detail text and re-renders. The
// active step index never decreases.
func (r *Reporter) Update(ctx context.Context, step int, detail string) {
	if step > r.currentStep {
		r.currentStep = step
	}
	r.detail = detail
	r.push(ctx)
}

// Finish renders the terminal all-done view.
func (r *Reporter) Finish(ctx context.Context, resultPath string) {
	r.currentStep = StepCount
	if resultPath != "" {
		r.detail = "Saved to: " + resultPath
	} else {
		r.detail = "Complete"
	}
	r.push(ctx)
}

// Fail renders the failure view, keeping the step display at the stage
// that failed.
func (r *Reporter) Fail(ctx context.Context, errText string) {
	r.detail = "❌ Error: " + errText
	r.push(ctx)
}

// render is a pure function of the reporter state.
func (r *Reporter) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 Generating Weekly Digest (%s)\n", r.weekID)
	fmt.Fprintf(&b, "%d items to process\n\n", r.itemCount)

	filled := 0
	if r.currentStep >= 0 {
		filled = r.currentStep + 1
		if filled > StepCount {
			filled = StepCount
		}
	}
	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", StepCount-filled)
	switch {
	case r.currentStep >= StepCount:
		fmt.Fprintf(&b, "%s Complete!\n", bar)
	case r.currentStep >= 0:
		fmt.Fprintf(&b, "%s Step %d/%d: %s\n", bar, r.currentStep+1, StepCount, stepNames[r.currentStep])
	default:
		fmt.Fprintf(&b, "%s Starting...\n", bar)
	}
	b.WriteString("\n")

	for i, name := range stepNames {
		icon := iconPending
		switch {
		case i < r.currentStep:
			icon = iconDone
		case i == r.currentStep:
			icon = iconActive
		}
		fmt.Fprintf(&b, "%s %s\n", icon, name)
	}

	if r.detail != "" {
		fmt.Fprintf(&b, "\n%s", r.detail)
	}
	return b.String()
}

// push edits the status message, respecting the push governor. If the
// edit fails (the message may have been deleted externally) a fresh
// message is sent and subsequent pushes retarget it.
func (r *Reporter) push(ctx context.Context) {
	if r.messageID == 0 {
		return
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return
	}

	text := r.render()
	if err := r.ch.Edit(ctx, r.messageID, text); err != nil {
		r.log.Warn("failed to edit status message, sending a new one", zap.Error(err))
		id, sendErr := r.ch.Send(ctx, text)
		if sendErr != nil {
			r.log.Error("failed to send fallback status message", zap.Error(sendErr))
			return
		}
		r.messageID = id
	}
}
