// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeChannel struct {
	sends   []string
	edits   []string
	editIDs []int64
	nextID  int64
	sendErr error
	editErr error
}

func (f *fakeChannel) Send(_ context.Context, text string) (int64, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sends = append(f.sends, text)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeChannel) Edit(_ context.Context, messageID int64, text string) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.editIDs = append(f.editIDs, messageID)
	f.edits = append(f.edits, text)
	return nil
}

func newTestReporter(ch Channel) *Reporter {
	return New(ch, 0, zap.NewNop())
}

func TestReporterLifecycle(t *testing.T) {
	ch := &fakeChannel{}
	r := newTestReporter(ch)
	ctx := context.Background()

	r.Start(ctx, "2024-W10", 7)
	if len(ch.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(ch.sends))
	}
	initial := ch.sends[0]
	if !strings.Contains(initial, "📰 Generating Weekly Digest (2024-W10)") {
		t.Errorf("missing header:\n%s", initial)
	}
	if !strings.Contains(initial, "7 items to process") {
		t.Errorf("missing item count:\n%s", initial)
	}
	if !strings.Contains(initial, "▱▱▱▱ Starting...") {
		t.Errorf("missing empty bar:\n%s", initial)
	}

	r.Update(ctx, 0, "Grouping items into topics")
	if len(ch.edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(ch.edits))
	}
	got := ch.edits[0]
	if !strings.Contains(got, "▰▱▱▱ Step 1/4: Clustering") {
		t.Errorf("wrong bar line:\n%s", got)
	}
	if !strings.Contains(got, "🔄 Clustering") || !strings.Contains(got, "⬜ Researching") {
		t.Errorf("wrong step icons:\n%s", got)
	}
	if !strings.Contains(got, "Grouping items into topics") {
		t.Errorf("missing detail line:\n%s", got)
	}

	r.Update(ctx, 2, "Writing 2/3: Go News")
	got = ch.edits[len(ch.edits)-1]
	if !strings.Contains(got, "▰▰▰▱ Step 3/4: Writing") {
		t.Errorf("wrong bar line:\n%s", got)
	}
	if !strings.Contains(got, "✅ Clustering") || !strings.Contains(got, "✅ Researching") ||
		!strings.Contains(got, "🔄 Writing") || !strings.Contains(got, "⬜ Assembling") {
		t.Errorf("wrong step icons:\n%s", got)
	}

	r.Finish(ctx, "/vault/2024-W10.md")
	got = ch.edits[len(ch.edits)-1]
	if !strings.Contains(got, "▰▰▰▰ Complete!") {
		t.Errorf("missing completion bar:\n%s", got)
	}
	if !strings.Contains(got, "✅ Assembling") {
		t.Errorf("all steps must be done:\n%s", got)
	}
	if !strings.Contains(got, "Saved to: /vault/2024-W10.md") {
		t.Errorf("missing result path:\n%s", got)
	}
}

func TestReporterFail(t *testing.T) {
	ch := &fakeChannel{}
	r := newTestReporter(ch)
	ctx := context.Background()

	r.Start(ctx, "2024-W10", 3)
	r.Update(ctx, 1, "Researching 1/2")
	r.Fail(ctx, "backend unavailable")

	got := ch.edits[len(ch.edits)-1]
	if !strings.Contains(got, "❌ Error: backend unavailable") {
		t.Errorf("missing error line:\n%s", got)
	}
	// The failed stage stays visibly active.
	if !strings.Contains(got, "🔄 Researching") {
		t.Errorf("failed step must remain active:\n%s", got)
	}
}

func TestReporterStepNeverDecreases(t *testing.T) {
	ch := &fakeChannel{}
	r := newTestReporter(ch)
	ctx := context.Background()

	r.Start(ctx, "2024-W10", 1)
	r.Update(ctx, 2, "writing")
	r.Update(ctx, 0, "stale update")

	got := ch.edits[len(ch.edits)-1]
	if !strings.Contains(got, "Step 3/4: Writing") {
		t.Errorf("step regressed:\n%s", got)
	}
}

func TestReporterEditFailureSendsNewMessage(t *testing.T) {
	ch := &fakeChannel{}
	r := newTestReporter(ch)
	ctx := context.Background()

	r.Start(ctx, "2024-W10", 1)
	ch.editErr = errors.New("message to edit not found")
	r.Update(ctx, 0, "clustering")
	if len(ch.sends) != 2 {
		t.Fatalf("sends = %d, want fallback send", len(ch.sends))
	}

	// Subsequent pushes retarget the replacement message.
	ch.editErr = nil
	r.Update(ctx, 1, "researching")
	if got := ch.editIDs[len(ch.editIDs)-1]; got != 2 {
		t.Errorf("edit targeted message %d, want 2", got)
	}
}

func TestReporterSendFailureDisablesPushes(t *testing.T) {
	ch := &fakeChannel{sendErr: errors.New("chat not found")}
	r := newTestReporter(ch)
	ctx := context.Background()

	r.Start(ctx, "2024-W10", 1)
	ch.sendErr = nil
	r.Update(ctx, 0, "clustering")
	r.Finish(ctx, "")

	if len(ch.edits) != 0 {
		t.Errorf("edits = %d, want 0 when the initial send failed", len(ch.edits))
	}
}
