// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule triggers the digest pipeline once a week at a
// configured local time and delivers the result.
// See docs/ARCHITECTURE § Scheduler.
package schedule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/digest-engine/internal/period"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// Runner starts a pipeline run for a week. pipeline.Coordinator
// implements it.
type Runner interface {
	Run(ctx context.Context, weekID string) (string, error)
}

// Deliverer pushes scheduled-run results to the user. notify.Telegram
// implements it.
type Deliverer interface {
	Send(ctx context.Context, text string) (int64, error)
	SendDocument(ctx context.Context, filename string, content []byte, caption string) error
}

// NextRun returns the first occurrence of the configured weekly slot
// strictly after from, in the configured timezone. An unknown timezone
// falls back to UTC.
func NextRun(cfg types.ScheduleConfig, from time.Time) time.Time {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := from.In(loc)

	next := time.Date(local.Year(), local.Month(), local.Day(), cfg.Hour, cfg.Minute, 0, 0, loc)
	days := (cfg.DayOfWeek - int(local.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Scheduler fires the pipeline for the current week on a weekly cadence.
type Scheduler struct {
	cfg       types.ScheduleConfig
	runner    Runner
	deliverer Deliverer
	log       *zap.Logger

	// now is swapped in tests.
	now func() time.Time
}

// New builds a scheduler. deliverer may be nil, in which case results
// stay on disk and only the log records the outcome.
func New(cfg types.ScheduleConfig, runner Runner, deliverer Deliverer, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		runner:    runner,
		deliverer: deliverer,
		log:       log,
		now:       time.Now,
	}
}

// Start blocks until ctx is cancelled, firing the pipeline at each
// scheduled slot. Returns immediately when scheduling is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return nil
	}

	for {
		next := NextRun(s.cfg, s.now())
		s.log.Info("next scheduled run", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.RunOnce(ctx)
	}
}

// RunOnce triggers the pipeline for the week containing the current
// time and delivers the outcome. Delivery failures are logged, never
// propagated: the digest is already on disk.
func (s *Scheduler) RunOnce(ctx context.Context) {
	weekID := period.FromTime(s.now())
	s.log.Info("scheduled run starting", zap.String("week", weekID))

	path, err := s.runner.Run(ctx, weekID)
	switch {
	case err != nil:
		s.log.Error("scheduled run failed", zap.String("week", weekID), zap.Error(err))
		s.deliver(ctx, func(ctx context.Context) error {
			_, sendErr := s.deliverer.Send(ctx, fmt.Sprintf("❌ Weekly digest %s failed: %v", weekID, err))
			return sendErr
		})
	case path == "":
		s.log.Info("scheduled run found no items", zap.String("week", weekID))
		s.deliver(ctx, func(ctx context.Context) error {
			_, sendErr := s.deliverer.Send(ctx, fmt.Sprintf("No items were collected for %s, skipping the digest.", weekID))
			return sendErr
		})
	default:
		s.log.Info("scheduled run completed", zap.String("week", weekID), zap.String("path", path))
		s.deliver(ctx, func(ctx context.Context) error {
			content, readErr := os.ReadFile(path)
			if readErr != nil {
				return readErr
			}
			return s.deliverer.SendDocument(ctx, filepath.Base(path), content,
				fmt.Sprintf("📰 Your weekly digest for %s is ready.", weekID))
		})
	}
}

func (s *Scheduler) deliver(ctx context.Context, fn func(context.Context) error) {
	if s.deliverer == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.log.Error("failed to deliver scheduled-run result", zap.Error(err))
	}
}
