package selector

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/comicguess/internal/dependencies/clock"
	"github.com/mcoot/comicguess/internal/model"
)

// NextRun returns the first midnight in loc strictly after now
func NextRun(now time.Time, loc *time.Location) time.Time {
	t := now.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// Scheduler runs selection for today on start and again at every midnight
type Scheduler struct {
	selector *Service
	clock    clock.Clock
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler driven by the selector's clock and zone
func NewScheduler(selector *Service) *Scheduler {
	return &Scheduler{
		selector: selector,
		clock:    selector.clock,
		logger:   selector.logger,
	}
}

// RunOnce selects every track for date and logs the outcome
func (s *Scheduler) RunOnce(ctx context.Context, date model.Date) *Report {
	report := s.selector.SelectAll(ctx, date)
	if failed := report.Failed(); len(failed) > 0 {
		s.logger.Error("daily selection incomplete",
			slog.String("date", string(date)),
			slog.Any("failed_tracks", failed),
		)
	} else {
		s.logger.Info("daily selection complete", slog.String("date", string(date)))
	}
	return report
}

// Run blocks until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	loc := s.selector.Location()
	s.RunOnce(ctx, model.DateOf(s.clock.Now(), loc))

	for {
		now := s.clock.Now()
		next := NextRun(now, loc)
		s.logger.Info("next selection scheduled", slog.Time("at", next))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(next.Sub(now)):
			// Select for the scheduled date, not the wake-up time
			s.RunOnce(ctx, model.DateOf(next, loc))
		}
	}
}
