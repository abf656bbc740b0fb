package selector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/mcoot/comicguess/internal/dependencies/clock"
	"github.com/mcoot/comicguess/internal/metrics"
	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/storage"
)

// Config holds configuration for daily selection
type Config struct {
	// Location defines where "today" and midnight are evaluated
	Location *time.Location

	// Retry policy for storage operations
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig returns default selector configuration
func DefaultConfig() Config {
	return Config{
		Location:        time.UTC,
		MaxRetries:      4,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// Service picks and stores the daily puzzle for each track
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a new selector Service
func New(storage storage.Storage, clock clock.Clock, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		storage: storage,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Location returns the zone selection dates are evaluated in
func (s *Service) Location() *time.Location {
	return s.cfg.Location
}

// Today returns the current date in the configured zone
func (s *Service) Today() model.Date {
	return model.DateOf(s.clock.Now(), s.cfg.Location)
}

// PickIndex maps (date, track) to a position in a pool of size n.
// The result depends only on its inputs. Returns -1 for an empty pool.
func PickIndex(date model.Date, track model.Track, n int) int {
	if n <= 0 {
		return -1
	}
	h := xxhash.Sum64String(string(date) + ":" + string(track))
	return int(h % uint64(n))
}

// Choose returns the character for (date, track) from pool, ordering the pool by id first
func Choose(date model.Date, track model.Track, pool []*model.Character) (*model.Character, error) {
	if len(pool) == 0 {
		return nil, model.ErrEmptyPool
	}
	sorted := slices.Clone(pool)
	slices.SortFunc(sorted, func(a, b *model.Character) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return sorted[PickIndex(date, track, len(sorted))], nil
}

// SelectPuzzle chooses and stores the puzzle for (date, track).
// Re-running for the same inputs and pool stores the same puzzle again.
func (s *Service) SelectPuzzle(ctx context.Context, date model.Date, track model.Track) (*model.Puzzle, error) {
	if !track.Valid() {
		return nil, model.ErrInvalidTrack
	}
	logger := s.logger.With(
		slog.String("track", string(track)),
		slog.String("date", string(date)),
	)

	var pool []*model.Character
	err := s.retry(ctx, track, func() error {
		var err error
		pool, err = s.storage.GetCharacters(ctx, track)
		return err
	})
	if err != nil {
		s.fail(track, metrics.OutcomeFailed)
		logger.Error("failed to load character pool", slog.String("error", err.Error()))
		return nil, fmt.Errorf("load %s pool: %w", track, err)
	}

	character, err := Choose(date, track, pool)
	if err != nil {
		s.fail(track, metrics.OutcomeEmpty)
		logger.Error("cannot select puzzle", slog.String("error", err.Error()))
		return nil, err
	}

	puzzle := &model.Puzzle{
		ID:          model.NewPuzzleID(date, track),
		Track:       track,
		Date:        date,
		CharacterID: character.ID,
		CreatedAt:   s.clock.Now(),
	}

	err = s.retry(ctx, track, func() error {
		return s.storage.SavePuzzle(ctx, puzzle)
	})
	if err != nil {
		s.fail(track, metrics.OutcomeFailed)
		logger.Error("failed to store puzzle", slog.String("error", err.Error()))
		return nil, fmt.Errorf("store %s puzzle: %w", track, err)
	}

	s.metrics.Selections.WithLabelValues(string(track), metrics.OutcomeSelected).Inc()
	logger.Info("puzzle selected",
		slog.String("puzzle_id", string(puzzle.ID)),
		slog.Int("pool_size", len(pool)),
	)
	return puzzle, nil
}

// Result is the outcome of selecting one track
type Result struct {
	Track  model.Track
	Puzzle *model.Puzzle
	Err    error
}

// Report is the outcome of selecting every track for a date
type Report struct {
	Date    model.Date
	Results []Result
}

// Err joins the errors of all failed tracks, or returns nil
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Track, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns the tracks that did not get a puzzle
func (r *Report) Failed() []model.Track {
	var tracks []model.Track
	for _, res := range r.Results {
		if res.Err != nil {
			tracks = append(tracks, res.Track)
		}
	}
	return tracks
}

// SelectAll selects every track for date. A failing track does not stop the others.
func (s *Service) SelectAll(ctx context.Context, date model.Date) *Report {
	tracks := model.AllTracks()
	report := &Report{Date: date, Results: make([]Result, len(tracks))}

	var wg sync.WaitGroup
	for i, track := range tracks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			puzzle, err := s.SelectPuzzle(ctx, date, track)
			report.Results[i] = Result{Track: track, Puzzle: puzzle, Err: err}
		}()
	}
	wg.Wait()

	return report
}

func (s *Service) retry(ctx context.Context, track model.Track, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	b.MaxInterval = s.cfg.MaxInterval

	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.MaxRetries), ctx)
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		s.metrics.SelectionRetries.WithLabelValues(string(track)).Inc()
		s.logger.Warn("retrying selection storage operation",
			slog.String("track", string(track)),
			slog.String("error", err.Error()),
			slog.Duration("wait", wait),
		)
	})
}

func (s *Service) fail(track model.Track, outcome string) {
	s.metrics.Selections.WithLabelValues(string(track), outcome).Inc()
	s.metrics.SelectionFailures.WithLabelValues(string(track)).Inc()
}
