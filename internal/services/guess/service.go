package guess

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mcoot/comicguess/internal/dependencies/clock"
	"github.com/mcoot/comicguess/internal/dependencies/ids"
	"github.com/mcoot/comicguess/internal/metrics"
	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/services/puzzle"
	"github.com/mcoot/comicguess/internal/storage"
)

// MaxGuessLength is the longest accepted guess, in characters
const MaxGuessLength = 100

// Config holds configuration for guess checking
type Config struct {
	MaxAttempts int

	// ImageBaseURL is prefixed to a character's image key when revealing it
	ImageBaseURL string
}

// DefaultConfig returns default guess configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 6,
	}
}

// Result is the outcome of one guess.
// Character and ImageURL are only set when the guess is correct.
type Result struct {
	PuzzleID          model.PuzzleID
	Date              model.Date
	Correct           bool
	FirstSolve        bool
	Character         *model.Character
	ImageURL          string
	AttemptNumber     int
	MaxAttempts       int
	AttemptsRemaining int
	GameOver          bool
	Streak            int
}

// Status summarises a player's standing on one track's puzzle for today
type Status struct {
	Track             model.Track
	PuzzleAvailable   bool
	PuzzleID          model.PuzzleID
	Date              model.Date
	AttemptsUsed      int
	AttemptsRemaining int
	MaxAttempts       int
	Solved            bool
	Finished          bool
	CanGuess          bool

	// Set once the player has solved the puzzle
	Character *model.Character
	ImageURL  string
}

// Service checks guesses against today's puzzles and keeps streaks up to date
type Service struct {
	storage   storage.Storage
	clock     clock.Clock
	ids       ids.Generator
	puzzles   *puzzle.Service
	cfg       Config
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates a new guess Service
func New(
	storage storage.Storage,
	clock clock.Clock,
	ids ids.Generator,
	puzzles *puzzle.Service,
	cfg Config,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		storage:   storage,
		clock:     clock,
		ids:       ids,
		puzzles:   puzzles,
		cfg:       cfg,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
		metrics:   m,
	}
}

// MaxAttempts returns the per-puzzle attempt limit
func (s *Service) MaxAttempts() int {
	return s.cfg.MaxAttempts
}

// CleanGuess strips markup and surrounding whitespace and enforces the length limit
func (s *Service) CleanGuess(text string) (string, error) {
	text = strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
	if text == "" {
		return "", model.ErrGuessEmpty
	}
	if utf8.RuneCountInString(text) > MaxGuessLength {
		return "", model.ErrGuessTooLong
	}
	return text, nil
}

// CheckGuess evaluates a guess against today's puzzle on track and records it
func (s *Service) CheckGuess(ctx context.Context, playerID model.PlayerID, track model.Track, text string) (*Result, error) {
	if !track.Valid() {
		return nil, model.ErrInvalidTrack
	}
	text, err := s.CleanGuess(text)
	if err != nil {
		s.reject(track)
		return nil, err
	}

	p, err := s.puzzles.Today(ctx, track)
	if err != nil {
		return nil, err
	}
	answer, err := s.puzzles.Reveal(ctx, p)
	if err != nil {
		s.logger.Error("puzzle answer missing from pool",
			"puzzle_id", p.ID,
			"character_id", p.CharacterID,
			"error", err,
		)
		return nil, fmt.Errorf("resolve puzzle %s: %w", p.ID, err)
	}

	g := &model.Guess{
		ID:        model.GuessID(s.ids.NewID()),
		PlayerID:  playerID,
		PuzzleID:  p.ID,
		Text:      text,
		Correct:   answer.Matches(text),
		CreatedAt: s.clock.Now(),
	}

	// Streak changes commit together with the guess
	progress, player, err := s.storage.RecordGuess(ctx, g, s.cfg.MaxAttempts, func(pl *model.Player, pr *model.Progress) error {
		switch {
		case pr.Solved:
			pl.RecordWin(track, p.Date)
		case pr.Finished:
			pl.RecordLoss(track, p.Date)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadySolved) || errors.Is(err, model.ErrAttemptsExhausted) {
			s.reject(track)
		} else if !errors.Is(err, model.ErrPlayerNotFound) {
			s.logger.Error("failed to record guess",
				"player_id", playerID,
				"puzzle_id", p.ID,
				"error", err,
			)
		}
		return nil, err
	}

	// RecordGuess refuses guesses once solved, so an accepted correct guess is the first
	firstSolve := g.Correct

	result := &Result{
		PuzzleID:          p.ID,
		Date:              p.Date,
		Correct:           g.Correct,
		FirstSolve:        firstSolve,
		AttemptNumber:     g.AttemptNumber,
		MaxAttempts:       s.cfg.MaxAttempts,
		AttemptsRemaining: progress.AttemptsRemaining(s.cfg.MaxAttempts),
		GameOver:          progress.Finished,
		Streak:            player.CurrentStreak(track, p.Date),
	}
	if g.Correct {
		result.Character = answer
		result.ImageURL = s.ImageURL(answer)
		s.metrics.Guesses.WithLabelValues(track.String(), metrics.ResultCorrect).Inc()
		s.metrics.Solves.WithLabelValues(track.String()).Inc()
	} else {
		s.metrics.Guesses.WithLabelValues(track.String(), metrics.ResultIncorrect).Inc()
	}

	s.logger.Info("guess checked",
		"player_id", playerID,
		"puzzle_id", p.ID,
		"attempt", g.AttemptNumber,
		"correct", g.Correct,
		"game_over", progress.Finished,
	)
	return result, nil
}

// Status reports the player's progress on today's puzzle for track
func (s *Service) Status(ctx context.Context, playerID model.PlayerID, track model.Track) (*Status, error) {
	if !track.Valid() {
		return nil, model.ErrInvalidTrack
	}
	p, err := s.puzzles.Today(ctx, track)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, playerID, p)
}

// History returns today's guesses on track in attempt order
func (s *Service) History(ctx context.Context, playerID model.PlayerID, track model.Track) ([]*model.Guess, error) {
	if !track.Valid() {
		return nil, model.ErrInvalidTrack
	}
	p, err := s.puzzles.Today(ctx, track)
	if err != nil {
		return nil, err
	}
	return s.storage.GetGuesses(ctx, playerID, p.ID)
}

// DailyProgress returns a Status for every track.
// Tracks without a puzzle today are reported with PuzzleAvailable false.
func (s *Service) DailyProgress(ctx context.Context, playerID model.PlayerID) ([]*Status, error) {
	today := s.puzzles.TodayDate()

	var statuses []*Status
	for _, track := range model.AllTracks() {
		p, err := s.puzzles.ForDate(ctx, today, track)
		if errors.Is(err, model.ErrPuzzleNotFound) {
			statuses = append(statuses, &Status{
				Track:       track,
				Date:        today,
				MaxAttempts: s.cfg.MaxAttempts,
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		st, err := s.status(ctx, playerID, p)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// ImageURL builds the public URL of a character's image
func (s *Service) ImageURL(c *model.Character) string {
	if s.cfg.ImageBaseURL == "" {
		return c.ImageKey
	}
	return strings.TrimRight(s.cfg.ImageBaseURL, "/") + "/" + strings.TrimLeft(c.ImageKey, "/")
}

func (s *Service) status(ctx context.Context, playerID model.PlayerID, p *model.Puzzle) (*Status, error) {
	progress, err := s.storage.GetProgress(ctx, playerID, p.ID)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Track:             p.Track,
		PuzzleAvailable:   true,
		PuzzleID:          p.ID,
		Date:              p.Date,
		AttemptsUsed:      progress.AttemptsUsed,
		AttemptsRemaining: progress.AttemptsRemaining(s.cfg.MaxAttempts),
		MaxAttempts:       s.cfg.MaxAttempts,
		Solved:            progress.Solved,
		Finished:          progress.Finished,
	}
	st.CanGuess = !st.Solved && st.AttemptsRemaining > 0

	if progress.Solved {
		answer, err := s.puzzles.Reveal(ctx, p)
		if err != nil {
			return nil, err
		}
		st.Character = answer
		st.ImageURL = s.ImageURL(answer)
	}
	return st, nil
}

func (s *Service) reject(track model.Track) {
	s.metrics.Guesses.WithLabelValues(track.String(), metrics.ResultRejected).Inc()
}
