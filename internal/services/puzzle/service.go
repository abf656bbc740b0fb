package puzzle

import (
	"context"
	"time"

	"github.com/mcoot/comicguess/internal/dependencies/clock"
	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/storage"
)

// Service is the read path for stored puzzles
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	location *time.Location
}

// New creates a puzzle Service that evaluates "today" in loc
func New(storage storage.Storage, clock clock.Clock, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		location: loc,
	}
}

// TodayDate returns the current date in the configured zone
func (s *Service) TodayDate() model.Date {
	return model.DateOf(s.clock.Now(), s.location)
}

// Today returns the active puzzle for track
func (s *Service) Today(ctx context.Context, track model.Track) (*model.Puzzle, error) {
	return s.ForDate(ctx, s.TodayDate(), track)
}

// ForDate returns the puzzle stored for (date, track)
func (s *Service) ForDate(ctx context.Context, date model.Date, track model.Track) (*model.Puzzle, error) {
	if !track.Valid() {
		return nil, model.ErrInvalidTrack
	}
	return s.storage.GetPuzzle(ctx, date, track)
}

// Reveal resolves the answer to a puzzle. It is for internal callers only.
func (s *Service) Reveal(ctx context.Context, p *model.Puzzle) (*model.Character, error) {
	return s.storage.GetCharacter(ctx, p.CharacterID)
}
