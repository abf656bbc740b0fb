package characters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/storage"
)

// Service manages the character pools that puzzles are drawn from
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

// New creates a new character Service
func New(storage storage.Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// LoadFromFile loads a YAML seed file and replaces the pools of every track it names
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.LoadSeed(ctx, data)
}

// LoadSeed loads pools from an in-memory seed document. Nothing is stored
// unless every pool in the document passes validation.
func (s *Service) LoadSeed(ctx context.Context, data []byte) error {
	pools, err := ParseSeed(data)
	if err != nil {
		return err
	}

	var errs []error
	for _, track := range model.AllTracks() {
		pool, ok := pools[track]
		if !ok {
			continue
		}
		if err := s.check(track, pool); err != nil {
			errs = append(errs, err)
		}
	}
	if err := CheckUniqueIDs(pools); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, track := range model.AllTracks() {
		pool, ok := pools[track]
		if !ok {
			continue
		}
		if err := s.storage.SaveCharacters(ctx, track, pool); err != nil {
			return fmt.Errorf("save %s pool: %w", track, err)
		}
		s.logger.Info("character pool loaded",
			slog.String("track", string(track)),
			slog.Int("size", len(pool)),
		)
	}
	return nil
}

// LoadCharacters validates and replaces the pool of a single track
func (s *Service) LoadCharacters(ctx context.Context, track model.Track, pool []*model.Character) error {
	for _, c := range pool {
		if c.ID == "" {
			c.ID = DefaultID(track, c.Name)
		}
		c.Track = track
	}
	if err := s.check(track, pool); err != nil {
		return err
	}
	return s.storage.SaveCharacters(ctx, track, pool)
}

// Pool returns the stored pool for a track
func (s *Service) Pool(ctx context.Context, track model.Track) ([]*model.Character, error) {
	return s.storage.GetCharacters(ctx, track)
}

// Get returns a single character
func (s *Service) Get(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	return s.storage.GetCharacter(ctx, id)
}

func (s *Service) check(track model.Track, pool []*model.Character) error {
	report := Validate(track, pool)
	for _, issue := range report.Issues {
		level := slog.LevelError
		if issue.Severity == SeverityWarning {
			level = slog.LevelWarn
		}
		s.logger.Log(context.Background(), level, "character pool issue",
			slog.String("track", string(track)),
			slog.String("severity", string(issue.Severity)),
			slog.String("character_id", string(issue.CharacterID)),
			slog.String("message", issue.Message),
		)
	}
	if !report.Blocking() {
		return nil
	}

	msgs := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		if issue.Severity != SeverityWarning {
			msgs = append(msgs, issue.String())
		}
	}
	return fmt.Errorf("%w: %s: %s", model.ErrInvalidPool, track, strings.Join(msgs, "; "))
}
