package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/storage"
)

// Config holds PostgreSQL connection settings
type Config struct {
	// DSN is a libpq connection string or postgres:// URL
	DSN string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate creates or updates the schema on startup
	AutoMigrate bool
}

// DefaultConfig returns sensible defaults for PostgreSQL configuration
func DefaultConfig() Config {
	return Config{
		DSN:             "postgres://localhost:5432/comicguess?sslmode=disable",
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
	}
}

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	db *gorm.DB
}

// New opens a connection pool and optionally migrates the schema
func New(cfg Config) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	s := NewWithDB(db)
	if cfg.AutoMigrate {
		if err := s.Migrate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB creates a storage over an existing gorm handle
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// Migrate creates or updates all tables
func (s *Storage) Migrate() error {
	return s.db.AutoMigrate(allRows()...)
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func notFound(err, replacement error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return replacement
	}
	return err
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	return s.db.WithContext(ctx).Save(playerToRow(player)).Error
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var row playerRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, model.ErrPlayerNotFound)
	}
	return row.toModel(), nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the player before its progress rows, in the same order as RecordGuess
		var locked []playerRow
		if err := tx.Clauses(forUpdate).Where("id = ?", string(id)).Find(&locked).Error; err != nil {
			return err
		}
		if err := tx.Where("player_id = ?", string(id)).Delete(&guessRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("player_id = ?", string(id)).Delete(&progressRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("player_id = ?", string(id)).Delete(&registeredPlayerRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", string(id)).Delete(&playerRow{}).Error
	})
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	row := &registeredPlayerRow{
		PlayerID:     string(rp.PlayerID),
		Username:     strings.ToLower(rp.Username),
		DisplayUser:  rp.Username,
		PasswordHash: rp.PasswordHash,
		CreatedAt:    rp.CreatedAt,
		UpdatedAt:    rp.UpdatedAt,
	}
	return s.db.WithContext(ctx).Save(row).Error
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	var row registeredPlayerRow
	if err := s.db.WithContext(ctx).First(&row, "player_id = ?", string(playerID)).Error; err != nil {
		return nil, notFound(err, model.ErrPlayerNotFound)
	}
	return row.toModel(), nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	var row registeredPlayerRow
	if err := s.db.WithContext(ctx).First(&row, "username = ?", strings.ToLower(username)).Error; err != nil {
		return nil, notFound(err, model.ErrPlayerNotFound)
	}
	return row.toModel(), nil
}

// Character operations

func (s *Storage) SaveCharacters(ctx context.Context, track model.Track, characters []*model.Character) error {
	rows := make([]*characterRow, 0, len(characters))
	for _, c := range characters {
		rows = append(rows, &characterRow{
			ID:       string(c.ID),
			Track:    string(track),
			Name:     c.Name,
			Aliases:  c.Aliases,
			ImageKey: c.ImageKey,
		})
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(ids) > 0 {
			var taken characterRow
			err := tx.Where("id IN ? AND track <> ?", ids, string(track)).Limit(1).Find(&taken).Error
			if err != nil {
				return err
			}
			if taken.ID != "" {
				return fmt.Errorf("%w: %s is in the %s pool", model.ErrCharacterIDTaken, taken.ID, taken.Track)
			}
		}
		if err := tx.Where("track = ?", string(track)).Delete(&characterRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (s *Storage) GetCharacters(ctx context.Context, track model.Track) ([]*model.Character, error) {
	var rows []characterRow
	if err := s.db.WithContext(ctx).Where("track = ?", string(track)).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	pool := make([]*model.Character, 0, len(rows))
	for i := range rows {
		pool = append(pool, rows[i].toModel())
	}
	return pool, nil
}

func (s *Storage) GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	var row characterRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, model.ErrCharacterNotFound)
	}
	return row.toModel(), nil
}

// Puzzle operations

func (s *Storage) SavePuzzle(ctx context.Context, puzzle *model.Puzzle) error {
	row := &puzzleRow{
		ID:          string(puzzle.ID),
		Date:        string(puzzle.Date),
		Track:       string(puzzle.Track),
		CharacterID: string(puzzle.CharacterID),
		CreatedAt:   puzzle.CreatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
}

func (s *Storage) GetPuzzle(ctx context.Context, date model.Date, track model.Track) (*model.Puzzle, error) {
	var row puzzleRow
	err := s.db.WithContext(ctx).
		Where("date = ? AND track = ?", string(date), string(track)).
		First(&row).Error
	if err != nil {
		return nil, notFound(err, model.ErrPuzzleNotFound)
	}
	return row.toModel(), nil
}

// Guess operations

func (s *Storage) RecordGuess(ctx context.Context, guess *model.Guess, maxAttempts int, fn storage.GuessOutcomeFunc) (*model.Progress, *model.Player, error) {
	var (
		resultProgress *model.Progress
		resultPlayer   *model.Player
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prow playerRow
		if err := tx.Clauses(forUpdate).First(&prow, "id = ?", string(guess.PlayerID)).Error; err != nil {
			return notFound(err, model.ErrPlayerNotFound)
		}

		// Make sure a row exists to lock; concurrent first guesses race on the insert, not the lock
		seed := &progressRow{PlayerID: string(guess.PlayerID), PuzzleID: string(guess.PuzzleID)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return err
		}

		var row progressRow
		err := tx.Clauses(forUpdate).
			Where("player_id = ? AND puzzle_id = ?", string(guess.PlayerID), string(guess.PuzzleID)).
			First(&row).Error
		if err != nil {
			return err
		}

		progress := row.toModel()
		if err := progress.Apply(guess, maxAttempts); err != nil {
			return err
		}

		player := prow.toModel()
		if fn != nil {
			outcome := *progress
			if err := fn(player, &outcome); err != nil {
				return err
			}
			if err := tx.Save(playerToRow(player)).Error; err != nil {
				return err
			}
		}

		updated := progressRow{
			PlayerID:     row.PlayerID,
			PuzzleID:     row.PuzzleID,
			AttemptsUsed: progress.AttemptsUsed,
			Solved:       progress.Solved,
			Finished:     progress.Finished,
			UpdatedAt:    progress.UpdatedAt,
		}
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}

		if err := tx.Create(&guessRow{
			ID:            string(guess.ID),
			PlayerID:      string(guess.PlayerID),
			PuzzleID:      string(guess.PuzzleID),
			Text:          guess.Text,
			Correct:       guess.Correct,
			AttemptNumber: guess.AttemptNumber,
			CreatedAt:     guess.CreatedAt,
		}).Error; err != nil {
			return err
		}

		resultProgress = progress
		resultPlayer = player
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return resultProgress, resultPlayer, nil
}

func (s *Storage) GetGuesses(ctx context.Context, playerID model.PlayerID, puzzleID model.PuzzleID) ([]*model.Guess, error) {
	var rows []guessRow
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND puzzle_id = ?", string(playerID), string(puzzleID)).
		Order("attempt_number").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	guesses := make([]*model.Guess, 0, len(rows))
	for i := range rows {
		guesses = append(guesses, rows[i].toModel())
	}
	return guesses, nil
}

func (s *Storage) GetProgress(ctx context.Context, playerID model.PlayerID, puzzleID model.PuzzleID) (*model.Progress, error) {
	var row progressRow
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND puzzle_id = ?", string(playerID), string(puzzleID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.Progress{PlayerID: playerID, PuzzleID: puzzleID}, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}
