package storage

import (
	"context"

	"github.com/mcoot/comicguess/internal/model"
)

// GuessOutcomeFunc applies a recorded guess to its player. progress is the state after the guess.
type GuessOutcomeFunc func(p *model.Player, progress *model.Progress) error

// Storage defines the interface for data persistence.
// Implementations must make RecordGuess atomic with respect to
// concurrent callers, including callers in other processes sharing the backend.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	// DeletePlayer removes the player with its credentials, guesses and progress
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Character operations
	// SaveCharacters replaces the whole pool of a track
	SaveCharacters(ctx context.Context, track model.Track, characters []*model.Character) error
	GetCharacters(ctx context.Context, track model.Track) ([]*model.Character, error)
	GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error)

	// Puzzle operations
	// SavePuzzle upserts by (date, track)
	SavePuzzle(ctx context.Context, puzzle *model.Puzzle) error
	GetPuzzle(ctx context.Context, date model.Date, track model.Track) (*model.Puzzle, error)

	// Guess operations
	// RecordGuess assigns the attempt number, appends the guess and applies fn to the
	// guessing player as one atomic write. fn may be nil. On model.ErrAlreadySolved,
	// model.ErrAttemptsExhausted, model.ErrPlayerNotFound or an error from fn nothing is written.
	RecordGuess(ctx context.Context, guess *model.Guess, maxAttempts int, fn GuessOutcomeFunc) (*model.Progress, *model.Player, error)
	GetGuesses(ctx context.Context, playerID model.PlayerID, puzzleID model.PuzzleID) ([]*model.Guess, error)
	// GetProgress returns zero progress when the player has not guessed yet
	GetProgress(ctx context.Context, playerID model.PlayerID, puzzleID model.PuzzleID) (*model.Progress, error)
}
