package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[model.PlayerID]*model.RegisteredPlayer
	usernameIndex     map[string]model.PlayerID
	pools             map[model.Track][]*model.Character
	characters        map[model.CharacterID]*model.Character
	puzzles           map[puzzleKey]*model.Puzzle
	guesses           map[progressKey][]*model.Guess
	progress          map[progressKey]*model.Progress
}

type puzzleKey struct {
	date  model.Date
	track model.Track
}

type progressKey struct {
	playerID model.PlayerID
	puzzleID model.PuzzleID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[model.PlayerID]*model.RegisteredPlayer),
		usernameIndex:     make(map[string]model.PlayerID),
		pools:             make(map[model.Track][]*model.Character),
		characters:        make(map[model.CharacterID]*model.Character),
		puzzles:           make(map[puzzleKey]*model.Puzzle),
		guesses:           make(map[progressKey][]*model.Guess),
		progress:          make(map[progressKey]*model.Progress),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player.Clone()
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.players, id)
	if rp, ok := s.registeredPlayers[id]; ok {
		delete(s.usernameIndex, strings.ToLower(rp.Username))
		delete(s.registeredPlayers, id)
	}
	for key := range s.progress {
		if key.playerID == id {
			delete(s.progress, key)
		}
	}
	for key := range s.guesses {
		if key.playerID == id {
			delete(s.guesses, key)
		}
	}
	return nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *rp
	s.registeredPlayers[rp.PlayerID] = &stored
	s.usernameIndex[strings.ToLower(rp.Username)] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	result := *rp
	return &result, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	playerID, ok := s.usernameIndex[strings.ToLower(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.GetRegisteredPlayer(ctx, playerID)
}

// Character operations

func (s *Storage) SaveCharacters(ctx context.Context, track model.Track, characters []*model.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range characters {
		if owner, ok := s.characters[c.ID]; ok && owner.Track != track {
			return fmt.Errorf("%w: %s is in the %s pool", model.ErrCharacterIDTaken, c.ID, owner.Track)
		}
	}

	for _, old := range s.pools[track] {
		delete(s.characters, old.ID)
	}

	pool := make([]*model.Character, 0, len(characters))
	for _, c := range characters {
		stored := cloneCharacter(c)
		stored.Track = track
		pool = append(pool, stored)
		s.characters[stored.ID] = stored
	}
	s.pools[track] = pool
	return nil
}

func (s *Storage) GetCharacters(ctx context.Context, track model.Track) ([]*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool := s.pools[track]
	result := make([]*model.Character, 0, len(pool))
	for _, c := range pool {
		result = append(result, cloneCharacter(c))
	}
	return result, nil
}

func (s *Storage) GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[id]
	if !ok {
		return nil, model.ErrCharacterNotFound
	}
	return cloneCharacter(c), nil
}

// Puzzle operations

func (s *Storage) SavePuzzle(ctx context.Context, puzzle *model.Puzzle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *puzzle
	s.puzzles[puzzleKey{puzzle.Date, puzzle.Track}] = &stored
	return nil
}

func (s *Storage) GetPuzzle(ctx context.Context, date model.Date, track model.Track) (*model.Puzzle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.puzzles[puzzleKey{date, track}]
	if !ok {
		return nil, model.ErrPuzzleNotFound
	}
	result := *p
	return &result, nil
}

// Guess operations

func (s *Storage) RecordGuess(ctx context.Context, guess *model.Guess, maxAttempts int, fn storage.GuessOutcomeFunc) (*model.Progress, *model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.players[guess.PlayerID]
	if !ok {
		return nil, nil, model.ErrPlayerNotFound
	}

	key := progressKey{guess.PlayerID, guess.PuzzleID}
	progress := model.Progress{PlayerID: guess.PlayerID, PuzzleID: guess.PuzzleID}
	if existing, ok := s.progress[key]; ok {
		progress = *existing
	}

	if err := progress.Apply(guess, maxAttempts); err != nil {
		return nil, nil, err
	}

	player := current.Clone()
	if fn != nil {
		outcome := progress
		if err := fn(player, &outcome); err != nil {
			return nil, nil, err
		}
	}

	stored := *guess
	s.guesses[key] = append(s.guesses[key], &stored)
	s.progress[key] = &progress
	s.players[player.ID] = player

	result := progress
	return &result, player.Clone(), nil
}

func (s *Storage) GetGuesses(ctx context.Context, playerID model.PlayerID, puzzleID model.PuzzleID) ([]*model.Guess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	guesses := s.guesses[progressKey{playerID, puzzleID}]
	result := make([]*model.Guess, 0, len(guesses))
	for _, g := range guesses {
		c := *g
		result = append(result, &c)
	}
	return result, nil
}

func (s *Storage) GetProgress(ctx context.Context, playerID model.PlayerID, puzzleID model.PuzzleID) (*model.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[progressKey{playerID, puzzleID}]
	if !ok {
		return &model.Progress{PlayerID: playerID, PuzzleID: puzzleID}, nil
	}
	result := *p
	return &result, nil
}

func cloneCharacter(c *model.Character) *model.Character {
	result := *c
	result.Aliases = slices.Clone(c.Aliases)
	return &result
}
