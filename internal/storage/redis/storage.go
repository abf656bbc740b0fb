package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/storage"
)

// ErrContention is returned when an optimistic transaction keeps losing races
var ErrContention = errors.New("redis: too many concurrent modifications")

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// watch runs fn as an optimistic transaction over keys, retrying when a watched key changes
func (s *Storage) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	attempts := max(s.cfg.MaxTxRetries, 1)
	for range attempts {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

func (s *Storage) playerTTL(p *model.Player) time.Duration {
	if p.IsGuest {
		return s.cfg.GuestPlayerTTL
	}
	return 0
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, playerKey(player.ID), data, s.playerTTL(player)).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return getPlayer(ctx, s.client, id)
}

func getPlayer(ctx context.Context, c redis.Cmdable, id model.PlayerID) (*model.Player, error) {
	data, err := c.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	keys := []string{playerKey(id), registeredPlayerKey(id), playerPuzzlesIndexKey(id)}

	rp, err := s.GetRegisteredPlayer(ctx, id)
	switch {
	case err == nil:
		keys = append(keys, usernameIndexKey(rp.Username))
	case !errors.Is(err, model.ErrPlayerNotFound):
		return err
	}

	puzzleIDs, err := s.client.SMembers(ctx, playerPuzzlesIndexKey(id)).Result()
	if err != nil {
		return err
	}
	for _, puzzleID := range puzzleIDs {
		keys = append(keys,
			progressKey(id, model.PuzzleID(puzzleID)),
			guessesKey(id, model.PuzzleID(puzzleID)),
		)
	}

	return s.client.Del(ctx, keys...).Err()
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, registeredPlayerKey(rp.PlayerID), data, 0) // No TTL
	pipe.Set(ctx, usernameIndexKey(rp.Username), string(rp.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	data, err := s.client.Get(ctx, registeredPlayerKey(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rp model.RegisteredPlayer
	if err := json.Unmarshal(data, &rp); err != nil {
		return nil, err
	}
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetRegisteredPlayer(ctx, model.PlayerID(playerIDStr))
}

// Character operations

func (s *Storage) SaveCharacters(ctx context.Context, track model.Track, characters []*model.Character) error {
	fields := make(map[string]any, len(characters))
	values := make(map[string][]byte, len(characters))
	keys := []string{poolKey(track)}
	for _, c := range characters {
		stored := *c
		stored.Track = track
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		fields[string(c.ID)] = data
		values[characterKey(c.ID)] = data
		keys = append(keys, characterKey(c.ID))
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkCharacterOwners(ctx, tx, track, keys[1:]); err != nil {
			return err
		}
		oldIDs, err := tx.HKeys(ctx, poolKey(track)).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range oldIDs {
				pipe.Del(ctx, characterKey(model.CharacterID(id)))
			}
			pipe.Del(ctx, poolKey(track))
			if len(fields) > 0 {
				pipe.HSet(ctx, poolKey(track), fields)
			}
			for key, data := range values {
				pipe.Set(ctx, key, data, 0)
			}
			return nil
		})
		return err
	}, keys...)
}

// checkCharacterOwners fails if any of the character keys is stored under another track
func checkCharacterOwners(ctx context.Context, c redis.Cmdable, track model.Track, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	existing, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}
	for _, v := range existing {
		data, ok := v.(string)
		if !ok {
			continue
		}
		var owner model.Character
		if err := json.Unmarshal([]byte(data), &owner); err != nil {
			return err
		}
		if owner.Track != track {
			return fmt.Errorf("%w: %s is in the %s pool", model.ErrCharacterIDTaken, owner.ID, owner.Track)
		}
	}
	return nil
}

func (s *Storage) GetCharacters(ctx context.Context, track model.Track) ([]*model.Character, error) {
	values, err := s.client.HVals(ctx, poolKey(track)).Result()
	if err != nil {
		return nil, err
	}

	pool := make([]*model.Character, 0, len(values))
	for _, v := range values {
		var c model.Character
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			return nil, err
		}
		pool = append(pool, &c)
	}
	return pool, nil
}

func (s *Storage) GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	data, err := s.client.Get(ctx, characterKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrCharacterNotFound
		}
		return nil, err
	}

	var c model.Character
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Puzzle operations

func (s *Storage) SavePuzzle(ctx context.Context, puzzle *model.Puzzle) error {
	data, err := json.Marshal(puzzle)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, puzzleKey(puzzle.Date, puzzle.Track), data, 0).Err()
}

func (s *Storage) GetPuzzle(ctx context.Context, date model.Date, track model.Track) (*model.Puzzle, error) {
	data, err := s.client.Get(ctx, puzzleKey(date, track)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPuzzleNotFound
		}
		return nil, err
	}

	var p model.Puzzle
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Guess operations

func (s *Storage) RecordGuess(ctx context.Context, guess *model.Guess, maxAttempts int, fn storage.GuessOutcomeFunc) (*model.Progress, *model.Player, error) {
	key := progressKey(guess.PlayerID, guess.PuzzleID)
	pKey := playerKey(guess.PlayerID)
	var (
		resultProgress *model.Progress
		resultPlayer   *model.Player
	)

	err := s.watch(ctx, func(tx *redis.Tx) error {
		player, err := getPlayer(ctx, tx, guess.PlayerID)
		if err != nil {
			return err
		}
		progress, err := getProgress(ctx, tx, guess.PlayerID, guess.PuzzleID)
		if err != nil {
			return err
		}
		if err := progress.Apply(guess, maxAttempts); err != nil {
			return err
		}
		if fn != nil {
			outcome := *progress
			if err := fn(player, &outcome); err != nil {
				return err
			}
		}

		progressData, err := json.Marshal(progress)
		if err != nil {
			return err
		}
		guessData, err := json.Marshal(guess)
		if err != nil {
			return err
		}
		playerData, err := json.Marshal(player)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, progressData, 0)
			pipe.RPush(ctx, guessesKey(guess.PlayerID, guess.PuzzleID), guessData)
			pipe.SAdd(ctx, playerPuzzlesIndexKey(guess.PlayerID), string(guess.PuzzleID))
			pipe.Set(ctx, pKey, playerData, s.playerTTL(player))
			return nil
		})
		if err == nil {
			resultProgress = progress
			resultPlayer = player
		}
		return err
	}, key, pKey)
	if err != nil {
		return nil, nil, err
	}
	return resultProgress, resultPlayer, nil
}

func (s *Storage) GetGuesses(ctx context.Context, playerID model.PlayerID, puzzleID model.PuzzleID) ([]*model.Guess, error) {
	values, err := s.client.LRange(ctx, guessesKey(playerID, puzzleID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	guesses := make([]*model.Guess, 0, len(values))
	for _, v := range values {
		var g model.Guess
		if err := json.Unmarshal([]byte(v), &g); err != nil {
			return nil, err
		}
		guesses = append(guesses, &g)
	}
	return guesses, nil
}

func (s *Storage) GetProgress(ctx context.Context, playerID model.PlayerID, puzzleID model.PuzzleID) (*model.Progress, error) {
	return getProgress(ctx, s.client, playerID, puzzleID)
}

func getProgress(ctx context.Context, c redis.Cmdable, playerID model.PlayerID, puzzleID model.PuzzleID) (*model.Progress, error) {
	progress := &model.Progress{PlayerID: playerID, PuzzleID: puzzleID}

	data, err := c.Get(ctx, progressKey(playerID, puzzleID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return progress, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, progress); err != nil {
		return nil, err
	}
	return progress, nil
}
