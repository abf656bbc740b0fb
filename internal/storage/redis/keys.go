package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/comicguess/internal/model"
)

// Key prefix for all ComicGuess data
const keyPrefix = "comicguess"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer
func registeredPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, strings.ToLower(username))
}

// poolKey returns the Redis key for the HASH of character id -> character in a track
func poolKey(track model.Track) string {
	return fmt.Sprintf("%s:pool:%s", keyPrefix, track)
}

// characterKey returns the Redis key for a single Character
func characterKey(id model.CharacterID) string {
	return fmt.Sprintf("%s:character:%s", keyPrefix, id)
}

// puzzleKey returns the Redis key for the puzzle of a date and track
func puzzleKey(date model.Date, track model.Track) string {
	return fmt.Sprintf("%s:puzzle:%s:%s", keyPrefix, date, track)
}

// progressKey returns the Redis key for a player's progress on a puzzle
func progressKey(playerID model.PlayerID, puzzleID model.PuzzleID) string {
	return fmt.Sprintf("%s:progress:%s:%s", keyPrefix, puzzleID, playerID)
}

// guessesKey returns the Redis key for the LIST of a player's guesses on a puzzle
func guessesKey(playerID model.PlayerID, puzzleID model.PuzzleID) string {
	return fmt.Sprintf("%s:guesses:%s:%s", keyPrefix, puzzleID, playerID)
}

// playerPuzzlesIndexKey returns the Redis key for the SET of puzzles a player has guessed on
func playerPuzzlesIndexKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_puzzles:%s", keyPrefix, playerID)
}
