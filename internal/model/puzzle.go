package model

import (
	"fmt"
	"time"
)

// PuzzleID identifies a puzzle as YYYYMMDD-track
type PuzzleID string

// NewPuzzleID builds the identifier for the puzzle of a date and track
func NewPuzzleID(date Date, track Track) PuzzleID {
	return PuzzleID(fmt.Sprintf("%s-%s", date.Compact(), track))
}

// Puzzle binds a track and date to the character that answers it.
// There is at most one puzzle per (Date, Track).
type Puzzle struct {
	ID          PuzzleID
	Track       Track
	Date        Date
	CharacterID CharacterID
	CreatedAt   time.Time
}
