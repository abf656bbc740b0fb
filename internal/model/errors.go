package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Input errors
	ErrInvalidTrack       = errors.New("invalid track")
	ErrInvalidDate        = errors.New("invalid date")
	ErrGuessEmpty         = errors.New("guess is empty")
	ErrGuessTooLong       = errors.New("guess is too long")
	ErrInvalidDisplayName = errors.New("invalid display name")

	// Content errors
	ErrCharacterNotFound = errors.New("character not found")
	ErrEmptyPool         = errors.New("character pool is empty")
	ErrInvalidPool       = errors.New("character pool is invalid")
	ErrCharacterIDTaken  = errors.New("character id belongs to another track")

	// Puzzle errors
	ErrPuzzleNotFound    = errors.New("puzzle not found")
	ErrAlreadySolved     = errors.New("puzzle already solved")
	ErrAttemptsExhausted = errors.New("no attempts remaining")
)
