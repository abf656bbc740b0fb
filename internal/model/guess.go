package model

import "time"

// GuessID uniquely identifies a guess
type GuessID string

// Guess is a single submission by a player against a puzzle. Guesses are append-only.
type Guess struct {
	ID            GuessID
	PlayerID      PlayerID
	PuzzleID      PuzzleID
	Text          string
	Correct       bool
	AttemptNumber int // 1-based, assigned by storage
	CreatedAt     time.Time
}

// Progress tracks a player's attempts against one puzzle
type Progress struct {
	PlayerID     PlayerID
	PuzzleID     PuzzleID
	AttemptsUsed int
	Solved       bool
	Finished     bool // solved or out of attempts
	UpdatedAt    time.Time
}

// Apply checks g against the progress and records it.
// The caller must hold whatever lock protects the progress record.
func (p *Progress) Apply(g *Guess, maxAttempts int) error {
	if p.Solved {
		return ErrAlreadySolved
	}
	if p.AttemptsUsed >= maxAttempts {
		return ErrAttemptsExhausted
	}

	p.AttemptsUsed++
	g.AttemptNumber = p.AttemptsUsed
	if g.Correct {
		p.Solved = true
	}
	p.Finished = p.Solved || p.AttemptsUsed >= maxAttempts
	p.UpdatedAt = g.CreatedAt
	return nil
}

// AttemptsRemaining returns how many guesses are left under maxAttempts
func (p *Progress) AttemptsRemaining(maxAttempts int) int {
	if p.Solved {
		return 0
	}
	return max(maxAttempts-p.AttemptsUsed, 0)
}
