package response

import (
	"time"

	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/services/auth"
	"github.com/mcoot/comicguess/internal/services/guess"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	TotalGames  int    `json:"total_games"`
	TotalWins   int    `json:"total_wins"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
		TotalGames:  p.TotalGames,
		TotalWins:   p.TotalWins,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// TrackStreak is a player's streak on one track
type TrackStreak struct {
	Track      string `json:"track"`
	Current    int    `json:"current"`
	Best       int    `json:"best"`
	LastPlayed string `json:"last_played,omitempty"`
}

// Streaks lists a player's streak on every track
type Streaks struct {
	Date       string        `json:"date"`
	Tracks     []TrackStreak `json:"tracks"`
	TotalGames int           `json:"total_games"`
	TotalWins  int           `json:"total_wins"`
}

// StreaksFromModel builds the streak view of p as seen on today
func StreaksFromModel(p *model.Player, today model.Date) Streaks {
	tracks := make([]TrackStreak, 0, len(model.AllTracks()))
	for _, t := range model.AllTracks() {
		tracks = append(tracks, TrackStreak{
			Track:      t.String(),
			Current:    p.CurrentStreak(t, today),
			Best:       p.BestStreak(t),
			LastPlayed: p.LastPlayed[t].String(),
		})
	}
	return Streaks{
		Date:       today.String(),
		Tracks:     tracks,
		TotalGames: p.TotalGames,
		TotalWins:  p.TotalWins,
	}
}

// Puzzle is the public view of a puzzle. It never names the answer.
type Puzzle struct {
	ID    string `json:"id"`
	Track string `json:"track"`
	Date  string `json:"date"`
}

// PuzzleFromModel converts a model.Puzzle
func PuzzleFromModel(p *model.Puzzle) Puzzle {
	return Puzzle{
		ID:    string(p.ID),
		Track: p.Track.String(),
		Date:  p.Date.String(),
	}
}

// Character is a revealed answer
type Character struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	ImageURL string   `json:"image_url"`
}

func characterFrom(c *model.Character, imageURL string) *Character {
	if c == nil {
		return nil
	}
	return &Character{
		ID:       string(c.ID),
		Name:     c.Name,
		Aliases:  c.Aliases,
		ImageURL: imageURL,
	}
}

// GuessResult is the response to a submitted guess
type GuessResult struct {
	PuzzleID          string     `json:"puzzle_id"`
	Correct           bool       `json:"correct"`
	FirstSolve        bool       `json:"first_solve"`
	AttemptNumber     int        `json:"attempt_number"`
	MaxAttempts       int        `json:"max_attempts"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	GameOver          bool       `json:"game_over"`
	Streak            int        `json:"streak"`
	Character         *Character `json:"character,omitempty"`
}

// GuessResultFromService converts a guess.Result
func GuessResultFromService(r *guess.Result) GuessResult {
	return GuessResult{
		PuzzleID:          string(r.PuzzleID),
		Correct:           r.Correct,
		FirstSolve:        r.FirstSolve,
		AttemptNumber:     r.AttemptNumber,
		MaxAttempts:       r.MaxAttempts,
		AttemptsRemaining: r.AttemptsRemaining,
		GameOver:          r.GameOver,
		Streak:            r.Streak,
		Character:         characterFrom(r.Character, r.ImageURL),
	}
}

// Status is a player's standing on one track today
type Status struct {
	Track             string     `json:"track"`
	PuzzleAvailable   bool       `json:"puzzle_available"`
	PuzzleID          string     `json:"puzzle_id,omitempty"`
	Date              string     `json:"date"`
	AttemptsUsed      int        `json:"attempts_used"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	MaxAttempts       int        `json:"max_attempts"`
	Solved            bool       `json:"solved"`
	CanGuess          bool       `json:"can_guess"`
	Character         *Character `json:"character,omitempty"`
}

// StatusFromService converts a guess.Status
func StatusFromService(s *guess.Status) Status {
	return Status{
		Track:             s.Track.String(),
		PuzzleAvailable:   s.PuzzleAvailable,
		PuzzleID:          string(s.PuzzleID),
		Date:              s.Date.String(),
		AttemptsUsed:      s.AttemptsUsed,
		AttemptsRemaining: s.AttemptsRemaining,
		MaxAttempts:       s.MaxAttempts,
		Solved:            s.Solved,
		CanGuess:          s.CanGuess,
		Character:         characterFrom(s.Character, s.ImageURL),
	}
}

// Progress is today's status on every track
type Progress struct {
	Tracks []Status `json:"tracks"`
}

// ProgressFromService converts DailyProgress output
func ProgressFromService(statuses []*guess.Status) Progress {
	tracks := make([]Status, len(statuses))
	for i, s := range statuses {
		tracks[i] = StatusFromService(s)
	}
	return Progress{Tracks: tracks}
}

// Guess is one entry of a guess history
type Guess struct {
	AttemptNumber int       `json:"attempt_number"`
	Text          string    `json:"text"`
	Correct       bool      `json:"correct"`
	CreatedAt     time.Time `json:"created_at"`
}

// History is a player's guesses on today's puzzle
type History struct {
	PuzzleID string  `json:"puzzle_id"`
	Guesses  []Guess `json:"guesses"`
}

// HistoryFromModel converts stored guesses
func HistoryFromModel(puzzleID model.PuzzleID, guesses []*model.Guess) History {
	out := make([]Guess, len(guesses))
	for i, g := range guesses {
		out[i] = Guess{
			AttemptNumber: g.AttemptNumber,
			Text:          g.Text,
			Correct:       g.Correct,
			CreatedAt:     g.CreatedAt,
		}
	}
	return History{PuzzleID: string(puzzleID), Guesses: out}
}
