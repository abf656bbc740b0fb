package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Puzzle:
		o.printPuzzle(v)
	case Status:
		o.printStatus(v)
	case History:
		o.printHistory(v)
	case GuessResult:
		o.printGuessResult(v)
	case Streaks:
		o.printStreaks(v)
	case Progress:
		o.printProgress(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	TotalGames  int    `json:"total_games"`
	TotalWins   int    `json:"total_wins"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Puzzle response type
type Puzzle struct {
	ID    string `json:"id"`
	Track string `json:"track"`
	Date  string `json:"date"`
}

// Character is a revealed answer
type Character struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	ImageURL string   `json:"image_url"`
}

// GuessResult response type
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

// Status response type
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

// Progress response type
type Progress struct {
	Tracks []Status `json:"tracks"`
}

// Guess is one entry of a guess history
type Guess struct {
	AttemptNumber int       `json:"attempt_number"`
	Text          string    `json:"text"`
	Correct       bool      `json:"correct"`
	CreatedAt     time.Time `json:"created_at"`
}

// History response type
type History struct {
	PuzzleID string  `json:"puzzle_id"`
	Guesses  []Guess `json:"guesses"`
}

// TrackStreak response type
type TrackStreak struct {
	Track      string `json:"track"`
	Current    int    `json:"current"`
	Best       int    `json:"best"`
	LastPlayed string `json:"last_played,omitempty"`
}

// Streaks response type
type Streaks struct {
	Date       string        `json:"date"`
	Tracks     []TrackStreak `json:"tracks"`
	TotalGames int           `json:"total_games"`
	TotalWins  int           `json:"total_wins"`
}

// HealthResult response type
type HealthResult struct {
	Status   string `json:"status"`
	Server   string `json:"server"`
	LoggedIn bool   `json:"logged_in"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Fprintf(o.w, "Guest: %s\n", guestStr)
	fmt.Fprintf(o.w, "Games: %d won of %d\n", p.TotalWins, p.TotalGames)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Fprintf(o.w, "Token: %s\n", a.SessionToken)
	if !a.ExpiresAt.IsZero() {
		fmt.Fprintf(o.w, "Expires: %s\n", a.ExpiresAt.Format(time.RFC3339))
	}
}

func (o *Output) printPuzzle(p Puzzle) {
	fmt.Fprintf(o.w, "Puzzle: %s\n", p.ID)
	fmt.Fprintf(o.w, "Track: %s\n", p.Track)
	fmt.Fprintf(o.w, "Date: %s\n", p.Date)
}

func (o *Output) printCharacter(c *Character) {
	if c == nil {
		return
	}
	fmt.Fprintf(o.w, "Character: %s\n", c.Name)
	if len(c.Aliases) > 0 {
		fmt.Fprintf(o.w, "Also known as: %s\n", strings.Join(c.Aliases, ", "))
	}
	if c.ImageURL != "" {
		fmt.Fprintf(o.w, "Image: %s\n", c.ImageURL)
	}
}

func (o *Output) printGuessResult(g GuessResult) {
	switch {
	case g.Correct:
		fmt.Fprintf(o.w, "Correct! Solved in %d of %d attempts\n", g.AttemptNumber, g.MaxAttempts)
		o.printCharacter(g.Character)
		fmt.Fprintf(o.w, "Streak: %d\n", g.Streak)
	case g.GameOver:
		fmt.Fprintln(o.w, "Incorrect. No attempts left, come back tomorrow")
		fmt.Fprintf(o.w, "Streak: %d\n", g.Streak)
	default:
		fmt.Fprintf(o.w, "Incorrect. %d of %d attempts remaining\n", g.AttemptsRemaining, g.MaxAttempts)
	}
}

func (o *Output) printStatus(s Status) {
	if !s.PuzzleAvailable {
		fmt.Fprintf(o.w, "%s: no puzzle for %s\n", s.Track, s.Date)
		return
	}

	state := "in progress"
	switch {
	case s.Solved:
		state = "solved"
	case !s.CanGuess:
		state = "out of attempts"
	case s.AttemptsUsed == 0:
		state = "not started"
	}
	fmt.Fprintf(o.w, "%s (%s): %s, %d/%d attempts used\n", s.Track, s.Date, state, s.AttemptsUsed, s.MaxAttempts)
	o.printCharacter(s.Character)
}

func (o *Output) printProgress(p Progress) {
	for _, s := range p.Tracks {
		o.printStatus(s)
	}
}

func (o *Output) printHistory(h History) {
	fmt.Fprintf(o.w, "Puzzle: %s\n", h.PuzzleID)
	if len(h.Guesses) == 0 {
		fmt.Fprintln(o.w, "No guesses yet")
		return
	}
	for _, g := range h.Guesses {
		mark := "x"
		if g.Correct {
			mark = "✓"
		}
		fmt.Fprintf(o.w, "  %d. %s %s\n", g.AttemptNumber, g.Text, mark)
	}
}

func (o *Output) printStreaks(s Streaks) {
	fmt.Fprintf(o.w, "Streaks as of %s\n", s.Date)
	for _, t := range s.Tracks {
		fmt.Fprintf(o.w, "  %-7s current %d, best %d\n", t.Track, t.Current, t.Best)
	}
	fmt.Fprintf(o.w, "Games: %d won of %d\n", s.TotalWins, s.TotalGames)
}

func (o *Output) printHealthResult(h HealthResult) {
	session := "none"
	if h.LoggedIn {
		session = "saved"
	}
	fmt.Fprintf(o.w, "Server: %s (%s)\n", h.Server, h.Status)
	fmt.Fprintf(o.w, "Session: %s\n", session)
}
