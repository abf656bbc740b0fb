package postgres

import (
	"time"

	"github.com/mcoot/comicguess/internal/model"
)

type playerRow struct {
	ID          string `gorm:"primaryKey"`
	DisplayName string
	IsGuest     bool
	Streaks     map[model.Track]int        `gorm:"serializer:json"`
	BestStreaks map[model.Track]int        `gorm:"serializer:json"`
	LastPlayed  map[model.Track]model.Date `gorm:"serializer:json"`
	TotalGames  int
	TotalWins   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (playerRow) TableName() string { return "players" }

type registeredPlayerRow struct {
	PlayerID     string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex"` // stored lower-cased
	DisplayUser  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (registeredPlayerRow) TableName() string { return "registered_players" }

type characterRow struct {
	ID       string `gorm:"primaryKey"`
	Track    string `gorm:"index"`
	Name     string
	Aliases  []string `gorm:"serializer:json"`
	ImageKey string
}

func (characterRow) TableName() string { return "characters" }

type puzzleRow struct {
	ID          string `gorm:"primaryKey"`
	Date        string `gorm:"uniqueIndex:idx_puzzle_date_track"`
	Track       string `gorm:"uniqueIndex:idx_puzzle_date_track"`
	CharacterID string
	CreatedAt   time.Time
}

func (puzzleRow) TableName() string { return "puzzles" }

type guessRow struct {
	ID            string `gorm:"primaryKey"`
	PlayerID      string `gorm:"index:idx_guess_player_puzzle"`
	PuzzleID      string `gorm:"index:idx_guess_player_puzzle"`
	Text          string
	Correct       bool
	AttemptNumber int
	CreatedAt     time.Time
}

func (guessRow) TableName() string { return "guesses" }

type progressRow struct {
	PlayerID     string `gorm:"primaryKey"`
	PuzzleID     string `gorm:"primaryKey"`
	AttemptsUsed int
	Solved       bool
	Finished     bool
	UpdatedAt    time.Time
}

func (progressRow) TableName() string { return "progress" }

func allRows() []any {
	return []any{
		&playerRow{},
		&registeredPlayerRow{},
		&characterRow{},
		&puzzleRow{},
		&guessRow{},
		&progressRow{},
	}
}

func playerToRow(p *model.Player) *playerRow {
	return &playerRow{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
		Streaks:     p.Streaks,
		BestStreaks: p.BestStreaks,
		LastPlayed:  p.LastPlayed,
		TotalGames:  p.TotalGames,
		TotalWins:   p.TotalWins,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r *playerRow) toModel() *model.Player {
	p := &model.Player{
		ID:          model.PlayerID(r.ID),
		DisplayName: r.DisplayName,
		IsGuest:     r.IsGuest,
		Streaks:     r.Streaks,
		BestStreaks: r.BestStreaks,
		LastPlayed:  r.LastPlayed,
		TotalGames:  r.TotalGames,
		TotalWins:   r.TotalWins,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	// Clone fills in any nil streak maps
	return p.Clone()
}

func (r *registeredPlayerRow) toModel() *model.RegisteredPlayer {
	return &model.RegisteredPlayer{
		PlayerID:     model.PlayerID(r.PlayerID),
		Username:     r.DisplayUser,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r *characterRow) toModel() *model.Character {
	return &model.Character{
		ID:       model.CharacterID(r.ID),
		Name:     r.Name,
		Track:    model.Track(r.Track),
		Aliases:  r.Aliases,
		ImageKey: r.ImageKey,
	}
}

func (r *puzzleRow) toModel() *model.Puzzle {
	return &model.Puzzle{
		ID:          model.PuzzleID(r.ID),
		Track:       model.Track(r.Track),
		Date:        model.Date(r.Date),
		CharacterID: model.CharacterID(r.CharacterID),
		CreatedAt:   r.CreatedAt,
	}
}

func (r *guessRow) toModel() *model.Guess {
	return &model.Guess{
		ID:            model.GuessID(r.ID),
		PlayerID:      model.PlayerID(r.PlayerID),
		PuzzleID:      model.PuzzleID(r.PuzzleID),
		Text:          r.Text,
		Correct:       r.Correct,
		AttemptNumber: r.AttemptNumber,
		CreatedAt:     r.CreatedAt,
	}
}

func (r *progressRow) toModel() *model.Progress {
	return &model.Progress{
		PlayerID:     model.PlayerID(r.PlayerID),
		PuzzleID:     model.PuzzleID(r.PuzzleID),
		AttemptsUsed: r.AttemptsUsed,
		Solved:       r.Solved,
		Finished:     r.Finished,
		UpdatedAt:    r.UpdatedAt,
	}
}
