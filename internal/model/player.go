package model

import (
	"maps"
	"time"
)

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a participant with per-track streak state
type Player struct {
	ID          PlayerID
	DisplayName string
	IsGuest     bool // true for unregistered players

	Streaks     map[Track]int  // current consecutive-day streak
	BestStreaks map[Track]int  // longest streak ever reached
	LastPlayed  map[Track]Date // last date a puzzle was finished
	TotalGames  int
	TotalWins   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisteredPlayer extends Player with authentication data
// Stored separately for security (password never in memory with session)
type RegisteredPlayer struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPlayer creates a player with empty streak state
func NewPlayer(id PlayerID, displayName string, isGuest bool, now time.Time) *Player {
	return &Player{
		ID:          id,
		DisplayName: displayName,
		IsGuest:     isGuest,
		Streaks:     make(map[Track]int),
		BestStreaks: make(map[Track]int),
		LastPlayed:  make(map[Track]Date),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of the player
func (p *Player) Clone() *Player {
	c := *p
	c.Streaks = maps.Clone(p.Streaks)
	c.BestStreaks = maps.Clone(p.BestStreaks)
	c.LastPlayed = maps.Clone(p.LastPlayed)
	c.ensureMaps()
	return &c
}

// RecordWin applies the first correct guess of the day on a track.
// A win the day after the last finished puzzle extends the streak; anything else restarts it at 1.
func (p *Player) RecordWin(track Track, date Date) {
	p.ensureMaps()

	if p.LastPlayed[track] == date.AddDays(-1) {
		p.Streaks[track]++
	} else {
		p.Streaks[track] = 1
	}
	if p.Streaks[track] > p.BestStreaks[track] {
		p.BestStreaks[track] = p.Streaks[track]
	}
	p.LastPlayed[track] = date
	p.TotalGames++
	p.TotalWins++
}

// RecordLoss applies running out of attempts on a track
func (p *Player) RecordLoss(track Track, date Date) {
	p.ensureMaps()

	p.Streaks[track] = 0
	p.LastPlayed[track] = date
	p.TotalGames++
}

// CurrentStreak returns the streak as seen on today. A streak whose last
// puzzle is older than yesterday has lapsed and reads as zero.
func (p *Player) CurrentStreak(track Track, today Date) int {
	last, ok := p.LastPlayed[track]
	if !ok {
		return 0
	}
	if last != today && last != today.AddDays(-1) {
		return 0
	}
	return p.Streaks[track]
}

// BestStreak returns the longest streak reached on a track
func (p *Player) BestStreak(track Track) int {
	return p.BestStreaks[track]
}

func (p *Player) ensureMaps() {
	if p.Streaks == nil {
		p.Streaks = make(map[Track]int)
	}
	if p.BestStreaks == nil {
		p.BestStreaks = make(map[Track]int)
	}
	if p.LastPlayed == nil {
		p.LastPlayed = make(map[Track]Date)
	}
}
