// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/storage"
)

// Suite runs the storage contract against a backend. Embed it in a
// backend-specific suite and set NewStorage before each test.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
}

var testTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
}

func (s *Suite) savePlayer(id model.PlayerID) *model.Player {
	p := model.NewPlayer(id, "Player "+string(id), true, testTime)
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))
	return p
}

func (s *Suite) savePuzzle(date model.Date, track model.Track, characterID model.CharacterID) *model.Puzzle {
	p := &model.Puzzle{
		ID:          model.NewPuzzleID(date, track),
		Track:       track,
		Date:        date,
		CharacterID: characterID,
		CreatedAt:   testTime,
	}
	s.Require().NoError(s.Storage.SavePuzzle(s.Ctx, p))
	return p
}

func newGuess(id string, playerID model.PlayerID, puzzleID model.PuzzleID, text string, correct bool) *model.Guess {
	return &model.Guess{
		ID:        model.GuessID(id),
		PlayerID:  playerID,
		PuzzleID:  puzzleID,
		Text:      text,
		Correct:   correct,
		CreatedAt: testTime,
	}
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	p := model.NewPlayer("player-1", "Alice", false, testTime)
	p.RecordWin(model.TrackMarvel, "2024-01-01")
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))

	got, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", got.DisplayName)
	s.False(got.IsGuest)
	s.Equal(1, got.Streaks[model.TrackMarvel])
	s.Equal(model.Date("2024-01-01"), got.LastPlayed[model.TrackMarvel])
	s.Equal(1, got.TotalWins)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestConcurrentOutcomesOnOnePlayerAreNotLost() {
	s.savePlayer("player-1")

	const workers = 10
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			date := model.Date(fmt.Sprintf("2024-01-%02d", i+1))
			puzzleID := model.NewPuzzleID(date, model.TrackMarvel)
			g := newGuess(fmt.Sprintf("g%d", i), "player-1", puzzleID, "hulk", false)
			_, _, err := s.Storage.RecordGuess(s.Ctx, g, 6, func(p *model.Player, progress *model.Progress) error {
				p.TotalGames++
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(workers, got.TotalGames)
}

func (s *Suite) TestDeletePlayerRemovesEverything() {
	s.savePlayer("player-1")
	s.Require().NoError(s.Storage.SaveRegisteredPlayer(s.Ctx, &model.RegisteredPlayer{
		PlayerID: "player-1", Username: "alice", PasswordHash: "hash",
	}))
	puzzle := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")
	_, _, err := s.Storage.RecordGuess(s.Ctx, newGuess("g1", "player-1", puzzle.ID, "hulk", false), 6, nil)
	s.Require().NoError(err)

	s.Require().NoError(s.Storage.DeletePlayer(s.Ctx, "player-1"))

	_, err = s.Storage.GetPlayer(s.Ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.Storage.GetRegisteredPlayerByUsername(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	guesses, err := s.Storage.GetGuesses(s.Ctx, "player-1", puzzle.ID)
	s.Require().NoError(err)
	s.Empty(guesses)

	progress, err := s.Storage.GetProgress(s.Ctx, "player-1", puzzle.ID)
	s.Require().NoError(err)
	s.Equal(0, progress.AttemptsUsed)
}

// Registered player tests

func (s *Suite) TestRegisteredPlayerLookup() {
	rp := &model.RegisteredPlayer{
		PlayerID:     "player-1",
		Username:     "Alice",
		PasswordHash: "hash",
		CreatedAt:    testTime,
	}
	s.Require().NoError(s.Storage.SaveRegisteredPlayer(s.Ctx, rp))

	got, err := s.Storage.GetRegisteredPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", got.Username)

	got, err = s.Storage.GetRegisteredPlayerByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), got.PlayerID)
}

func (s *Suite) TestRegisteredPlayerNotFound() {
	_, err := s.Storage.GetRegisteredPlayer(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.Storage.GetRegisteredPlayerByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Character tests

func (s *Suite) TestSaveCharactersReplacesPool() {
	first := []*model.Character{
		{ID: "marvel-thor", Name: "Thor", ImageKey: "marvel/thor.jpg"},
		{ID: "marvel-hulk", Name: "Hulk", Aliases: []string{"Bruce Banner"}, ImageKey: "marvel/hulk.jpg"},
	}
	s.Require().NoError(s.Storage.SaveCharacters(s.Ctx, model.TrackMarvel, first))

	second := []*model.Character{
		{ID: "marvel-iron-man", Name: "Iron Man", ImageKey: "marvel/iron-man.jpg"},
	}
	s.Require().NoError(s.Storage.SaveCharacters(s.Ctx, model.TrackMarvel, second))

	pool, err := s.Storage.GetCharacters(s.Ctx, model.TrackMarvel)
	s.Require().NoError(err)
	s.Require().Len(pool, 1)
	s.Equal(model.CharacterID("marvel-iron-man"), pool[0].ID)
	s.Equal(model.TrackMarvel, pool[0].Track)

	_, err = s.Storage.GetCharacter(s.Ctx, "marvel-thor")
	s.ErrorIs(err, model.ErrCharacterNotFound)
}

func (s *Suite) TestSaveCharactersRefusesIDFromAnotherTrack() {
	s.Require().NoError(s.Storage.SaveCharacters(s.Ctx, model.TrackMarvel, []*model.Character{
		{ID: "hero", Name: "Spider-Man", ImageKey: "marvel/spider-man.jpg"},
	}))

	err := s.Storage.SaveCharacters(s.Ctx, model.TrackDC, []*model.Character{
		{ID: "dc-batman", Name: "Batman", ImageKey: "dc/batman.jpg"},
		{ID: "hero", Name: "Superman", ImageKey: "dc/superman.jpg"},
	})
	s.ErrorIs(err, model.ErrCharacterIDTaken)

	c, err := s.Storage.GetCharacter(s.Ctx, "hero")
	s.Require().NoError(err)
	s.Equal("Spider-Man", c.Name)
	s.Equal(model.TrackMarvel, c.Track)

	dc, err := s.Storage.GetCharacters(s.Ctx, model.TrackDC)
	s.Require().NoError(err)
	s.Empty(dc)

	// The owning track can still reload it
	s.Require().NoError(s.Storage.SaveCharacters(s.Ctx, model.TrackMarvel, []*model.Character{
		{ID: "hero", Name: "Spider-Man", Aliases: []string{"Peter Parker"}, ImageKey: "marvel/spider-man.jpg"},
	}))
}

func (s *Suite) TestGetCharacter() {
	s.Require().NoError(s.Storage.SaveCharacters(s.Ctx, model.TrackDC, []*model.Character{
		{ID: "dc-batman", Name: "Batman", Aliases: []string{"Bruce Wayne", "Dark Knight"}, ImageKey: "dc/batman.jpg"},
	}))

	c, err := s.Storage.GetCharacter(s.Ctx, "dc-batman")
	s.Require().NoError(err)
	s.Equal("Batman", c.Name)
	s.Equal(model.TrackDC, c.Track)
	s.Equal([]string{"Bruce Wayne", "Dark Knight"}, c.Aliases)
	s.Equal("dc/batman.jpg", c.ImageKey)
}

func (s *Suite) TestEmptyPool() {
	pool, err := s.Storage.GetCharacters(s.Ctx, model.TrackImage)
	s.Require().NoError(err)
	s.Empty(pool)
}

func (s *Suite) TestPoolsAreSeparatePerTrack() {
	s.Require().NoError(s.Storage.SaveCharacters(s.Ctx, model.TrackMarvel, []*model.Character{
		{ID: "marvel-thor", Name: "Thor", ImageKey: "marvel/thor.jpg"},
	}))
	s.Require().NoError(s.Storage.SaveCharacters(s.Ctx, model.TrackDC, []*model.Character{
		{ID: "dc-batman", Name: "Batman", ImageKey: "dc/batman.jpg"},
	}))

	marvel, err := s.Storage.GetCharacters(s.Ctx, model.TrackMarvel)
	s.Require().NoError(err)
	s.Len(marvel, 1)

	dc, err := s.Storage.GetCharacters(s.Ctx, model.TrackDC)
	s.Require().NoError(err)
	s.Len(dc, 1)
}

// Puzzle tests

func (s *Suite) TestSaveAndGetPuzzle() {
	s.savePuzzle("2024-01-15", model.TrackMarvel, "marvel-thor")

	p, err := s.Storage.GetPuzzle(s.Ctx, "2024-01-15", model.TrackMarvel)
	s.Require().NoError(err)
	s.Equal(model.PuzzleID("20240115-marvel"), p.ID)
	s.Equal(model.CharacterID("marvel-thor"), p.CharacterID)
	s.Equal(model.Date("2024-01-15"), p.Date)
}

func (s *Suite) TestGetPuzzleNotFound() {
	_, err := s.Storage.GetPuzzle(s.Ctx, "2024-01-15", model.TrackDC)
	s.ErrorIs(err, model.ErrPuzzleNotFound)
}

func (s *Suite) TestSavePuzzleIsUpsert() {
	s.savePuzzle("2024-01-15", model.TrackMarvel, "marvel-thor")
	s.savePuzzle("2024-01-15", model.TrackMarvel, "marvel-hulk")

	p, err := s.Storage.GetPuzzle(s.Ctx, "2024-01-15", model.TrackMarvel)
	s.Require().NoError(err)
	s.Equal(model.CharacterID("marvel-hulk"), p.CharacterID)
}

// Guess tests

func (s *Suite) TestRecordGuessAssignsAttempts() {
	s.savePlayer("player-1")
	puzzle := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")

	g1 := newGuess("g1", "player-1", puzzle.ID, "hulk", false)
	progress, _, err := s.Storage.RecordGuess(s.Ctx, g1, 6, nil)
	s.Require().NoError(err)
	s.Equal(1, g1.AttemptNumber)
	s.Equal(1, progress.AttemptsUsed)
	s.False(progress.Solved)

	g2 := newGuess("g2", "player-1", puzzle.ID, "thor", true)
	progress, _, err = s.Storage.RecordGuess(s.Ctx, g2, 6, nil)
	s.Require().NoError(err)
	s.Equal(2, g2.AttemptNumber)
	s.True(progress.Solved)
	s.True(progress.Finished)

	guesses, err := s.Storage.GetGuesses(s.Ctx, "player-1", puzzle.ID)
	s.Require().NoError(err)
	s.Require().Len(guesses, 2)
	s.Equal("hulk", guesses[0].Text)
	s.Equal("thor", guesses[1].Text)
	s.True(guesses[1].Correct)
}

func (s *Suite) TestRecordGuessRejectsAfterSolve() {
	s.savePlayer("player-1")
	puzzle := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")

	_, _, err := s.Storage.RecordGuess(s.Ctx, newGuess("g1", "player-1", puzzle.ID, "thor", true), 6, nil)
	s.Require().NoError(err)

	_, _, err = s.Storage.RecordGuess(s.Ctx, newGuess("g2", "player-1", puzzle.ID, "thor", true), 6, nil)
	s.ErrorIs(err, model.ErrAlreadySolved)

	guesses, err := s.Storage.GetGuesses(s.Ctx, "player-1", puzzle.ID)
	s.Require().NoError(err)
	s.Len(guesses, 1)
}

func (s *Suite) TestRecordGuessRejectsWhenExhausted() {
	s.savePlayer("player-1")
	puzzle := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")

	for i := range 3 {
		_, _, err := s.Storage.RecordGuess(s.Ctx, newGuess("g"+string(rune('a'+i)), "player-1", puzzle.ID, "hulk", false), 3, nil)
		s.Require().NoError(err)
	}

	_, _, err := s.Storage.RecordGuess(s.Ctx, newGuess("g-last", "player-1", puzzle.ID, "thor", true), 3, nil)
	s.ErrorIs(err, model.ErrAttemptsExhausted)

	progress, err := s.Storage.GetProgress(s.Ctx, "player-1", puzzle.ID)
	s.Require().NoError(err)
	s.Equal(3, progress.AttemptsUsed)
	s.True(progress.Finished)
	s.False(progress.Solved)
}

func creditWin(track model.Track, date model.Date) storage.GuessOutcomeFunc {
	return func(p *model.Player, progress *model.Progress) error {
		if progress.Solved {
			p.RecordWin(track, date)
		}
		return nil
	}
}

func (s *Suite) TestRecordGuessAppliesOutcomeToPlayer() {
	s.savePlayer("player-1")
	puzzle := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")

	var seen model.Progress
	progress, player, err := s.Storage.RecordGuess(s.Ctx, newGuess("g1", "player-1", puzzle.ID, "thor", true), 6,
		func(p *model.Player, progress *model.Progress) error {
			seen = *progress
			p.RecordWin(model.TrackMarvel, "2024-01-01")
			return nil
		})
	s.Require().NoError(err)

	s.True(seen.Solved)
	s.Equal(1, seen.AttemptsUsed)
	s.True(progress.Solved)
	s.Equal(1, player.Streaks[model.TrackMarvel])

	stored, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(1, stored.Streaks[model.TrackMarvel])
	s.Equal(model.Date("2024-01-01"), stored.LastPlayed[model.TrackMarvel])
}

func (s *Suite) TestRecordGuessOutcomeErrorWritesNothing() {
	s.savePlayer("player-1")
	puzzle := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")
	errTransient := errors.New("transient")

	_, _, err := s.Storage.RecordGuess(s.Ctx, newGuess("g1", "player-1", puzzle.ID, "thor", true), 6,
		func(p *model.Player, progress *model.Progress) error {
			p.RecordWin(model.TrackMarvel, "2024-01-01")
			return errTransient
		})
	s.ErrorIs(err, errTransient)

	progress, err := s.Storage.GetProgress(s.Ctx, "player-1", puzzle.ID)
	s.Require().NoError(err)
	s.Equal(0, progress.AttemptsUsed)
	s.False(progress.Solved)

	guesses, err := s.Storage.GetGuesses(s.Ctx, "player-1", puzzle.ID)
	s.Require().NoError(err)
	s.Empty(guesses)

	player, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(0, player.Streaks[model.TrackMarvel])

	// The same answer is accepted and credited on retry
	_, player, err = s.Storage.RecordGuess(s.Ctx, newGuess("g2", "player-1", puzzle.ID, "thor", true), 6,
		creditWin(model.TrackMarvel, "2024-01-01"))
	s.Require().NoError(err)
	s.Equal(1, player.Streaks[model.TrackMarvel])
}

func (s *Suite) TestRecordGuessUnknownPlayerWritesNothing() {
	puzzle := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")

	_, _, err := s.Storage.RecordGuess(s.Ctx, newGuess("g1", "ghost", puzzle.ID, "thor", true), 6, nil)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	guesses, err := s.Storage.GetGuesses(s.Ctx, "ghost", puzzle.ID)
	s.Require().NoError(err)
	s.Empty(guesses)
}

func (s *Suite) TestProgressIsPerPlayerAndPuzzle() {
	s.savePlayer("player-1")
	s.savePlayer("player-2")
	marvel := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")
	dc := s.savePuzzle("2024-01-01", model.TrackDC, "dc-batman")

	_, _, err := s.Storage.RecordGuess(s.Ctx, newGuess("g1", "player-1", marvel.ID, "thor", true), 6, nil)
	s.Require().NoError(err)

	progress, err := s.Storage.GetProgress(s.Ctx, "player-2", marvel.ID)
	s.Require().NoError(err)
	s.Equal(0, progress.AttemptsUsed)

	progress, err = s.Storage.GetProgress(s.Ctx, "player-1", dc.ID)
	s.Require().NoError(err)
	s.False(progress.Solved)
}

func (s *Suite) TestConcurrentCorrectGuessesSolveOnce() {
	s.savePlayer("player-1")
	puzzle := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := newGuess("g"+string(rune('a'+i)), "player-1", puzzle.ID, "thor", true)
			_, _, err := s.Storage.RecordGuess(s.Ctx, g, 6, creditWin(model.TrackMarvel, "2024-01-01"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, model.ErrAlreadySolved):
				rejected++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(1, accepted)
	s.Equal(workers-1, rejected)

	guesses, err := s.Storage.GetGuesses(s.Ctx, "player-1", puzzle.ID)
	s.Require().NoError(err)
	s.Len(guesses, 1)

	player, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(1, player.Streaks[model.TrackMarvel])
	s.Equal(1, player.TotalWins)
}

func (s *Suite) TestConcurrentGuessesNeverExceedLimit() {
	s.savePlayer("player-1")
	puzzle := s.savePuzzle("2024-01-01", model.TrackMarvel, "marvel-thor")

	const workers = 10
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := newGuess("g"+string(rune('a'+i)), "player-1", puzzle.ID, "hulk", false)
			_, _, _ = s.Storage.RecordGuess(s.Ctx, g, 6, nil)
		}()
	}
	wg.Wait()

	guesses, err := s.Storage.GetGuesses(s.Ctx, "player-1", puzzle.ID)
	s.Require().NoError(err)
	s.Len(guesses, 6)

	seen := make(map[int]bool)
	for _, g := range guesses {
		s.False(seen[g.AttemptNumber], "duplicate attempt number %d", g.AttemptNumber)
		seen[g.AttemptNumber] = true
	}
}
