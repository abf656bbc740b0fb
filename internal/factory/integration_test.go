package factory

import (
	"context"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/services/selector"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
	s.Require().NoError(s.app.LoadTestCharacters(s.ctx))
}

// answer looks up today's answer the way only internal callers can
func (s *IntegrationSuite) answer(track model.Track) *model.Character {
	p, err := s.app.PuzzleService.Today(s.ctx, track)
	s.Require().NoError(err)
	c, err := s.app.PuzzleService.Reveal(s.ctx, p)
	s.Require().NoError(err)
	return c
}

// wrongName returns a pool member other than the answer
func (s *IntegrationSuite) wrongName(track model.Track) string {
	answer := s.answer(track)
	pool, err := s.app.CharacterService.Pool(s.ctx, track)
	s.Require().NoError(err)
	for _, c := range pool {
		if c.ID != answer.ID {
			return c.Name
		}
	}
	s.FailNow("pool has a single character")
	return ""
}

// Test: guest plays two consecutive days and builds a streak
func (s *IntegrationSuite) TestDailyFlowBuildsStreak() {
	s.app.MockIDs.Queue("player-1")

	session, err := s.app.AuthService.CreateGuestPlayer(s.ctx, "Reader")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), session.PlayerID)

	// Day 1
	s.Require().NoError(s.app.SelectToday(s.ctx))

	result, err := s.app.GuessService.CheckGuess(s.ctx, session.PlayerID, model.TrackMarvel, s.wrongName(model.TrackMarvel))
	s.Require().NoError(err)
	s.False(result.Correct)
	s.Nil(result.Character)

	result, err = s.app.GuessService.CheckGuess(s.ctx, session.PlayerID, model.TrackMarvel, s.answer(model.TrackMarvel).Name)
	s.Require().NoError(err)
	s.True(result.FirstSolve)
	s.Equal(2, result.AttemptNumber)
	s.Equal(1, result.Streak)

	// Day 2
	s.app.MockClock.AdvanceDays(1)
	_, err = s.app.GuessService.CheckGuess(s.ctx, session.PlayerID, model.TrackMarvel, "anything")
	s.ErrorIs(err, model.ErrPuzzleNotFound)

	s.Require().NoError(s.app.SelectToday(s.ctx))
	result, err = s.app.GuessService.CheckGuess(s.ctx, session.PlayerID, model.TrackMarvel, s.answer(model.TrackMarvel).Name)
	s.Require().NoError(err)
	s.Equal(2, result.Streak)

	player, err := s.app.AuthService.GetPlayer(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Equal(2, player.BestStreak(model.TrackMarvel))
	s.Equal(2, player.TotalWins)

	s.Equal(2.0, promtestutil.ToFloat64(s.app.Metrics.Solves.WithLabelValues("marvel")))
}

// Test: selection is the same whichever app instance runs it
func (s *IntegrationSuite) TestSelectionIsDeterministicAcrossInstances() {
	other := NewTestApp()
	s.Require().NoError(other.LoadTestCharacters(s.ctx))

	s.Require().NoError(s.app.SelectToday(s.ctx))
	s.Require().NoError(other.SelectToday(s.ctx))

	for _, track := range model.AllTracks() {
		mine, err := s.app.PuzzleService.Today(s.ctx, track)
		s.Require().NoError(err)
		theirs, err := other.PuzzleService.Today(s.ctx, track)
		s.Require().NoError(err)
		s.Equal(mine.CharacterID, theirs.CharacterID, "track %s", track)
	}
}

// Test: the scheduler's one-shot pass fills every track
func (s *IntegrationSuite) TestSchedulerRunOnce() {
	report := s.app.Scheduler.RunOnce(s.ctx, s.app.SelectorService.Today())
	s.Require().NoError(report.Err())

	progress, err := s.app.GuessService.DailyProgress(s.ctx, "nobody")
	s.Require().NoError(err)
	for _, st := range progress {
		s.True(st.PuzzleAvailable, "track %s", st.Track)
	}
}

// Test: a track with no pool fails alone
func (s *IntegrationSuite) TestEmptyPoolDoesNotBlockOtherTracks() {
	s.Require().NoError(s.app.Storage.SaveCharacters(s.ctx, model.TrackImage, nil))

	report := s.app.SelectorService.SelectAll(s.ctx, s.app.SelectorService.Today())
	s.ErrorIs(report.Err(), model.ErrEmptyPool)
	s.Equal([]model.Track{model.TrackImage}, report.Failed())

	_, err := s.app.PuzzleService.Today(s.ctx, model.TrackDC)
	s.NoError(err)
}

// Test: deleting an account removes its progress
func (s *IntegrationSuite) TestDeleteAccountRemovesProgress() {
	s.Require().NoError(s.app.SelectToday(s.ctx))
	session, err := s.app.AuthService.CreateGuestPlayer(s.ctx, "Temp")
	s.Require().NoError(err)

	_, err = s.app.GuessService.CheckGuess(s.ctx, session.PlayerID, model.TrackDC, s.wrongName(model.TrackDC))
	s.Require().NoError(err)

	s.Require().NoError(s.app.AuthService.DeleteAccount(s.ctx, session.PlayerID))

	history, err := s.app.GuessService.History(s.ctx, session.PlayerID, model.TrackDC)
	s.Require().NoError(err)
	s.Empty(history)
}

func TestWithSelectorDefaults(t *testing.T) {
	cfg := withSelectorDefaults(selector.Config{MaxRetries: 9})
	def := selector.DefaultConfig()

	assert.Equal(t, uint64(9), cfg.MaxRetries)
	assert.Equal(t, def.InitialInterval, cfg.InitialInterval)
	assert.Equal(t, def.MaxInterval, cfg.MaxInterval)
	assert.Equal(t, def.Location, cfg.Location)
}
