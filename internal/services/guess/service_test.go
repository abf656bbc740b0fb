package guess

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/comicguess/internal/dependencies/mocks"
	"github.com/mcoot/comicguess/internal/metrics"
	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/services/puzzle"
	"github.com/mcoot/comicguess/internal/storage"
	"github.com/mcoot/comicguess/internal/storage/memory"
	cgtestutil "github.com/mcoot/comicguess/internal/testutil"
)

const playerID = model.PlayerID("player-1")

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	ids     *mocks.MockIDs
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	s.ids = mocks.NewMockIDs()
	s.metrics = metrics.New()

	cfg := DefaultConfig()
	cfg.ImageBaseURL = "https://img.example.com/"
	puzzles := puzzle.New(s.storage, s.clock, time.UTC)
	s.service = New(s.storage, s.clock, s.ids, puzzles, cfg, cgtestutil.NopLogger(), s.metrics)

	for track, pool := range cgtestutil.Pools() {
		s.Require().NoError(s.storage.SaveCharacters(s.ctx, track, pool))
	}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, model.NewPlayer(playerID, "Reader", true, s.clock.Now())))
	s.setPuzzle("2024-01-15", model.TrackMarvel, "marvel-spider-man")
}

func (s *ServiceSuite) setPuzzle(date model.Date, track model.Track, id model.CharacterID) {
	s.Require().NoError(s.storage.SavePuzzle(s.ctx, &model.Puzzle{
		ID:          model.NewPuzzleID(date, track),
		Track:       track,
		Date:        date,
		CharacterID: id,
		CreatedAt:   s.clock.Now(),
	}))
}

func (s *ServiceSuite) player() *model.Player {
	p, err := s.storage.GetPlayer(s.ctx, playerID)
	s.Require().NoError(err)
	return p
}

// CheckGuess tests

func (s *ServiceSuite) TestCorrectGuess() {
	s.ids.Queue("guess-1")

	result, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.Require().NoError(err)

	s.True(result.Correct)
	s.True(result.FirstSolve)
	s.True(result.GameOver)
	s.Equal(1, result.AttemptNumber)
	s.Equal(6, result.MaxAttempts)
	s.Equal(0, result.AttemptsRemaining)
	s.Equal(1, result.Streak)
	s.Require().NotNil(result.Character)
	s.Equal("Spider-Man", result.Character.Name)
	s.Equal("https://img.example.com/marvel/spider-man.jpg", result.ImageURL)

	guesses, err := s.storage.GetGuesses(s.ctx, playerID, "20240115-marvel")
	s.Require().NoError(err)
	s.Require().Len(guesses, 1)
	s.Equal(model.GuessID("guess-1"), guesses[0].ID)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Solves.WithLabelValues("marvel")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Guesses.WithLabelValues("marvel", metrics.ResultCorrect)))
}

func (s *ServiceSuite) TestMatchingIsForgiving() {
	for _, text := range []string{"spider man", "SPIDERMAN", "  Spider-Man!  ", "peter parker", "Spidey"} {
		s.True(s.checkFresh(text).Correct, "guess %q", text)
	}
}

// checkFresh evaluates text as a new player's first guess
func (s *ServiceSuite) checkFresh(text string) *Result {
	id := model.PlayerID(s.ids.NewID())
	s.Require().NoError(s.storage.SavePlayer(s.ctx, model.NewPlayer(id, "Fresh", true, s.clock.Now())))

	result, err := s.service.CheckGuess(s.ctx, id, model.TrackMarvel, text)
	s.Require().NoError(err)
	return result
}

func (s *ServiceSuite) TestIncorrectGuessRevealsNothing() {
	result, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Iron Man")
	s.Require().NoError(err)

	s.False(result.Correct)
	s.False(result.FirstSolve)
	s.False(result.GameOver)
	s.Nil(result.Character)
	s.Empty(result.ImageURL)
	s.Equal(1, result.AttemptNumber)
	s.Equal(5, result.AttemptsRemaining)
	s.Equal(0, result.Streak)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Guesses.WithLabelValues("marvel", metrics.ResultIncorrect)))
}

func (s *ServiceSuite) TestGuessAfterSolveIsRejected() {
	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.Require().NoError(err)

	_, err = s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.ErrorIs(err, model.ErrAlreadySolved)

	p := s.player()
	s.Equal(1, p.Streaks[model.TrackMarvel])
	s.Equal(1, p.TotalWins)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Guesses.WithLabelValues("marvel", metrics.ResultRejected)))
}

func (s *ServiceSuite) TestRunningOutOfAttempts() {
	var last *Result
	for i := 1; i <= 6; i++ {
		result, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Thor")
		s.Require().NoError(err)
		s.Equal(i, result.AttemptNumber)
		last = result
	}
	s.True(last.GameOver)
	s.Equal(0, last.AttemptsRemaining)
	s.Nil(last.Character)

	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.ErrorIs(err, model.ErrAttemptsExhausted)

	p := s.player()
	s.Equal(0, p.Streaks[model.TrackMarvel])
	s.Equal(1, p.TotalGames)
	s.Equal(0, p.TotalWins)
	s.Equal(model.Date("2024-01-15"), p.LastPlayed[model.TrackMarvel])
}

func (s *ServiceSuite) TestLossResetsStreak() {
	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.Require().NoError(err)

	s.clock.AdvanceDays(1)
	s.setPuzzle("2024-01-16", model.TrackMarvel, "marvel-thor")
	for range 6 {
		_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Hulk")
		s.Require().NoError(err)
	}

	p := s.player()
	s.Equal(0, p.CurrentStreak(model.TrackMarvel, "2024-01-16"))
	s.Equal(1, p.BestStreak(model.TrackMarvel))
}

func (s *ServiceSuite) TestStreakGrowsOnConsecutiveDays() {
	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.Require().NoError(err)

	s.clock.AdvanceDays(1)
	s.setPuzzle("2024-01-16", model.TrackMarvel, "marvel-thor")
	result, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "thor")
	s.Require().NoError(err)
	s.Equal(2, result.Streak)

	// Skip a day
	s.clock.AdvanceDays(2)
	s.setPuzzle("2024-01-18", model.TrackMarvel, "marvel-iron-man")
	result, err = s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "tony stark")
	s.Require().NoError(err)
	s.Equal(1, result.Streak)
	s.Equal(2, s.player().BestStreak(model.TrackMarvel))
}

func (s *ServiceSuite) TestStreaksArePerTrack() {
	s.setPuzzle("2024-01-15", model.TrackDC, "dc-batman")

	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.Require().NoError(err)

	p := s.player()
	s.Equal(1, p.CurrentStreak(model.TrackMarvel, "2024-01-15"))
	s.Equal(0, p.CurrentStreak(model.TrackDC, "2024-01-15"))
}

func (s *ServiceSuite) TestEmptyGuess() {
	for _, text := range []string{"", "   ", "<b></b>", "<script>alert(1)</script>"} {
		_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, text)
		s.ErrorIs(err, model.ErrGuessEmpty, "guess %q", text)
	}

	progress, err := s.storage.GetProgress(s.ctx, playerID, "20240115-marvel")
	s.Require().NoError(err)
	s.Equal(0, progress.AttemptsUsed)
}

func (s *ServiceSuite) TestGuessTooLong() {
	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, strings.Repeat("a", MaxGuessLength+1))
	s.ErrorIs(err, model.ErrGuessTooLong)

	_, err = s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, strings.Repeat("é", MaxGuessLength))
	s.NoError(err)
}

func (s *ServiceSuite) TestGuessIsStoredWithoutMarkup() {
	result, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "<b>Spider-Man</b>")
	s.Require().NoError(err)
	s.True(result.Correct)

	history, err := s.service.History(s.ctx, playerID, model.TrackMarvel)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("Spider-Man", history[0].Text)
}

func (s *ServiceSuite) TestInvalidTrack() {
	_, err := s.service.CheckGuess(s.ctx, playerID, "darkhorse", "Hellboy")
	s.ErrorIs(err, model.ErrInvalidTrack)
}

func (s *ServiceSuite) TestNoPuzzleToday() {
	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackDC, "Batman")
	s.ErrorIs(err, model.ErrPuzzleNotFound)

	s.clock.AdvanceDays(1)
	_, err = s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.ErrorIs(err, model.ErrPuzzleNotFound)
}

func (s *ServiceSuite) TestUnknownPlayer() {
	_, err := s.service.CheckGuess(s.ctx, "ghost", model.TrackMarvel, "Spider-Man")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// failingOutcomeStore fails the next guess after the player update has been applied
type failingOutcomeStore struct {
	*memory.Storage
	failNext bool
}

var errTransient = errors.New("transient")

func (f *failingOutcomeStore) RecordGuess(ctx context.Context, g *model.Guess, maxAttempts int, fn storage.GuessOutcomeFunc) (*model.Progress, *model.Player, error) {
	if !f.failNext {
		return f.Storage.RecordGuess(ctx, g, maxAttempts, fn)
	}
	f.failNext = false
	return f.Storage.RecordGuess(ctx, g, maxAttempts, func(p *model.Player, pr *model.Progress) error {
		if err := fn(p, pr); err != nil {
			return err
		}
		return errTransient
	})
}

func (s *ServiceSuite) TestFailedStreakUpdateCanBeRetried() {
	p := s.player()
	p.RecordWin(model.TrackMarvel, "2024-01-13")
	p.RecordWin(model.TrackMarvel, "2024-01-14")
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p))

	store := &failingOutcomeStore{Storage: s.storage, failNext: true}
	svc := New(store, s.clock, s.ids, puzzle.New(store, s.clock, time.UTC), DefaultConfig(), cgtestutil.NopLogger(), s.metrics)

	_, err := svc.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.ErrorIs(err, errTransient)

	st, err := svc.Status(s.ctx, playerID, model.TrackMarvel)
	s.Require().NoError(err)
	s.False(st.Solved)
	s.Equal(0, st.AttemptsUsed)
	s.Equal(2, s.player().Streaks[model.TrackMarvel])

	result, err := svc.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.Require().NoError(err)
	s.True(result.FirstSolve)
	s.Equal(3, result.Streak)

	p = s.player()
	s.Equal(3, p.Streaks[model.TrackMarvel])
	s.Equal(model.Date("2024-01-15"), p.LastPlayed[model.TrackMarvel])
}

func (s *ServiceSuite) TestConcurrentCorrectGuessesSolveOnce() {
	const n = 20

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		first    int
		rejected int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && result.FirstSolve:
				first++
			case err != nil:
				rejected++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, first)
	s.Equal(n-1, rejected)

	p := s.player()
	s.Equal(1, p.Streaks[model.TrackMarvel])
	s.Equal(1, p.TotalWins)
}

// Status / History / DailyProgress tests

func (s *ServiceSuite) TestStatusBeforeGuessing() {
	st, err := s.service.Status(s.ctx, playerID, model.TrackMarvel)
	s.Require().NoError(err)

	s.True(st.PuzzleAvailable)
	s.Equal(model.PuzzleID("20240115-marvel"), st.PuzzleID)
	s.Equal(0, st.AttemptsUsed)
	s.Equal(6, st.AttemptsRemaining)
	s.True(st.CanGuess)
	s.Nil(st.Character)
}

func (s *ServiceSuite) TestStatusAfterIncorrectGuess() {
	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Thor")
	s.Require().NoError(err)

	st, err := s.service.Status(s.ctx, playerID, model.TrackMarvel)
	s.Require().NoError(err)
	s.Equal(1, st.AttemptsUsed)
	s.Equal(5, st.AttemptsRemaining)
	s.False(st.Solved)
	s.True(st.CanGuess)
	s.Nil(st.Character)
}

func (s *ServiceSuite) TestStatusAfterSolving() {
	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, "Spider-Man")
	s.Require().NoError(err)

	st, err := s.service.Status(s.ctx, playerID, model.TrackMarvel)
	s.Require().NoError(err)
	s.True(st.Solved)
	s.True(st.Finished)
	s.False(st.CanGuess)
	s.Require().NotNil(st.Character)
	s.Equal("Spider-Man", st.Character.Name)
}

func (s *ServiceSuite) TestStatusWithoutPuzzle() {
	_, err := s.service.Status(s.ctx, playerID, model.TrackImage)
	s.ErrorIs(err, model.ErrPuzzleNotFound)
}

func (s *ServiceSuite) TestHistoryIsInAttemptOrder() {
	for _, text := range []string{"Thor", "Iron Man", "Spidey"} {
		_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackMarvel, text)
		s.Require().NoError(err)
	}

	history, err := s.service.History(s.ctx, playerID, model.TrackMarvel)
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	for i, g := range history {
		s.Equal(i+1, g.AttemptNumber)
	}
	s.Equal("Thor", history[0].Text)
	s.True(history[2].Correct)
}

func (s *ServiceSuite) TestHistoryEmpty() {
	history, err := s.service.History(s.ctx, playerID, model.TrackMarvel)
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *ServiceSuite) TestDailyProgress() {
	s.setPuzzle("2024-01-15", model.TrackDC, "dc-batman")
	_, err := s.service.CheckGuess(s.ctx, playerID, model.TrackDC, "bruce wayne")
	s.Require().NoError(err)

	statuses, err := s.service.DailyProgress(s.ctx, playerID)
	s.Require().NoError(err)
	s.Require().Len(statuses, 3)

	byTrack := make(map[model.Track]*Status)
	for _, st := range statuses {
		byTrack[st.Track] = st
	}

	s.True(byTrack[model.TrackMarvel].PuzzleAvailable)
	s.True(byTrack[model.TrackMarvel].CanGuess)

	s.True(byTrack[model.TrackDC].Solved)

	s.False(byTrack[model.TrackImage].PuzzleAvailable)
	s.False(byTrack[model.TrackImage].CanGuess)
	s.Equal(model.Date("2024-01-15"), byTrack[model.TrackImage].Date)
}

func (s *ServiceSuite) TestImageURL() {
	c := &model.Character{ImageKey: "dc/batman.jpg"}
	s.Equal("https://img.example.com/dc/batman.jpg", s.service.ImageURL(c))

	bare := New(s.storage, s.clock, s.ids, nil, Config{}, nil, nil)
	s.Equal("dc/batman.jpg", bare.ImageURL(c))
	s.Equal(6, bare.MaxAttempts())
}
