package factory

import (
	"context"
	"time"

	"github.com/mcoot/comicguess/internal/dependencies/mocks"
	"github.com/mcoot/comicguess/internal/services/auth"
	"github.com/mcoot/comicguess/internal/services/guess"
	"github.com/mcoot/comicguess/internal/services/selector"
	"github.com/mcoot/comicguess/internal/storage/memory"
	"github.com/mcoot/comicguess/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDs
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()

	selectorCfg := selector.DefaultConfig()
	selectorCfg.InitialInterval = time.Millisecond
	selectorCfg.MaxInterval = 5 * time.Millisecond

	app := newWithDependencies(
		store,
		mockClock,
		mockIDs,
		auth.Config{Secret: "test-secret"},
		guess.DefaultConfig(),
		selectorCfg,
		testutil.NopLogger(),
	)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
	}
}

// LoadTestCharacters loads a small pool for every track
func (t *TestApp) LoadTestCharacters(ctx context.Context) error {
	for track, pool := range testutil.Pools() {
		if err := t.CharacterService.LoadCharacters(ctx, track, pool); err != nil {
			return err
		}
	}
	return nil
}

// SelectToday runs the daily selection for the mock clock's current date
func (t *TestApp) SelectToday(ctx context.Context) error {
	return t.SelectorService.SelectAll(ctx, t.SelectorService.Today()).Err()
}
