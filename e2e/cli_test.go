package e2e_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/comicguess/internal/api"
	"github.com/mcoot/comicguess/internal/cli"
	"github.com/mcoot/comicguess/internal/factory"
	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/testutil"
)

// cliRunner runs the CLI in-process against a test server
type cliRunner struct {
	serverURL string
	tokenFile string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()
	return &cliRunner{
		serverURL: serverURL,
		tokenFile: filepath.Join(t.TempDir(), "token"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)
	return execute(fullArgs)
}

func (r *cliRunner) runText(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
	}, args...)
	return execute(fullArgs)
}

func execute(args []string) (string, error) {
	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

// testServer wraps a live HTTP server backed by a test app
type testServer struct {
	app *factory.TestApp
	url string
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	require.NoError(t, app.LoadTestCharacters(t.Context()))
	require.NoError(t, app.SelectToday(t.Context()))

	router := api.NewRouter(api.RouterConfig{
		Logger:        testutil.NopLogger(),
		Clock:         app.MockClock,
		Metrics:       app.Metrics,
		AuthService:   app.AuthService,
		PuzzleService: app.PuzzleService,
		GuessService:  app.GuessService,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{app: app, url: server.URL}
}

func (ts *testServer) answer(t *testing.T, track model.Track) string {
	t.Helper()
	p, err := ts.app.PuzzleService.Today(t.Context(), track)
	require.NoError(t, err)
	c, err := ts.app.PuzzleService.Reveal(t.Context(), p)
	require.NoError(t, err)
	return c.Name
}

func (ts *testServer) wrongName(t *testing.T, track model.Track) string {
	t.Helper()
	answer := ts.answer(t, track)
	for _, c := range testutil.Pools()[track] {
		if c.Name != answer {
			return c.Name
		}
	}
	t.Fatal("pool has a single character")
	return ""
}

// Response types for JSON parsing
type authResponse struct {
	Player struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		IsGuest     bool   `json:"is_guest"`
	} `json:"player"`
	SessionToken string `json:"session_token"`
}

type guessResponse struct {
	Correct           bool `json:"correct"`
	AttemptsRemaining int  `json:"attempts_remaining"`
	GameOver          bool `json:"game_over"`
	Streak            int  `json:"streak"`
	Character         *struct {
		Name string `json:"name"`
	} `json:"character"`
}

type streaksResponse struct {
	Tracks []struct {
		Track   string `json:"track"`
		Current int    `json:"current"`
		Best    int    `json:"best"`
	} `json:"tracks"`
	TotalWins int `json:"total_wins"`
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)
	return v
}

func TestCLIHealth(t *testing.T) {
	ts := startTestServer(t)
	r := newCLIRunner(t, ts.url)

	out, err := r.run("health")
	require.NoError(t, err)
	assert.Contains(t, out, `"ok"`)
	assert.Contains(t, out, `"logged_in": false`)

	out, err = r.runText("health")
	require.NoError(t, err)
	assert.Contains(t, out, "Server: "+ts.url+" (ok)")
	assert.Contains(t, out, "Session: none")
}

func TestCLIGuestSessionIsSaved(t *testing.T) {
	ts := startTestServer(t)
	r := newCLIRunner(t, ts.url)

	out, err := r.run("player", "guest", "--name", "Alice")
	require.NoError(t, err)
	auth := decode[authResponse](t, out)
	assert.Equal(t, "Alice", auth.Player.DisplayName)
	assert.True(t, auth.Player.IsGuest)
	assert.NotEmpty(t, auth.SessionToken)

	// The saved token authenticates later commands
	out, err = r.run("player", "me")
	require.NoError(t, err)
	assert.Contains(t, out, auth.Player.ID)
}

func TestCLIRegisterAndLogin(t *testing.T) {
	ts := startTestServer(t)
	r := newCLIRunner(t, ts.url)

	_, err := r.run("player", "register", "--name", "Bob", "--user", "bob", "--pass", "password123")
	require.NoError(t, err)

	other := newCLIRunner(t, ts.url)
	out, err := other.run("player", "login", "--user", "bob", "--pass", "password123")
	require.NoError(t, err)
	assert.Equal(t, "Bob", decode[authResponse](t, out).Player.DisplayName)

	_, err = other.run("player", "login", "--user", "bob", "--pass", "wrong-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_CREDENTIALS")
}

func TestCLIRequiresSession(t *testing.T) {
	ts := startTestServer(t)
	r := newCLIRunner(t, ts.url)

	_, err := r.run("puzzle", "status", "--track", "marvel")
	require.Error(t, err)

	var apiErr *cli.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
	assert.Equal(t, 401, apiErr.Status)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.Contains(t, err.Error(), "request "+apiErr.RequestID)
}

func TestCLIPuzzleTodayHidesAnswer(t *testing.T) {
	ts := startTestServer(t)
	r := newCLIRunner(t, ts.url)

	out, err := r.run("puzzle", "today", "--track", "dc")
	require.NoError(t, err)
	assert.Contains(t, out, "20240101-dc")
	assert.NotContains(t, out, ts.answer(t, model.TrackDC))
}

func TestCLIInvalidTrack(t *testing.T) {
	ts := startTestServer(t)
	r := newCLIRunner(t, ts.url)

	_, err := r.run("puzzle", "today", "--track", "vertigo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_TRACK")
}

func TestCLIGuessFlow(t *testing.T) {
	ts := startTestServer(t)
	r := newCLIRunner(t, ts.url)

	_, err := r.run("player", "guest", "--name", "Alice")
	require.NoError(t, err)

	out, err := r.run("guess", "--track", "marvel", ts.wrongName(t, model.TrackMarvel))
	require.NoError(t, err)
	wrong := decode[guessResponse](t, out)
	assert.False(t, wrong.Correct)
	assert.Nil(t, wrong.Character)
	assert.Equal(t, 5, wrong.AttemptsRemaining)

	// Multi-word names may be passed unquoted
	out, err = r.run(append([]string{"guess", "--track", "marvel"}, strings.Fields(ts.answer(t, model.TrackMarvel))...)...)
	require.NoError(t, err)
	right := decode[guessResponse](t, out)
	assert.True(t, right.Correct)
	require.NotNil(t, right.Character)
	assert.Equal(t, ts.answer(t, model.TrackMarvel), right.Character.Name)
	assert.Equal(t, 1, right.Streak)

	_, err = r.run("guess", "--track", "marvel", "anyone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALREADY_SOLVED")

	out, err = r.run("puzzle", "history", "--track", "marvel")
	require.NoError(t, err)
	assert.Contains(t, out, ts.wrongName(t, model.TrackMarvel))

	out, err = r.run("streaks")
	require.NoError(t, err)
	streaks := decode[streaksResponse](t, out)
	assert.Equal(t, 1, streaks.TotalWins)
	for _, s := range streaks.Tracks {
		if s.Track == "marvel" {
			assert.Equal(t, 1, s.Current)
		} else {
			assert.Zero(t, s.Current)
		}
	}
}

func TestCLITextOutput(t *testing.T) {
	ts := startTestServer(t)
	r := newCLIRunner(t, ts.url)

	_, err := r.runText("player", "guest", "--name", "Alice")
	require.NoError(t, err)

	out, err := r.runText("guess", "--track", "image", ts.answer(t, model.TrackImage))
	require.NoError(t, err)
	assert.Contains(t, out, "Correct!")
	assert.Contains(t, out, "Streak: 1")

	out, err = r.runText("progress")
	require.NoError(t, err)
	assert.Contains(t, out, "image (2024-01-01): solved")
	assert.Contains(t, out, "marvel (2024-01-01): not started")
}

func TestCLIDeletePlayer(t *testing.T) {
	ts := startTestServer(t)
	r := newCLIRunner(t, ts.url)

	out, err := r.run("player", "guest", "--name", "Alice")
	require.NoError(t, err)
	token := decode[authResponse](t, out).SessionToken

	_, err = r.run("player", "delete")
	require.Error(t, err, "deletion needs --yes")

	_, err = r.run("player", "delete", "--yes")
	require.NoError(t, err)

	_, err = execute([]string{"--server", ts.url, "--token", token, "player", "me"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNAUTHORIZED")
}
