package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/comicguess/internal/api/handler"
	"github.com/mcoot/comicguess/internal/api/middleware"
	"github.com/mcoot/comicguess/internal/dependencies/clock"
	"github.com/mcoot/comicguess/internal/metrics"
	"github.com/mcoot/comicguess/internal/services/auth"
	"github.com/mcoot/comicguess/internal/services/guess"
	"github.com/mcoot/comicguess/internal/services/puzzle"
)

// DefaultGuessesPerMinute is the per-player guess rate when none is configured
const DefaultGuessesPerMinute = 30

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger        *slog.Logger
	Clock         clock.Clock
	Metrics       *metrics.Metrics
	AuthService   *auth.Service
	PuzzleService *puzzle.Service
	GuessService  *guess.Service

	// GuessesPerMinute limits guess submissions per player
	GuessesPerMinute int
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.GuessesPerMinute <= 0 {
		cfg.GuessesPerMinute = DefaultGuessesPerMinute
	}

	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService, cfg.GuessService, cfg.PuzzleService)
	puzzleHandler := handler.NewPuzzleHandler(cfg.PuzzleService, cfg.GuessService)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	rateLimitMiddleware := middleware.RateLimit(middleware.NewRateLimiter(cfg.GuessesPerMinute, cfg.Clock))
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RequestID)
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players/me").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("", playerHandler.DeleteMe).Methods(http.MethodDelete)
	playerProtected.HandleFunc("/streaks", playerHandler.GetStreaks).Methods(http.MethodGet)
	playerProtected.HandleFunc("/progress", playerHandler.GetProgress).Methods(http.MethodGet)

	// Puzzle routes; the puzzle itself is public
	api.HandleFunc("/puzzles/{track}/today", puzzleHandler.Today).Methods(http.MethodGet)

	puzzles := api.PathPrefix("/puzzles/{track}/today").Subrouter()
	puzzles.Use(authMiddleware)
	puzzles.HandleFunc("/status", puzzleHandler.Status).Methods(http.MethodGet)
	puzzles.HandleFunc("/guesses", puzzleHandler.History).Methods(http.MethodGet)
	puzzles.Handle("/guesses", rateLimitMiddleware(http.HandlerFunc(puzzleHandler.SubmitGuess))).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
