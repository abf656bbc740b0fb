package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/comicguess/internal/dependencies/clock"
	"github.com/mcoot/comicguess/internal/dependencies/ids"
	"github.com/mcoot/comicguess/internal/metrics"
	"github.com/mcoot/comicguess/internal/services/auth"
	"github.com/mcoot/comicguess/internal/services/characters"
	"github.com/mcoot/comicguess/internal/services/guess"
	"github.com/mcoot/comicguess/internal/services/puzzle"
	"github.com/mcoot/comicguess/internal/services/selector"
	"github.com/mcoot/comicguess/internal/storage"
	"github.com/mcoot/comicguess/internal/storage/memory"
	pgstorage "github.com/mcoot/comicguess/internal/storage/postgres"
	redisstorage "github.com/mcoot/comicguess/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock   clock.Clock
	IDs     ids.Generator
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// Services
	CharacterService *characters.Service
	SelectorService  *selector.Service
	Scheduler        *selector.Scheduler
	PuzzleService    *puzzle.Service
	GuessService     *guess.Service
	AuthService      *auth.Service
}

// Config holds configuration for the application factory
type Config struct {
	// CharactersPath is the path to the character seed file (optional)
	// If empty, pools must be loaded manually
	CharactersPath string
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// GuessConfig holds the attempt limit and image URL base (optional)
	GuessConfig guess.Config
	// SelectorConfig holds the time zone and retry policy (optional)
	// If zero value, defaults to selector.DefaultConfig()
	SelectorConfig selector.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds database settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	app := newWithDependencies(store, clock.New(), ids.New(), cfg.AuthConfig, cfg.GuessConfig, withSelectorDefaults(cfg.SelectorConfig), logger)

	if cfg.CharactersPath != "" {
		if err := app.CharacterService.LoadFromFile(context.Background(), cfg.CharactersPath); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("load characters: %w", err)
		}
	}
	return app, nil
}

// withSelectorDefaults fills unset selector fields from selector.DefaultConfig
func withSelectorDefaults(cfg selector.Config) selector.Config {
	def := selector.DefaultConfig()
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	return cfg
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		return pgstorage.New(*cfg.PostgresConfig)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	gen ids.Generator,
	authCfg auth.Config,
	guessCfg guess.Config,
	selectorCfg selector.Config,
	logger *slog.Logger,
) *App {
	m := metrics.New()

	characterService := characters.New(store, logger)
	selectorService := selector.New(store, clk, selectorCfg, logger, m)
	puzzleService := puzzle.New(store, clk, selectorService.Location())
	guessService := guess.New(store, clk, gen, puzzleService, guessCfg, logger, m)
	authService := auth.New(store, clk, gen, authCfg)

	return &App{
		Storage:          store,
		Clock:            clk,
		IDs:              gen,
		Metrics:          m,
		Logger:           logger,
		CharacterService: characterService,
		SelectorService:  selectorService,
		Scheduler:        selector.NewScheduler(selectorService),
		PuzzleService:    puzzleService,
		GuessService:     guessService,
		AuthService:      authService,
	}
}

// Close releases the storage backend's connections
func (a *App) Close() error {
	if c, ok := a.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
