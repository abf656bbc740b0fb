package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/comicguess/internal/factory"
	"github.com/mcoot/comicguess/internal/logging"
	"github.com/mcoot/comicguess/internal/services/auth"
	"github.com/mcoot/comicguess/internal/services/guess"
	"github.com/mcoot/comicguess/internal/services/selector"
	pgstorage "github.com/mcoot/comicguess/internal/storage/postgres"
	redisstorage "github.com/mcoot/comicguess/internal/storage/redis"
)

const maxAttemptsLimit = 20

// Config holds the server's resolved flags and environment
type Config struct {
	bind          string
	port          int
	storage       string
	redisURL      string
	databaseURL   string
	characters    string
	timezone      string
	maxAttempts   int
	jwtSecret     string
	tokenDuration time.Duration
	guessRate     int
	imageBaseURL  string
	logLevel      string
	logFile       string
	schedule      bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.redisURL == "" {
			return errors.New("--redis-url is required with --storage=redis")
		}
	case factory.StorageTypePostgres:
		if c.databaseURL == "" {
			return errors.New("--database-url is required with --storage=postgres")
		}
	default:
		return fmt.Errorf("invalid storage %q (must be memory, redis or postgres)", c.storage)
	}
	if _, err := time.LoadLocation(c.timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.timezone, err)
	}
	if c.maxAttempts < 1 || c.maxAttempts > maxAttemptsLimit {
		return fmt.Errorf("invalid max attempts (must be between 1-%d inclusive): %d", maxAttemptsLimit, c.maxAttempts)
	}
	if c.jwtSecret == "" {
		return errors.New("--jwt-secret must not be empty")
	}
	if c.tokenDuration <= 0 {
		return fmt.Errorf("invalid token duration: %s", c.tokenDuration)
	}
	if c.guessRate < 1 {
		return fmt.Errorf("invalid guess rate (must be at least 1 per minute): %d", c.guessRate)
	}
	if _, err := logging.ParseLevel(c.logLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) location() *time.Location {
	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) loggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.logLevel
	cfg.File = c.logFile
	return cfg
}

func (c *Config) factoryConfig() factory.Config {
	selectorCfg := selector.DefaultConfig()
	selectorCfg.Location = c.location()

	cfg := factory.Config{
		CharactersPath: c.characters,
		AuthConfig: auth.Config{
			Secret:        c.jwtSecret,
			TokenDuration: c.tokenDuration,
		},
		GuessConfig: guess.Config{
			MaxAttempts:  c.maxAttempts,
			ImageBaseURL: c.imageBaseURL,
		},
		SelectorConfig: selectorCfg,
		StorageType:    c.storage,
	}

	switch c.storage {
	case factory.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.redisURL
		cfg.RedisConfig = &redisCfg
	case factory.StorageTypePostgres:
		pgCfg := pgstorage.DefaultConfig()
		pgCfg.DSN = c.databaseURL
		cfg.PostgresConfig = &pgCfg
	}
	return cfg
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("COMICGUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "comicguess-server",
		Short: "Serves the daily comic character guessing game.",
		Args:  cobra.ExactArgs(0),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: COMICGUESS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: COMICGUESS_PORT)")
	fs.StringVar(&cfg.storage, "storage", factory.StorageTypeMemory, "storage backend: memory, redis, postgres (env: COMICGUESS_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection URL (env: COMICGUESS_REDIS_URL)")
	fs.StringVar(&cfg.databaseURL, "database-url", "", "postgres connection URL (env: COMICGUESS_DATABASE_URL)")
	fs.StringVar(&cfg.characters, "characters", "data/characters.yaml", "character seed file, empty to skip loading (env: COMICGUESS_CHARACTERS)")
	fs.StringVar(&cfg.timezone, "timezone", "UTC", "time zone that decides the puzzle date (env: COMICGUESS_TIMEZONE)")
	fs.IntVar(&cfg.maxAttempts, "max-attempts", guess.DefaultConfig().MaxAttempts, "guesses allowed per puzzle (env: COMICGUESS_MAX_ATTEMPTS)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", auth.DefaultConfig().Secret, "secret used to sign session tokens (env: COMICGUESS_JWT_SECRET)")
	fs.DurationVar(&cfg.tokenDuration, "token-duration", auth.DefaultConfig().TokenDuration, "session token lifetime (env: COMICGUESS_TOKEN_DURATION)")
	fs.IntVar(&cfg.guessRate, "guess-rate", 30, "guesses allowed per player per minute (env: COMICGUESS_GUESS_RATE)")
	fs.StringVar(&cfg.imageBaseURL, "image-base-url", "", "prefix for revealed character images (env: COMICGUESS_IMAGE_BASE_URL)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error (env: COMICGUESS_LOG_LEVEL)")
	fs.StringVar(&cfg.logFile, "log-file", "", "also write logs to this rotated file (env: COMICGUESS_LOG_FILE)")
	fs.BoolVar(&cfg.schedule, "schedule", true, "select puzzles at startup and every midnight (env: COMICGUESS_SCHEDULE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(newServeCmd(cfg))
	cmd.AddCommand(newSelectCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newServeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
}

func newSelectCmd(cfg *Config) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select the puzzle of every track for one date and exit",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return selectPuzzles(cmd.Context(), cfg, date, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date to select for, YYYY-MM-DD (default today)")

	return cmd
}
