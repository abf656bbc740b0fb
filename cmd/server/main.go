package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mcoot/comicguess/internal/api"
	"github.com/mcoot/comicguess/internal/factory"
	"github.com/mcoot/comicguess/internal/logging"
	"github.com/mcoot/comicguess/internal/model"
)

func main() {
	// A missing .env is fine; the environment and flags still apply
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := &Config{}
	if err := newCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the logger and the wired application
func newApp(cfg *Config) (*factory.App, *slog.Logger, io.Closer, error) {
	logger, logCloser, err := logging.New(cfg.loggingConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)

	fcfg := cfg.factoryConfig()
	fcfg.Logger = logger

	app, err := factory.New(fcfg)
	if err != nil {
		_ = logCloser.Close()
		return nil, nil, nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, logger, logCloser, nil
}

func serve(ctx context.Context, cfg *Config) error {
	app, logger, logCloser, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	defer func() { _ = app.Close() }()

	router := api.NewRouter(api.RouterConfig{
		Logger:           logger,
		Clock:            app.Clock,
		Metrics:          app.Metrics,
		AuthService:      app.AuthService,
		PuzzleService:    app.PuzzleService,
		GuessService:     app.GuessService,
		GuessesPerMinute: cfg.guessRate,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.bind
	serverConfig.Port = cfg.port
	server := api.NewServer(router, serverConfig, logger)

	if cfg.schedule {
		go func() {
			if err := app.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("server starting",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.storage),
		slog.String("timezone", cfg.timezone),
		slog.Bool("schedule", cfg.schedule),
	)

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}

func selectPuzzles(ctx context.Context, cfg *Config, date string, out io.Writer) error {
	app, _, logCloser, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	defer func() { _ = app.Close() }()

	d := app.SelectorService.Today()
	if date != "" {
		if d, err = model.ParseDate(date); err != nil {
			return err
		}
	}

	report := app.Scheduler.RunOnce(ctx, d)
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(out, "%s %s: failed: %v\n", report.Date, res.Track, res.Err)
			continue
		}
		fmt.Fprintf(out, "%s %s: %s\n", report.Date, res.Track, res.Puzzle.ID)
	}
	return report.Err()
}
