package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/client/cli"
	"github.com/noah-isme/lostfound-api/internal/config"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	if os.Getenv("LOSTFOUND_CLIENT_DEBUG") != "" {
		logger = logger.Level(zerolog.DebugLevel)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load client configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start board client")
	}

	runErr := app.Run(ctx, os.Args[1:])
	if err := app.Close(); err != nil {
		logger.Warn().Err(err).Msg("close board client")
	}
	if runErr != nil {
		if !errors.Is(runErr, cli.ErrUsage) {
			logger.Error().Err(runErr).Msg("command failed")
		}
		os.Exit(1)
	}
}
