package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/likesync/internal/services"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/urfave/cli/v3"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			logger.Fatalf("invalid config: %v", err)
		}
		config = loaded
	} else {
		config.ApplyEnv(os.LookupEnv)
	}

	if configured, closer, err := shared.NewConfiguredLogger(config.Log); err != nil {
		logger.Warn("failed to configure logger, using stderr", "error", err)
	} else {
		logger = configured
		defer closer.Close()
	}

	creds, err := shared.LoadCredentialStore(config.Auth.TokenPath)
	if err != nil {
		logger.Warn("ignoring unreadable token file", "path", config.Auth.TokenPath, "error", err)
		creds = shared.NewCredentialStore(config.Auth.TokenPath)
	}

	opts := RunnerOpts{
		Config:      config,
		ConfigPath:  configPath,
		Credentials: creds,
		Logger:      logger,
	}

	if config.Credentials.Spotify.Configured() {
		svc, err := services.NewSpotifyService(config.Credentials.Spotify, creds, services.SpotifyOpts{RateLimit: config.Sync.RateLimit})
		if err != nil {
			logger.Warn("spotify service unavailable", "error", err)
		} else {
			opts.Spotify = svc
		}
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "likesync",
		Usage:    "Reconcile Spotify liked tracks into a normalized artist/album/track store",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrMissingCredentials) {
			logger.Error(err)
			os.Exit(2)
		}
		logger.Fatalf("application error: %v", err)
	}
}
