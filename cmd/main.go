package main

import (
	"context"
	"os"

	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tools"
	"github.com/desertthunder/spx/internal/widget"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	var sessions auth.SessionStore = auth.NewMemorySessionStore()
	if config.Database.Path != "" {
		if db, err := shared.NewDatabase(config.Database.Path); err == nil {
			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
			if err := shared.RunMigrations(db); err != nil {
				logger.Warn("failed to run migrations, sessions stay in memory", "error", err)
			} else {
				sessions = repositories.NewSessionRepository(db)
			}
		} else {
			logger.Warn("failed to open database, sessions stay in memory", "error", err)
		}
	}

	var spotifyService *services.SpotifyService
	spotifyCreds := config.Credentials.Spotify
	if spotifyCreds.ClientID != "" && spotifyCreds.ClientSecret != "" {
		refresher := auth.NewRefresher(auth.RefresherOpts{
			Store:        sessions,
			ClientID:     spotifyCreds.ClientID,
			ClientSecret: spotifyCreds.ClientSecret,
			Logger:       logger,
		})

		if svc, err := services.NewSpotifyService(spotifyCreds.Map(), refresher); err == nil {
			svc.SetRateLimit(config.Limits.RequestsPerSecond)
			spotifyService = svc
		} else {
			logger.Warn("failed to create Spotify service", "error", err)
		}
	}

	renderer, err := widget.NewRenderer()
	if err != nil {
		logger.Fatalf("failed to load widget templates: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Spotify:  spotifyService,
		Sessions: sessions,
		Pending:  auth.NewMemoryPendingStore(),
		Renderer: renderer,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:     "spx",
		Usage:    "Spotify search and library tools for MCP hosts",
		Version:  tools.ServerVersion,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
