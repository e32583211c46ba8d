// Package app initializes and orchestrates the main components of the
// Merge-Warden daemon: configuration, the GitHub App client factory, the
// check job dispatcher, and the webhook server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/merge-warden/internal/config"
	"github.com/sevigo/merge-warden/internal/core"
	"github.com/sevigo/merge-warden/internal/github"
	"github.com/sevigo/merge-warden/internal/jobs"
	"github.com/sevigo/merge-warden/internal/server"
)

// App holds the main application components.
type App struct {
	ctx        context.Context
	cfg        *config.Config
	server     *server.Server
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewApp sets up the daemon with all its dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	logger.Info("initializing Merge-Warden",
		"app_id", cfg.GitHub.AppID,
		"policy_path", cfg.Check.PolicyPath,
		"max_workers", cfg.Server.MaxWorkers,
	)

	clientFactory := github.NewAppClientFactory(cfg.GitHub.AppID, cfg.GitHub.PrivateKeyPath, cfg.Check.Retries, logger)
	checkJob := jobs.NewCheckJob(cfg, clientFactory, logger)
	dispatcher := jobs.NewDispatcher(checkJob, cfg.Server.MaxWorkers, logger)
	httpServer := server.NewServer(ctx, cfg, dispatcher, logger)

	return &App{
		ctx:        ctx,
		cfg:        cfg,
		server:     httpServer,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// Start runs the HTTP server.
func (a *App) Start() error {
	a.logger.Info("starting Merge-Warden",
		"server_port", a.cfg.Server.Port,
		"max_workers", a.cfg.Server.MaxWorkers,
	)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down Merge-Warden services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	// Stop the job dispatcher, allowing in-flight checks to finish.
	a.dispatcher.Stop()

	if serverErr != nil {
		return serverErr
	}

	a.logger.Info("Merge-Warden stopped successfully")
	return nil
}
