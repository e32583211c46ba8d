// Package wire assembles the application object graph.
package wire

import (
	"log/slog"

	"github.com/sevigo/merge-warden/internal/config"
	"github.com/sevigo/merge-warden/internal/logger"
)

func provideConfig() (*config.Config, error) {
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Log, nil)
}
