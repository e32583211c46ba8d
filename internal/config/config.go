// Package config loads and validates the application's configuration from
// the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/merge-warden/internal/core"
)

// GitHubConfig carries credentials and repository coordinates.
type GitHubConfig struct {
	// Token is the PAT used by CLI invocations.
	Token string
	// Repository is the "owner/name" pair the check targets.
	Repository string

	// App credentials, server mode only.
	AppID          int64
	WebhookSecret  string
	PrivateKeyPath string
}

// CheckConfig controls a single policy evaluation.
type CheckConfig struct {
	PRNumber   int
	PolicyPath string
	Timeout    time.Duration
	Retries    int
}

// ServerConfig configures the webhook daemon.
type ServerConfig struct {
	Port       string
	MaxWorkers int
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// Config holds the application's configuration values.
type Config struct {
	GitHub GitHubConfig
	Check  CheckConfig
	Server ServerConfig
	Log    LogConfig
}

// Load reads configuration from environment variables and a .env file,
// sets sensible defaults, and returns the result. Per-mode validation is
// deferred to ValidateCheck/ValidateServer since the CLI and the server
// require different fields.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("POLICY_PATH", ".merge-warden.yml")
	viper.SetDefault("CHECK_TIMEOUT", "60s")
	viper.SetDefault("HTTP_RETRIES", 3)
	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/merge-warden-app.private-key.pem")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Debug("no .env file loaded", "error", err)
		}
	}

	return &Config{
		GitHub: GitHubConfig{
			Token:          viper.GetString("GITHUB_TOKEN"),
			Repository:     viper.GetString("GITHUB_REPOSITORY"),
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			WebhookSecret:  viper.GetString("GITHUB_WEBHOOK_SECRET"),
			PrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
		},
		Check: CheckConfig{
			PRNumber:   viper.GetInt("PR_NUMBER"),
			PolicyPath: viper.GetString("POLICY_PATH"),
			Timeout:    viper.GetDuration("CHECK_TIMEOUT"),
			Retries:    viper.GetInt("HTTP_RETRIES"),
		},
		Server: ServerConfig{
			Port:       viper.GetString("SERVER_PORT"),
			MaxWorkers: viper.GetInt("MAX_WORKERS"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}, nil
}

// ValidateCheck verifies the trigger inputs a CLI evaluation needs:
// repository, PR number, and credential.
func (c *Config) ValidateCheck() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("%w: GITHUB_TOKEN must be set", core.ErrConfig)
	}
	if _, _, err := c.SplitRepository(); err != nil {
		return err
	}
	if c.Check.PRNumber <= 0 {
		return fmt.Errorf("%w: PR_NUMBER must be a positive integer, got %d", core.ErrConfig, c.Check.PRNumber)
	}
	if c.Check.Timeout <= 0 {
		return fmt.Errorf("%w: CHECK_TIMEOUT must be positive", core.ErrConfig)
	}
	return nil
}

// ValidateServer verifies the GitHub App credentials the daemon needs.
func (c *Config) ValidateServer() error {
	if c.GitHub.AppID == 0 {
		return fmt.Errorf("%w: GITHUB_APP_ID must be set", core.ErrConfig)
	}
	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("%w: GITHUB_WEBHOOK_SECRET must be set", core.ErrConfig)
	}
	if c.GitHub.PrivateKeyPath == "" {
		return fmt.Errorf("%w: GITHUB_PRIVATE_KEY_PATH must be set", core.ErrConfig)
	}
	return nil
}

// SplitRepository splits the "owner/name" repository identifier.
func (c *Config) SplitRepository() (owner, name string, err error) {
	parts := strings.Split(c.GitHub.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: GITHUB_REPOSITORY must be in owner/repo form, got %q", core.ErrConfig, c.GitHub.Repository)
	}
	return parts[0], parts[1], nil
}
