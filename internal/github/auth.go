// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/merge-warden/internal/core"
)

// ClientFactory creates API clients authenticated for a specific GitHub App
// installation. The server mode uses it to build a fresh client per webhook
// delivery; the CLI uses NewPATClient instead.
type ClientFactory interface {
	InstallationClient(ctx context.Context, installationID int64) (Client, error)
}

type appClientFactory struct {
	appID          int64
	privateKeyPath string
	retries        int
	logger         *slog.Logger
}

// NewAppClientFactory returns a factory backed by a GitHub App's private key.
func NewAppClientFactory(appID int64, privateKeyPath string, retries int, logger *slog.Logger) ClientFactory {
	return &appClientFactory{
		appID:          appID,
		privateKeyPath: privateKeyPath,
		retries:        retries,
		logger:         logger,
	}
}

// InstallationClient creates a GitHub client that is authenticated as a
// specific application installation.
func (f *appClientFactory) InstallationClient(ctx context.Context, installationID int64) (Client, error) {
	f.logger.Info("creating GitHub installation client", "installation_id", installationID)

	privateKey, err := os.ReadFile(f.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read private key from %s: %v", core.ErrConfig, f.privateKeyPath, err)
	}

	// The apps transport talks to the GitHub App API to mint installation tokens.
	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, f.appID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GitHub App transport: %v", core.ErrConfig, err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, classify(fmt.Sprintf("create installation token for %d", installationID), err)
	}
	if token.GetToken() == "" {
		return nil, fmt.Errorf("%w: received an empty installation token", core.ErrAuth)
	}
	f.logger.Info("created installation token", "installation_id", installationID, "expires_at", token.GetExpiresAt())

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.GetToken()})
	tc := oauth2.NewClient(ctx, ts)
	return NewClient(github.NewClient(tc), f.retries, f.logger), nil
}
