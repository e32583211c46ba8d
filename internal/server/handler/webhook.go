// Package handler provides HTTP handlers for the Merge-Warden application.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/merge-warden/internal/config"
	"github.com/sevigo/merge-warden/internal/core"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with the given configuration and dispatcher.
func NewWebhookHandler(cfg *config.Config, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle processes GitHub webhook requests. Pull request lifecycle events
// and review events both trigger a fresh approval check; everything else is
// acknowledged and ignored.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, []byte(h.cfg.GitHub.WebhookSecret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.PullRequestEvent:
		checkEvent, err := core.EventFromPullRequest(e)
		h.dispatch(r.Context(), w, checkEvent, err, e.GetRepo().GetFullName())
	case *github.PullRequestReviewEvent:
		checkEvent, err := core.EventFromPullRequestReview(e)
		h.dispatch(r.Context(), w, checkEvent, err, e.GetRepo().GetFullName())
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", github.WebHookType(r))
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

// dispatch queues a check job for a validated event. Conversion failures
// mean the event cannot change a verdict and are acknowledged silently.
func (h *WebhookHandler) dispatch(ctx context.Context, w http.ResponseWriter, event *core.GitHubEvent, convErr error, repo string) {
	if convErr != nil {
		h.logger.Debug("ignoring webhook event", "reason", convErr.Error(), "repo", repo)
		_, _ = fmt.Fprint(w, "Event ignored")
		return
	}

	if err := h.dispatcher.Dispatch(ctx, event); err != nil {
		h.logger.Error("failed to dispatch check job", "error", err, "repo", event.RepoFullName)
		http.Error(w, "Failed to start check job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("check job dispatched", "repo", event.RepoFullName, "pr", event.PRNumber, "action", event.Action)
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Check job accepted")
}
