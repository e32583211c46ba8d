package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/merge-warden/internal/config"
	"github.com/sevigo/merge-warden/internal/core"
	"github.com/sevigo/merge-warden/internal/gate"
	"github.com/sevigo/merge-warden/internal/github"
	"github.com/sevigo/merge-warden/internal/policy"
)

// CheckJob evaluates a single pull request against its repository's
// approval policy and reports the verdict as a check run on the head
// commit. One job runs per webhook delivery; nothing is persisted.
type CheckJob struct {
	cfg     *config.Config
	clients github.ClientFactory
	logger  *slog.Logger
}

// NewCheckJob creates the approval check job executed by dispatcher workers.
func NewCheckJob(cfg *config.Config, clients github.ClientFactory, logger *slog.Logger) core.Job {
	return &CheckJob{cfg: cfg, clients: clients, logger: logger}
}

// Run performs the full check: authenticate for the event's installation,
// open a check run, fetch the PR state, evaluate, and close the check run
// with the verdict. Evaluation errors close the run as "action_required"
// so a broken check never silently approves a merge.
func (j *CheckJob) Run(ctx context.Context, event *core.GitHubEvent) error {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.Check.Timeout)
	defer cancel()

	client, err := j.clients.InstallationClient(ctx, event.InstallationID)
	if err != nil {
		return fmt.Errorf("failed to create installation client: %w", err)
	}
	status := github.NewStatusUpdater(client)

	checkRunID, err := status.InProgress(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to open check run: %w", err)
	}

	verdict, err := j.evaluate(ctx, client, event)
	if err != nil {
		if stErr := status.CompletedWithError(ctx, event, checkRunID, err); stErr != nil {
			j.logger.Error("failed to report evaluation error", "repo", event.RepoFullName, "pr", event.PRNumber, "error", stErr)
		}
		return err
	}

	j.logger.Info("approval check completed",
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"satisfied", verdict.Satisfied,
		"reasons", len(verdict.Reasons),
	)
	return status.CompletedWithVerdict(ctx, event, checkRunID, verdict)
}

func (j *CheckJob) evaluate(ctx context.Context, client github.Client, event *core.GitHubEvent) (core.Verdict, error) {
	pol, err := j.loadPolicy(ctx, client, event)
	if err != nil {
		return core.Verdict{}, err
	}

	data, err := github.FetchPRData(ctx, client, event.RepoOwner, event.RepoName, event.PRNumber, pol.ExcludesCommitters())
	if err != nil {
		return core.Verdict{}, err
	}

	evaluator := gate.New(client, j.logger)
	return evaluator.Evaluate(ctx, data.PullRequest, data.Reviews, data.Committers, pol)
}

// loadPolicy reads the repository's policy file at the PR's head commit so
// the policy in force is the one the PR itself carries. Repositories
// without a policy file get the default policy.
func (j *CheckJob) loadPolicy(ctx context.Context, client github.Client, event *core.GitHubEvent) (*policy.Policy, error) {
	data, err := client.GetFileContent(ctx, event.RepoOwner, event.RepoName, j.cfg.Check.PolicyPath, event.HeadSHA)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			j.logger.Debug("no policy file in repository, using default policy",
				"repo", event.RepoFullName, "path", j.cfg.Check.PolicyPath)
			return policy.Default(), nil
		}
		return nil, err
	}
	return policy.Parse(data)
}
