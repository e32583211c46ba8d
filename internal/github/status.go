// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/merge-warden/internal/core"
)

const checkRunName = "Merge-Warden Approval"

// Check run conclusions reported back to GitHub. An evaluation error is
// deliberately distinct from a failed policy so reviewers can tell "policy
// violated" apart from "could not evaluate policy".
const (
	ConclusionApproved = "success"
	ConclusionRejected = "failure"
	ConclusionError    = "action_required"
)

// StatusUpdater reports the progress and outcome of an approval check as a
// GitHub Check Run on the pull request's head commit.
type StatusUpdater interface {
	InProgress(ctx context.Context, event *core.GitHubEvent) (int64, error)
	CompletedWithVerdict(ctx context.Context, event *core.GitHubEvent, checkRunID int64, verdict core.Verdict) error
	CompletedWithError(ctx context.Context, event *core.GitHubEvent, checkRunID int64, evalErr error) error
}

type statusUpdater struct {
	client Client
}

// NewStatusUpdater creates and returns a new instance of a statusUpdater.
func NewStatusUpdater(client Client) StatusUpdater {
	return &statusUpdater{client: client}
}

// InProgress creates a new check run with an "in_progress" status.
func (s *statusUpdater) InProgress(ctx context.Context, event *core.GitHubEvent) (int64, error) {
	opts := github.CreateCheckRunOptions{
		Name:    checkRunName,
		HeadSHA: event.HeadSHA,
		Status:  github.Ptr("in_progress"),
		Output: &github.CheckRunOutput{
			Title:   github.Ptr("Evaluating approval policy"),
			Summary: github.Ptr("Fetching reviews and evaluating them against the repository's approval policy."),
		},
	}
	checkRun, err := s.client.CreateCheckRun(ctx, event.RepoOwner, event.RepoName, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to create check run: %w", err)
	}
	return checkRun.GetID(), nil
}

// CompletedWithVerdict closes the check run with the verdict's conclusion
// and the full reasons list in the summary.
func (s *statusUpdater) CompletedWithVerdict(ctx context.Context, event *core.GitHubEvent, checkRunID int64, verdict core.Verdict) error {
	conclusion := ConclusionApproved
	title := "Approval policy satisfied"
	if !verdict.Satisfied {
		conclusion = ConclusionRejected
		title = "Approval policy not satisfied"
	}
	return s.complete(ctx, event, checkRunID, conclusion, title, FormatSummary(verdict))
}

// CompletedWithError closes the check run signalling that the policy could
// not be evaluated at all.
func (s *statusUpdater) CompletedWithError(ctx context.Context, event *core.GitHubEvent, checkRunID int64, evalErr error) error {
	summary := fmt.Sprintf("The approval policy could not be evaluated:\n\n> %v\n\nRe-run the check once the underlying problem is fixed.", evalErr)
	return s.complete(ctx, event, checkRunID, ConclusionError, "Could not evaluate approval policy", summary)
}

func (s *statusUpdater) complete(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error {
	now := time.Now()
	opts := github.UpdateCheckRunOptions{
		Name:        checkRunName,
		Status:      github.Ptr("completed"),
		Conclusion:  &conclusion,
		CompletedAt: &github.Timestamp{Time: now},
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	_, err := s.client.UpdateCheckRun(ctx, event.RepoOwner, event.RepoName, checkRunID, opts)
	return err
}

// FormatSummary renders a verdict as the check run's markdown summary.
func FormatSummary(verdict core.Verdict) string {
	if verdict.Satisfied {
		return "All approval requirements are met. :white_check_mark:"
	}

	var sb strings.Builder
	sb.WriteString("The following requirements are not met:\n\n")
	for _, reason := range verdict.Reasons {
		fmt.Fprintf(&sb, "- %s\n", reason)
	}
	return sb.String()
}
