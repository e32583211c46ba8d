package core

import (
	"fmt"
	"slices"

	"github.com/google/go-github/v73/github"
)

// checkedActions are the pull_request actions that change the approval state
// of a PR and therefore warrant a fresh evaluation.
var checkedActions = []string{"opened", "reopened", "synchronize", "ready_for_review"}

// GitHubEvent represents a simplified, internal view of a GitHub webhook event.
type GitHubEvent struct {
	RepoOwner    string
	RepoName     string
	RepoFullName string

	PRNumber int
	PRAuthor string
	HeadSHA  string

	Action         string
	InstallationID int64
}

// EventFromPullRequest transforms a raw GitHub PullRequestEvent into the
// application's internal GitHubEvent representation. It acts as an
// anti-corruption layer: the payload is validated here so downstream jobs
// only ever see complete events. Actions that cannot change the approval
// verdict are rejected.
func EventFromPullRequest(event *github.PullRequestEvent) (*GitHubEvent, error) {
	if !slices.Contains(checkedActions, event.GetAction()) {
		return nil, fmt.Errorf("pull request action %q does not affect approvals", event.GetAction())
	}
	return eventFromPR(event.GetRepo(), event.GetPullRequest(), event.GetAction(), event.GetInstallation())
}

// EventFromPullRequestReview transforms a raw GitHub PullRequestReviewEvent.
// Both submitted and dismissed reviews trigger a re-evaluation; edits do not.
func EventFromPullRequestReview(event *github.PullRequestReviewEvent) (*GitHubEvent, error) {
	action := event.GetAction()
	if action != "submitted" && action != "dismissed" {
		return nil, fmt.Errorf("review action %q does not affect approvals", action)
	}
	return eventFromPR(event.GetRepo(), event.GetPullRequest(), action, event.GetInstallation())
}

func eventFromPR(repo *github.Repository, pr *github.PullRequest, action string, inst *github.Installation) (*GitHubEvent, error) {
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}
	if pr.GetNumber() <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", pr.GetNumber())
	}
	if pr.GetHead().GetSHA() == "" {
		return nil, fmt.Errorf("head SHA is missing from the event")
	}
	if inst == nil || inst.GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	return &GitHubEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		PRNumber:       pr.GetNumber(),
		PRAuthor:       pr.GetUser().GetLogin(),
		HeadSHA:        pr.GetHead().GetSHA(),
		Action:         action,
		InstallationID: inst.GetID(),
	}, nil
}
