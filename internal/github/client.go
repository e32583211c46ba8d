// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/merge-warden/internal/core"
)

// Client defines the read and report operations the approval gate needs from
// GitHub. All methods return errors classified into the core taxonomy, and
// transient failures are retried with bounded backoff before they surface.
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*core.PullRequestSnapshot, error)
	ListReviews(ctx context.Context, owner, repo string, number int) ([]core.Review, error)
	ListCommitters(ctx context.Context, owner, repo string, number int) ([]string, error)
	GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
	TeamMembers(ctx context.Context, org, slug string) ([]string, error)
	CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error)
	UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, error)
}

type gitHubClient struct {
	client  *github.Client
	retries int
	logger  *slog.Logger
}

// NewClient wraps an already-authenticated go-github client behind the
// application's Client interface. retries bounds the attempts made for
// transient failures; zero selects the default.
func NewClient(client *github.Client, retries int, logger *slog.Logger) Client {
	if retries <= 0 {
		retries = defaultAttempts
	}
	return &gitHubClient{client: client, retries: retries, logger: logger}
}

// NewPATClient creates a client authenticated with a Personal Access Token.
// This is the path CI invocations take: the token arrives via GITHUB_TOKEN.
func NewPATClient(ctx context.Context, token string, retries int, logger *slog.Logger) Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return NewClient(github.NewClient(tc), retries, logger)
}

// GetPullRequest retrieves an immutable snapshot of a single pull request.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*core.PullRequestSnapshot, error) {
	op := fmt.Sprintf("get pull request %s/%s#%d", owner, repo, number)
	pr, err := withRetry(ctx, g.logger, g.retries, op, func() (*github.PullRequest, error) {
		pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
		return pr, classify(op, err)
	})
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	return snapshotFromPullRequest(owner, repo, pr)
}

// ListReviews retrieves all reviews on a pull request in submission order,
// following pagination.
func (g *gitHubClient) ListReviews(ctx context.Context, owner, repo string, number int) ([]core.Review, error) {
	op := fmt.Sprintf("list reviews %s/%s#%d", owner, repo, number)
	var all []core.Review
	opts := &github.ListOptions{PerPage: 100}

	for {
		reviews, resp, err := withRetryResp(ctx, g.logger, g.retries, op, func() ([]*github.PullRequestReview, *github.Response, error) {
			reviews, resp, err := g.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
			return reviews, resp, classify(op, err)
		})
		if err != nil {
			g.logger.Error("failed to list reviews", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}
		for _, r := range reviews {
			review, ok := reviewFromGitHub(r)
			if !ok {
				g.logger.Debug("skipping review without reviewer or state", "owner", owner, "repo", repo, "pr", number)
				continue
			}
			all = append(all, review)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListCommitters retrieves the distinct author and committer logins of every
// commit on a pull request, following pagination.
func (g *gitHubClient) ListCommitters(ctx context.Context, owner, repo string, number int) ([]string, error) {
	op := fmt.Sprintf("list commits %s/%s#%d", owner, repo, number)
	seen := make(map[string]bool)
	var logins []string
	opts := &github.ListOptions{PerPage: 100}

	for {
		commits, resp, err := withRetryResp(ctx, g.logger, g.retries, op, func() ([]*github.RepositoryCommit, *github.Response, error) {
			commits, resp, err := g.client.PullRequests.ListCommits(ctx, owner, repo, number, opts)
			return commits, resp, classify(op, err)
		})
		if err != nil {
			g.logger.Error("failed to list commits", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}
		for _, c := range commits {
			for _, login := range []string{c.GetAuthor().GetLogin(), c.GetCommitter().GetLogin()} {
				if login != "" && !seen[login] {
					seen[login] = true
					logins = append(logins, login)
				}
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return logins, nil
}

// GetFileContent retrieves a file from the repository at the given ref.
func (g *gitHubClient) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	op := fmt.Sprintf("get contents %s/%s:%s@%s", owner, repo, path, ref)
	file, err := withRetry(ctx, g.logger, g.retries, op, func() (*github.RepositoryContent, error) {
		file, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path,
			&github.RepositoryContentGetOptions{Ref: ref})
		return file, classify(op, err)
	})
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s is not a file", core.ErrNotFound, path)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", core.ErrTransient, path, err)
	}
	return []byte(content), nil
}

// TeamMembers retrieves the member logins of an organization team by slug.
func (g *gitHubClient) TeamMembers(ctx context.Context, org, slug string) ([]string, error) {
	op := fmt.Sprintf("list members of team %s/%s", org, slug)
	var logins []string
	opts := &github.TeamListTeamMembersOptions{ListOptions: github.ListOptions{PerPage: 100}}

	for {
		members, resp, err := withRetryResp(ctx, g.logger, g.retries, op, func() ([]*github.User, *github.Response, error) {
			members, resp, err := g.client.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
			return members, resp, classify(op, err)
		})
		if err != nil {
			g.logger.Error("failed to list team members", "org", org, "team", slug, "error", err)
			return nil, err
		}
		for _, m := range members {
			if login := m.GetLogin(); login != "" {
				logins = append(logins, login)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return logins, nil
}

// CreateCheckRun creates a new check run.
func (g *gitHubClient) CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error) {
	op := fmt.Sprintf("create check run %s/%s", owner, repo)
	checkRun, err := withRetry(ctx, g.logger, g.retries, op, func() (*github.CheckRun, error) {
		checkRun, _, err := g.client.Checks.CreateCheckRun(ctx, owner, repo, opts)
		return checkRun, classify(op, err)
	})
	if err != nil {
		g.logger.Error("failed to create check run", "owner", owner, "repo", repo, "error", err)
		return nil, err
	}
	return checkRun, nil
}

// UpdateCheckRun updates an existing check run.
func (g *gitHubClient) UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, opts github.UpdateCheckRunOptions) (*github.CheckRun, error) {
	op := fmt.Sprintf("update check run %s/%s/%d", owner, repo, checkRunID)
	checkRun, err := withRetry(ctx, g.logger, g.retries, op, func() (*github.CheckRun, error) {
		checkRun, _, err := g.client.Checks.UpdateCheckRun(ctx, owner, repo, checkRunID, opts)
		return checkRun, classify(op, err)
	})
	if err != nil {
		g.logger.Error("failed to update check run", "owner", owner, "repo", repo, "checkRunID", checkRunID, "error", err)
		return nil, err
	}
	return checkRun, nil
}

// snapshotFromPullRequest maps the loosely-typed API payload into the
// validated snapshot the evaluator consumes.
func snapshotFromPullRequest(owner, repo string, pr *github.PullRequest) (*core.PullRequestSnapshot, error) {
	if pr == nil || pr.GetNumber() == 0 {
		return nil, fmt.Errorf("%w: pull request payload is missing a number", core.ErrTransient)
	}
	if pr.GetHead().GetSHA() == "" {
		return nil, fmt.Errorf("%w: pull request %d payload is missing a head SHA", core.ErrTransient, pr.GetNumber())
	}

	var reviewers []string
	for _, u := range pr.RequestedReviewers {
		if login := u.GetLogin(); login != "" {
			reviewers = append(reviewers, login)
		}
	}

	return &core.PullRequestSnapshot{
		RepoOwner:          owner,
		RepoName:           repo,
		Number:             pr.GetNumber(),
		Author:             pr.GetUser().GetLogin(),
		HeadSHA:            pr.GetHead().GetSHA(),
		RequestedReviewers: reviewers,
		CreatedAt:          pr.GetCreatedAt().Time,
		UpdatedAt:          pr.GetUpdatedAt().Time,
	}, nil
}

// reviewFromGitHub maps a raw review. Reviews without a reviewer login or a
// recognizable state (e.g. "PENDING" drafts) carry no approval signal and
// are dropped.
func reviewFromGitHub(r *github.PullRequestReview) (core.Review, bool) {
	login := r.GetUser().GetLogin()
	if login == "" {
		return core.Review{}, false
	}
	var state core.ReviewState
	switch r.GetState() {
	case "APPROVED":
		state = core.ReviewApproved
	case "CHANGES_REQUESTED":
		state = core.ReviewChangesRequested
	case "COMMENTED":
		state = core.ReviewCommented
	case "DISMISSED":
		state = core.ReviewDismissed
	default:
		return core.Review{}, false
	}
	return core.Review{
		Reviewer:    login,
		State:       state,
		SubmittedAt: r.GetSubmittedAt().Time,
		CommitSHA:   r.GetCommitID(),
	}, true
}
