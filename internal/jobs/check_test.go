package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	gh "github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/merge-warden/internal/config"
	"github.com/sevigo/merge-warden/internal/core"
	"github.com/sevigo/merge-warden/internal/github"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeClient serves canned PR data and records the check runs posted back.
type fakeClient struct {
	pr         core.PullRequestSnapshot
	reviews    []core.Review
	committers []string
	policyYAML []byte

	fetchErr error

	createdCheck *gh.CreateCheckRunOptions
	updatedCheck *gh.UpdateCheckRunOptions
}

func (f *fakeClient) GetPullRequest(_ context.Context, _, _ string, _ int) (*core.PullRequestSnapshot, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	pr := f.pr
	return &pr, nil
}

func (f *fakeClient) ListReviews(_ context.Context, _, _ string, _ int) ([]core.Review, error) {
	return f.reviews, nil
}

func (f *fakeClient) ListCommitters(_ context.Context, _, _ string, _ int) ([]string, error) {
	return f.committers, nil
}

func (f *fakeClient) GetFileContent(_ context.Context, _, _, _, _ string) ([]byte, error) {
	if f.policyYAML == nil {
		return nil, fmt.Errorf("%w: no policy file", core.ErrNotFound)
	}
	return f.policyYAML, nil
}

func (f *fakeClient) TeamMembers(_ context.Context, _, _ string) ([]string, error) {
	return nil, fmt.Errorf("no teams in test")
}

func (f *fakeClient) CreateCheckRun(_ context.Context, _, _ string, opts gh.CreateCheckRunOptions) (*gh.CheckRun, error) {
	f.createdCheck = &opts
	return &gh.CheckRun{ID: gh.Ptr(int64(1))}, nil
}

func (f *fakeClient) UpdateCheckRun(_ context.Context, _, _ string, _ int64, opts gh.UpdateCheckRunOptions) (*gh.CheckRun, error) {
	f.updatedCheck = &opts
	return &gh.CheckRun{}, nil
}

type fakeFactory struct {
	client github.Client
}

func (f *fakeFactory) InstallationClient(_ context.Context, _ int64) (github.Client, error) {
	return f.client, nil
}

func checkConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Check.PolicyPath = ".merge-warden.yml"
	cfg.Check.Timeout = 10 * time.Second
	return cfg
}

func checkEvent() *core.GitHubEvent {
	return &core.GitHubEvent{
		RepoOwner:      "sevigo",
		RepoName:       "demo",
		RepoFullName:   "sevigo/demo",
		PRNumber:       7,
		HeadSHA:        "abc123",
		InstallationID: 55,
	}
}

func TestCheckJobPostsSuccessVerdict(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeClient{
		pr: core.PullRequestSnapshot{
			RepoOwner: "sevigo", RepoName: "demo", Number: 7,
			Author: "dave", HeadSHA: "abc123",
		},
		reviews: []core.Review{
			{Reviewer: "alice", State: core.ReviewApproved, SubmittedAt: now, CommitSHA: "abc123"},
			{Reviewer: "bob", State: core.ReviewApproved, SubmittedAt: now, CommitSHA: "abc123"},
		},
		policyYAML: []byte("min_approvals: 2\n"),
	}

	job := NewCheckJob(checkConfig(), &fakeFactory{client: fake}, testLogger)
	require.NoError(t, job.Run(context.Background(), checkEvent()))

	require.NotNil(t, fake.createdCheck, "a check run must be opened")
	require.NotNil(t, fake.updatedCheck, "the check run must be completed")
	assert.Equal(t, github.ConclusionApproved, fake.updatedCheck.GetConclusion())
}

func TestCheckJobPostsFailureVerdictWithReasons(t *testing.T) {
	fake := &fakeClient{
		pr: core.PullRequestSnapshot{
			RepoOwner: "sevigo", RepoName: "demo", Number: 7,
			Author: "dave", HeadSHA: "abc123",
		},
		policyYAML: []byte("min_approvals: 1\n"),
	}

	job := NewCheckJob(checkConfig(), &fakeFactory{client: fake}, testLogger)
	require.NoError(t, job.Run(context.Background(), checkEvent()))

	require.NotNil(t, fake.updatedCheck)
	assert.Equal(t, github.ConclusionRejected, fake.updatedCheck.GetConclusion())
	assert.Contains(t, fake.updatedCheck.GetOutput().GetSummary(), "no approvals")
}

func TestCheckJobFallsBackToDefaultPolicy(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeClient{
		pr: core.PullRequestSnapshot{
			RepoOwner: "sevigo", RepoName: "demo", Number: 7,
			Author: "dave", HeadSHA: "abc123",
		},
		reviews: []core.Review{
			{Reviewer: "alice", State: core.ReviewApproved, SubmittedAt: now, CommitSHA: "abc123"},
		},
		// No policy file in the repository: the default (one approval) applies.
		policyYAML: nil,
	}

	job := NewCheckJob(checkConfig(), &fakeFactory{client: fake}, testLogger)
	require.NoError(t, job.Run(context.Background(), checkEvent()))

	require.NotNil(t, fake.updatedCheck)
	assert.Equal(t, github.ConclusionApproved, fake.updatedCheck.GetConclusion())
}

func TestCheckJobReportsEvaluationErrors(t *testing.T) {
	fake := &fakeClient{
		fetchErr:   fmt.Errorf("%w: boom", core.ErrTransient),
		policyYAML: []byte("min_approvals: 1\n"),
	}

	job := NewCheckJob(checkConfig(), &fakeFactory{client: fake}, testLogger)
	err := job.Run(context.Background(), checkEvent())
	require.Error(t, err)

	require.NotNil(t, fake.updatedCheck)
	assert.Equal(t, github.ConclusionError, fake.updatedCheck.GetConclusion(),
		"a failed evaluation must never conclude as a policy pass or fail")
}
