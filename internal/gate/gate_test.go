package gate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/merge-warden/internal/core"
	"github.com/sevigo/merge-warden/internal/policy"
)

const headSHA = "abcdef1234567890"

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// stubTeamResolver resolves teams from a fixed map, failing for unknown slugs.
type stubTeamResolver struct {
	members map[string][]string
}

func (s *stubTeamResolver) TeamMembers(_ context.Context, _, slug string) ([]string, error) {
	members, ok := s.members[slug]
	if !ok {
		return nil, fmt.Errorf("unknown team %q", slug)
	}
	return members, nil
}

func approval(reviewer, sha string, at time.Time) core.Review {
	return core.Review{Reviewer: reviewer, State: core.ReviewApproved, SubmittedAt: at, CommitSHA: sha}
}

func snapshot(author string) core.PullRequestSnapshot {
	return core.PullRequestSnapshot{
		RepoOwner: "sevigo",
		RepoName:  "merge-warden",
		Number:    42,
		Author:    author,
		HeadSHA:   headSHA,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestCollapseReviews(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	reviews := []core.Review{
		approval("alice", headSHA, base),
		{Reviewer: "alice", State: core.ReviewChangesRequested, SubmittedAt: base.Add(time.Hour), CommitSHA: headSHA},
		approval("Bob", headSHA, base),
		{Reviewer: "carol", State: core.ReviewCommented, SubmittedAt: base, CommitSHA: headSHA},
	}

	effective := CollapseReviews(reviews)

	require.Len(t, effective, 3)
	assert.Equal(t, core.ReviewChangesRequested, effective["alice"].State, "later review must supersede the approval")
	assert.Equal(t, core.ReviewApproved, effective["bob"].State, "logins are case-insensitive")
	assert.Equal(t, core.ReviewCommented, effective["carol"].State)
}

func TestCollapseReviewsIsIdempotent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reviews := []core.Review{
		approval("alice", "old-sha", base),
		approval("alice", headSHA, base.Add(time.Minute)),
		{Reviewer: "bob", State: core.ReviewDismissed, SubmittedAt: base.Add(2 * time.Minute), CommitSHA: headSHA},
		approval("bob", headSHA, base),
	}

	once := CollapseReviews(reviews)

	flattened := make([]core.Review, 0, len(once))
	for _, r := range once {
		flattened = append(flattened, r)
	}
	twice := CollapseReviews(flattened)

	assert.Equal(t, once, twice, "re-collapsing an already collapsed set must change nothing")
}

func TestEvaluate(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		pr            core.PullRequestSnapshot
		reviews       []core.Review
		committers    []string
		policy        *policy.Policy
		wantSatisfied bool
		wantReasons   []string
	}{
		{
			name: "two fresh approvals satisfy minimum of two",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
				approval("bob", headSHA, base.Add(time.Minute)),
			},
			policy:        &policy.Policy{MinApprovals: 2},
			wantSatisfied: true,
		},
		{
			name: "stale approval does not count when staleness enabled",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
				approval("bob", "older-sha", base.Add(time.Minute)),
			},
			policy:        &policy.Policy{MinApprovals: 2},
			wantSatisfied: false,
			wantReasons:   []string{"1 of 2 required approvals"},
		},
		{
			name: "stale approval counts when staleness disabled",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
				approval("bob", "older-sha", base.Add(time.Minute)),
			},
			policy:        &policy.Policy{MinApprovals: 2, DismissStale: boolPtr(false)},
			wantSatisfied: true,
		},
		{
			name: "later changes-requested supersedes an approval",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
				{Reviewer: "alice", State: core.ReviewChangesRequested, SubmittedAt: base.Add(time.Hour), CommitSHA: headSHA},
			},
			policy:        &policy.Policy{MinApprovals: 1},
			wantSatisfied: false,
			wantReasons:   []string{ReasonNoApprovals},
		},
		{
			name: "dismissal supersedes an approval",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
				{Reviewer: "alice", State: core.ReviewDismissed, SubmittedAt: base.Add(time.Hour), CommitSHA: headSHA},
			},
			policy:        &policy.Policy{MinApprovals: 1},
			wantSatisfied: false,
			wantReasons:   []string{ReasonNoApprovals},
		},
		{
			name:          "self-approval never counts",
			pr:            snapshot("alice"),
			reviews:       []core.Review{approval("alice", headSHA, base)},
			policy:        &policy.Policy{MinApprovals: 1},
			wantSatisfied: false,
			wantReasons:   []string{ReasonNoApprovals},
		},
		{
			name:          "self-approval counts when author exclusion disabled",
			pr:            snapshot("alice"),
			reviews:       []core.Review{approval("alice", headSHA, base)},
			policy:        &policy.Policy{MinApprovals: 1, ExcludeAuthor: boolPtr(false)},
			wantSatisfied: true,
		},
		{
			name:          "empty review list reports no approvals",
			pr:            snapshot("dave"),
			reviews:       nil,
			policy:        &policy.Policy{MinApprovals: 2, RequiredApprovers: []string{"alice"}},
			wantSatisfied: false,
			wantReasons: []string{
				`required approver "alice" has not approved`,
				ReasonNoApprovals,
			},
		},
		{
			name: "approval from a committer does not count",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
				approval("bob", headSHA, base),
			},
			committers:    []string{"bob"},
			policy:        &policy.Policy{MinApprovals: 2},
			wantSatisfied: false,
			wantReasons:   []string{"1 of 2 required approvals"},
		},
		{
			name: "committer approval counts when exclusion disabled",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
				approval("bob", headSHA, base),
			},
			committers:    []string{"bob"},
			policy:        &policy.Policy{MinApprovals: 2, ExcludeCommitters: boolPtr(false)},
			wantSatisfied: true,
		},
		{
			name: "missing required approver is reported alongside count",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("bob", headSHA, base),
			},
			policy:        &policy.Policy{MinApprovals: 2, RequiredApprovers: []string{"alice"}},
			wantSatisfied: false,
			wantReasons: []string{
				`required approver "alice" has not approved`,
				"1 of 2 required approvals",
			},
		},
		{
			name: "team requirement satisfied by one member",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("carol", headSHA, base),
			},
			policy:        &policy.Policy{MinApprovals: 1, RequiredTeams: []string{"platform"}},
			wantSatisfied: true,
		},
		{
			name: "team requirement unmet",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
			},
			policy:        &policy.Policy{MinApprovals: 1, RequiredTeams: []string{"platform"}},
			wantSatisfied: false,
			wantReasons:   []string{`no approving review from a member of team "platform"`},
		},
		{
			name: "restrict_to_listed ignores outside approvals for the count",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
				approval("outsider", headSHA, base),
			},
			policy: &policy.Policy{
				MinApprovals:      2,
				RequiredApprovers: []string{"alice", "bob"},
				RestrictToListed:  true,
			},
			wantSatisfied: false,
			wantReasons: []string{
				`required approver "bob" has not approved`,
				"1 of 2 required approvals",
			},
		},
		{
			name: "outside approvals count toward minimum by default",
			pr:   snapshot("dave"),
			reviews: []core.Review{
				approval("alice", headSHA, base),
				approval("outsider", headSHA, base),
			},
			policy: &policy.Policy{
				MinApprovals:      2,
				RequiredApprovers: []string{"alice"},
			},
			wantSatisfied: true,
		},
	}

	resolver := &stubTeamResolver{members: map[string][]string{
		"platform": {"carol", "erin"},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluator := New(resolver, testLogger)
			verdict, err := evaluator.Evaluate(context.Background(), tt.pr, tt.reviews, tt.committers, tt.policy)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSatisfied, verdict.Satisfied)
			assert.Equal(t, tt.wantReasons, verdict.Reasons)
			if verdict.Satisfied {
				assert.Empty(t, verdict.Reasons, "reasons must be empty iff satisfied")
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pr := snapshot("dave")
	reviews := []core.Review{
		approval("alice", headSHA, base),
		{Reviewer: "bob", State: core.ReviewChangesRequested, SubmittedAt: base, CommitSHA: headSHA},
	}
	pol := &policy.Policy{MinApprovals: 3, RequiredApprovers: []string{"Zed", "bob", "alice"}}

	evaluator := New(nil, testLogger)
	first, err := evaluator.Evaluate(context.Background(), pr, reviews, nil, pol)
	require.NoError(t, err)
	second, err := evaluator.Evaluate(context.Background(), pr, reviews, nil, pol)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must yield identical verdicts")
}

func TestEvaluateTeamResolutionFailure(t *testing.T) {
	pol := &policy.Policy{MinApprovals: 1, RequiredTeams: []string{"ghosts"}}
	evaluator := New(&stubTeamResolver{}, testLogger)

	_, err := evaluator.Evaluate(context.Background(), snapshot("dave"), nil, nil, pol)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghosts")
}

func TestEvaluateWithoutResolverAndTeams(t *testing.T) {
	pol := &policy.Policy{MinApprovals: 1, RequiredTeams: []string{"platform"}}
	evaluator := New(nil, testLogger)

	_, err := evaluator.Evaluate(context.Background(), snapshot("dave"), nil, nil, pol)
	require.Error(t, err, "naming teams without a resolver must fail, not silently pass")
}
