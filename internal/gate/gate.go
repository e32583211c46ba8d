// Package gate implements the approval policy evaluator: it collapses raw
// review data into one effective state per reviewer and checks the result
// against a policy, producing a pass/fail verdict with a reason for every
// unmet requirement.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sevigo/merge-warden/internal/core"
	"github.com/sevigo/merge-warden/internal/policy"
)

// ReasonNoApprovals is the fixed reason emitted when a pull request has no
// effective approvals at all.
const ReasonNoApprovals = "no approvals"

// TeamResolver maps a team slug to its member logins. Resolution is an
// external directory capability; it is injected so the evaluator stays
// deterministic under test.
type TeamResolver interface {
	TeamMembers(ctx context.Context, org, slug string) ([]string, error)
}

// Evaluator checks pull request snapshots against an approval policy.
type Evaluator struct {
	teams  TeamResolver
	logger *slog.Logger
}

// New creates an Evaluator. The resolver may be nil if no policy in use
// names required teams.
func New(teams TeamResolver, logger *slog.Logger) *Evaluator {
	return &Evaluator{teams: teams, logger: logger}
}

// CollapseReviews reduces a review sequence to one effective review per
// reviewer: the latest by submission time wins, superseding everything the
// reviewer submitted before, including dismissals of earlier approvals.
// The operation is idempotent.
func CollapseReviews(reviews []core.Review) map[string]core.Review {
	effective := make(map[string]core.Review, len(reviews))
	for _, r := range reviews {
		login := normalize(r.Reviewer)
		if login == "" {
			continue
		}
		if prev, ok := effective[login]; ok && !r.SubmittedAt.After(prev.SubmittedAt) {
			continue
		}
		effective[login] = r
	}
	return effective
}

// Evaluate produces a verdict for the snapshot given its reviews, the set of
// users who committed to the PR, and the policy. It is deterministic: given
// identical inputs and team data it always returns the identical verdict.
// The only error source is team membership resolution.
func (e *Evaluator) Evaluate(ctx context.Context, pr core.PullRequestSnapshot, reviews []core.Review, committers []string, pol *policy.Policy) (core.Verdict, error) {
	effective := CollapseReviews(reviews)
	approved := e.approvedSet(pr, effective, committers, pol)

	members, err := e.resolveTeams(ctx, pr.RepoOwner, pol)
	if err != nil {
		return core.Verdict{}, err
	}

	var reasons []string

	// Requirement A: every named individual, and at least one member of
	// every named team, must appear in the approved set.
	for _, login := range sortedNormalized(pol.RequiredApprovers) {
		if !approved[login] {
			reasons = append(reasons, fmt.Sprintf("required approver %q has not approved", login))
		}
	}
	for _, team := range pol.RequiredTeams {
		if !anyApproved(approved, members[normalize(team)]) {
			reasons = append(reasons, fmt.Sprintf("no approving review from a member of team %q", team))
		}
	}

	// Requirement B: enough distinct approvers. With an exhaustive required
	// set, only listed individuals and team members count toward the total.
	countable := len(approved)
	if pol.RestrictToListed {
		countable = countListed(approved, pol, members)
	}
	if countable < pol.MinApprovals {
		if len(approved) == 0 {
			reasons = append(reasons, ReasonNoApprovals)
		} else {
			reasons = append(reasons, fmt.Sprintf("%d of %d required approvals", countable, pol.MinApprovals))
		}
	}

	return core.Verdict{Satisfied: len(reasons) == 0, Reasons: reasons}, nil
}

// approvedSet filters effective reviews down to the logins whose approval
// counts under the policy's staleness and exclusion rules.
func (e *Evaluator) approvedSet(pr core.PullRequestSnapshot, effective map[string]core.Review, committers []string, pol *policy.Policy) map[string]bool {
	committed := make(map[string]bool, len(committers))
	if pol.ExcludesCommitters() {
		for _, c := range committers {
			committed[normalize(c)] = true
		}
	}
	author := normalize(pr.Author)

	approved := make(map[string]bool)
	for login, r := range effective {
		if r.State != core.ReviewApproved {
			continue
		}
		if pol.DismissesStale() && r.CommitSHA != pr.HeadSHA {
			e.logger.Debug("discarding stale approval", "reviewer", login, "reviewed_sha", r.CommitSHA, "head_sha", pr.HeadSHA)
			continue
		}
		if pol.ExcludesAuthor() && login == author {
			e.logger.Debug("discarding self-approval", "reviewer", login)
			continue
		}
		if committed[login] {
			e.logger.Debug("discarding approval from committer", "reviewer", login)
			continue
		}
		approved[login] = true
	}
	return approved
}

// resolveTeams looks up the members of every team the policy names.
func (e *Evaluator) resolveTeams(ctx context.Context, org string, pol *policy.Policy) (map[string][]string, error) {
	if len(pol.RequiredTeams) == 0 {
		return nil, nil
	}
	if e.teams == nil {
		return nil, fmt.Errorf("policy names required teams but no team resolver is configured")
	}
	members := make(map[string][]string, len(pol.RequiredTeams))
	for _, team := range pol.RequiredTeams {
		slug := normalize(team)
		if _, ok := members[slug]; ok {
			continue
		}
		logins, err := e.teams.TeamMembers(ctx, org, slug)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve members of team %q: %w", team, err)
		}
		members[slug] = logins
	}
	return members, nil
}

func countListed(approved map[string]bool, pol *policy.Policy, members map[string][]string) int {
	listed := make(map[string]bool, len(pol.RequiredApprovers))
	for _, login := range pol.RequiredApprovers {
		listed[normalize(login)] = true
	}
	for _, logins := range members {
		for _, login := range logins {
			listed[normalize(login)] = true
		}
	}
	n := 0
	for login := range approved {
		if listed[login] {
			n++
		}
	}
	return n
}

func anyApproved(approved map[string]bool, logins []string) bool {
	for _, login := range logins {
		if approved[normalize(login)] {
			return true
		}
	}
	return false
}

func sortedNormalized(logins []string) []string {
	out := make([]string, 0, len(logins))
	seen := make(map[string]bool, len(logins))
	for _, login := range logins {
		n := normalize(login)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// normalize lowercases a login; GitHub usernames are case-insensitive.
func normalize(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
