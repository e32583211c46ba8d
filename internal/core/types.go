// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import "time"

// ReviewState is the effective state of a pull request review.
type ReviewState string

const (
	ReviewApproved         ReviewState = "approved"
	ReviewChangesRequested ReviewState = "changes_requested"
	ReviewCommented        ReviewState = "commented"
	ReviewDismissed        ReviewState = "dismissed"
)

// PullRequestSnapshot is an immutable view of a pull request at the moment of
// evaluation. It is fetched once per invocation and never mutated.
type PullRequestSnapshot struct {
	RepoOwner string
	RepoName  string
	Number    int

	Author             string
	HeadSHA            string
	RequestedReviewers []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Review is a single submitted review on a pull request. Many reviews may
// exist per reviewer; only the latest one by SubmittedAt is authoritative.
type Review struct {
	Reviewer    string
	State       ReviewState
	SubmittedAt time.Time
	// CommitSHA is the head commit the review was submitted against.
	CommitSHA string
}

// Verdict is the outcome of evaluating a pull request against a policy.
// Reasons is empty if and only if Satisfied is true; otherwise it enumerates
// every unmet requirement in a deterministic order.
type Verdict struct {
	Satisfied bool
	Reasons   []string
}
