package github

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/merge-warden/internal/core"
)

// PRData bundles everything the evaluator needs about one pull request.
type PRData struct {
	PullRequest core.PullRequestSnapshot
	Reviews     []core.Review
	Committers  []string
}

// FetchPRData retrieves the pull request snapshot, its reviews, and
// optionally its committers. The calls target independent resources, so
// they are issued concurrently and joined; the first error cancels the
// rest.
func FetchPRData(ctx context.Context, client Client, owner, repo string, number int, includeCommitters bool) (*PRData, error) {
	data := &PRData{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pr, err := client.GetPullRequest(ctx, owner, repo, number)
		if err != nil {
			return err
		}
		data.PullRequest = *pr
		return nil
	})
	g.Go(func() error {
		reviews, err := client.ListReviews(ctx, owner, repo, number)
		if err != nil {
			return err
		}
		data.Reviews = reviews
		return nil
	})
	if includeCommitters {
		g.Go(func() error {
			committers, err := client.ListCommitters(ctx, owner, repo, number)
			if err != nil {
				return err
			}
			data.Committers = committers
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
