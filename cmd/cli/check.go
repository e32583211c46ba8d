package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/merge-warden/internal/config"
	"github.com/sevigo/merge-warden/internal/gate"
	"github.com/sevigo/merge-warden/internal/github"
	"github.com/sevigo/merge-warden/internal/gitutil"
	"github.com/sevigo/merge-warden/internal/logger"
	"github.com/sevigo/merge-warden/internal/policy"
	"github.com/sevigo/merge-warden/internal/report"
)

var checkCmd = &cobra.Command{
	Use:   "check [pr-url]",
	Short: "Evaluate a pull request against the approval policy",
	Long: `Evaluate a pull request's reviews against the approval policy.

The pull request is identified either by a URL argument or by the
GITHUB_REPOSITORY and PR_NUMBER environment variables. The process exits
with 0 when the policy is satisfied, 1 when it is not, and 2 when the
policy could not be evaluated at all.

Examples:
  warden check https://github.com/owner/repo/pull/123
  GITHUB_REPOSITORY=owner/repo PR_NUMBER=123 warden check`,
	Args: cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		os.Exit(runCheck(args))
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(checkCmd)
}

// runCheck performs one complete evaluation and returns the process exit
// code. Every failure before the evaluator runs is an evaluation error
// (exit 2), never a policy rejection.
func runCheck(args []string) int {
	rep := report.New(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		return rep.Error(err)
	}
	log := logger.New(cfg.Log, nil)

	if len(args) == 1 {
		owner, repo, number, err := gitutil.ParsePullRequestURL(args[0])
		if err != nil {
			return rep.Error(err)
		}
		cfg.GitHub.Repository = owner + "/" + repo
		cfg.Check.PRNumber = number
	}
	if err := cfg.ValidateCheck(); err != nil {
		return rep.Error(err)
	}
	owner, repo, err := cfg.SplitRepository()
	if err != nil {
		return rep.Error(err)
	}

	pol, err := loadPolicy(cfg, log)
	if err != nil {
		return rep.Error(err)
	}

	// A bounded overall deadline so a hanging API call cannot hang CI.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Check.Timeout)
	defer cancel()

	client := github.NewPATClient(ctx, cfg.GitHub.Token, cfg.Check.Retries, log)

	data, err := github.FetchPRData(ctx, client, owner, repo, cfg.Check.PRNumber, pol.ExcludesCommitters())
	if err != nil {
		return rep.Error(err)
	}

	log.Info("evaluating approval policy",
		"repo", cfg.GitHub.Repository,
		"pr", cfg.Check.PRNumber,
		"head_sha", data.PullRequest.HeadSHA,
		"reviews", len(data.Reviews),
	)

	verdict, err := gate.New(client, log).Evaluate(ctx, data.PullRequest, data.Reviews, data.Committers, pol)
	if err != nil {
		return rep.Error(err)
	}
	return rep.Verdict(verdict)
}

// loadPolicy reads the policy file from the working tree; CI checkouts have
// the repository's .merge-warden.yml on disk. A missing file selects the
// default policy.
func loadPolicy(cfg *config.Config, log *slog.Logger) (*policy.Policy, error) {
	pol, err := policy.Load(cfg.Check.PolicyPath)
	if err != nil {
		if errors.Is(err, policy.ErrPolicyNotFound) {
			log.Info("no policy file found, using default policy", "path", cfg.Check.PolicyPath)
			return policy.Default(), nil
		}
		return nil, err
	}
	return pol, nil
}
