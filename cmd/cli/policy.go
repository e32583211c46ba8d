package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/merge-warden/internal/policy"
)

var (
	okColor   = color.New(color.FgGreen)
	dimColor  = color.New(color.FgHiBlack)
	boldColor = color.New(color.Bold)
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect approval policy files",
}

var policyLintCmd = &cobra.Command{
	Use:   "lint <path>",
	Short: "Validate an approval policy file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyLint,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	policyCmd.AddCommand(policyLintCmd)
	rootCmd.AddCommand(policyCmd)
}

func runPolicyLint(_ *cobra.Command, args []string) error {
	pol, err := policy.Load(args[0])
	if err != nil {
		return fmt.Errorf("policy is invalid: %w", err)
	}

	okColor.Printf("✓ %s is a valid policy\n", args[0])
	boldColor.Printf("  minimum approvals: %d\n", pol.MinApprovals)
	if len(pol.RequiredApprovers) > 0 {
		boldColor.Printf("  required approvers: %v\n", pol.RequiredApprovers)
	}
	if len(pol.RequiredTeams) > 0 {
		boldColor.Printf("  required teams: %v\n", pol.RequiredTeams)
	}
	dimColor.Printf("  restrict to listed: %t, dismiss stale: %t, exclude author: %t, exclude committers: %t\n",
		pol.RestrictToListed, pol.DismissesStale(), pol.ExcludesAuthor(), pol.ExcludesCommitters())
	return nil
}
