package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	githubToken string
	policyPath  string
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "warden gates pull-request merges on an approval policy.",
	Long: `warden evaluates a pull request's reviews against an organization-defined
approval policy and reports a pass/fail verdict through its exit code,
making it suitable as a required CI check.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub Token")
	rootCmd.PersistentFlags().StringVarP(&policyPath, "policy", "p", "", "Path to the approval policy file")

	if err := viper.BindPFlag("GITHUB_TOKEN", rootCmd.PersistentFlags().Lookup("github-token")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("POLICY_PATH", rootCmd.PersistentFlags().Lookup("policy")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in ENV variables if set. The trigger contract
// (GITHUB_TOKEN, GITHUB_REPOSITORY, PR_NUMBER) is environment-supplied by
// the surrounding CI system, so keys are read unprefixed.
func initConfig() {
	viper.AutomaticEnv()
}
