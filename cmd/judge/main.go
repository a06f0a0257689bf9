package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/judge/internal/judge/cli"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "judge",
	Short: "Score, report and comment on hackathon pull requests",
	Long: `Judge turns the analysis artifacts of a hackathon pull request into a
weighted score, a per-team HTML report, a cross-team leaderboard and a
pull-request comment with prioritised action items.

Artifacts live in <reports-dir>/<team-slug>/pr-<n>/ and are written by the
judge workflow (tests, SonarCloud, Trivy, Lighthouse, commit analysis).`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	cli.Attach(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
