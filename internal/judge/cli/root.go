// Package cli wires the judge pipeline stages into cobra commands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/judge/internal/judge/bundle"
	"github.com/build-flow-labs/judge/internal/judge/config"
)

// Persistent flags shared by every command.
var (
	configPath string
	reportsDir string
	logLevel   string
)

// Target flags selecting one team's pull request.
var (
	targetTeam string
	targetPR   int
	targetDir  string
)

// Attach registers the judge commands and persistent flags on root.
func Attach(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.DefaultFile+" when present)")
	root.PersistentFlags().StringVar(&reportsDir, "reports-dir", "", "Root directory of per-team report bundles (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")

	root.AddCommand(scoreCmd)
	root.AddCommand(reportCmd)
	root.AddCommand(indexCmd)
	root.AddCommand(commentCmd)
	root.AddCommand(runCmd)
	root.AddCommand(serveCmd)
	root.AddCommand(configCmd)
	root.AddCommand(vulnCmd)
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&targetTeam, "team", "", "Team name")
	cmd.Flags().IntVar(&targetPR, "pr", 0, "Pull request number")
	cmd.Flags().StringVar(&targetDir, "dir", "", "PR directory (default <reports-dir>/<team-slug>/pr-<n>)")
}

// env is the per-invocation runtime: effective config and logger.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if reportsDir != "" {
		cfg.ReportsDir = reportsDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	return &env{cfg: cfg, logger: logger}, nil
}

// prDir resolves the target PR directory from --dir or --team/--pr.
func (e *env) prDir() (string, error) {
	if targetDir != "" {
		return targetDir, nil
	}
	if targetTeam == "" {
		return "", errors.New("--team is required when --dir is not set")
	}
	if targetPR <= 0 {
		return "", fmt.Errorf("--pr must be a positive pull request number, got %d", targetPR)
	}
	return bundle.Dir(e.cfg.ReportsDir, targetTeam, targetPR), nil
}

// loadBundle reads the target bundle, applying --team and --pr over the
// values recorded in the directory.
func (e *env) loadBundle() (*bundle.Bundle, error) {
	dir, err := e.prDir()
	if err != nil {
		return nil, err
	}
	b, err := bundle.Load(dir, e.logger)
	if err != nil {
		return nil, err
	}
	if targetTeam != "" {
		b.Team = targetTeam
	}
	if targetPR > 0 {
		b.PRNumber = targetPR
	}
	if len(b.Missing) > 0 {
		e.logger.Debug("artifacts missing", "dir", dir, "files", b.Missing)
	}
	return b, nil
}
