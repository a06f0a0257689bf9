package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/judge/internal/judge/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reports directory with a live leaderboard",
	Long: `Starts an HTTP server over the reports directory:

  GET /                       live leaderboard (latest PR per team, ?all=true for every PR)
  GET /api/teams              team records as JSON (?team=, ?grade=, ?latest=)
  GET /api/teams/{team}/{pr}  one team record
  GET /health, GET /status    liveness and request counters
  GET /<team>/pr-<n>/...      generated reports and artifacts

Stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = e.cfg.Addr
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(server.Config{Addr: addr, ReportsDir: e.cfg.ReportsDir}, e.logger)
	return srv.Start(ctx)
}
