package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/judge/internal/judge/bundle"
	"github.com/build-flow-labs/judge/internal/judge/dashboard"
	"github.com/build-flow-labs/judge/internal/judge/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the HTML report of a pull request",
	Long: `Reads every analysis artifact in the PR directory and writes
report-<team-slug>.html next to them. Missing or malformed artifacts render
as "no data" sections; only an unreadable PR directory fails the command.`,
	Example: `  judge report --team "Team Rocket" --pr 7
  judge report --dir reports/team-rocket/pr-7`,
	RunE: runReport,
}

var indexAll bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the cross-team leaderboard",
	Long: `Scans <reports-dir>/<team>/pr-<n>/score-breakdown.json and writes
<reports-dir>/index.html ranking teams by overall score. By default only the
most recent pull request of each team is listed; --all lists every one.`,
	RunE: runIndex,
}

func init() {
	addTargetFlags(reportCmd)
	indexCmd.Flags().BoolVar(&indexAll, "all", false, "List every pull request instead of the latest per team")
}

func runReport(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	b, err := e.loadBundle()
	if err != nil {
		return err
	}
	path, err := e.writeReport(b)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func (e *env) writeReport(b *bundle.Bundle) (string, error) {
	r, err := report.New(report.Options{Repository: e.cfg.Repository, Ref: e.cfg.Ref})
	if err != nil {
		return "", err
	}
	path, err := r.WriteReport(b.Dir, b.Team, b)
	if err != nil {
		return "", err
	}
	e.logger.Info("report written", "path", path, "missing", len(b.Missing), "malformed", len(b.Malformed))
	return path, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	records, path, err := e.writeIndex(!indexAll)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printLeaderboard(out, records)
	fmt.Fprintf(out, "\nIndex written to %s\n", path)
	return nil
}

func (e *env) writeIndex(latest bool) ([]dashboard.TeamRecord, string, error) {
	idx := dashboard.NewIndex(e.cfg.ReportsDir, e.logger)
	if err := idx.Load(); err != nil {
		return nil, "", err
	}
	records := idx.List(dashboard.ListOptions{Latest: latest})
	path, err := dashboard.WriteIndex(e.cfg.ReportsDir, records, time.Now().UTC())
	if err != nil {
		return nil, "", err
	}
	e.logger.Info("index written", "path", path, "teams", len(records))
	return records, path, nil
}

func printLeaderboard(out io.Writer, records []dashboard.TeamRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, dashboard.NoTeams)
		return
	}
	stats := dashboard.ComputeStats(records)
	fmt.Fprintf(out, "LEADERBOARD: %d teams, average %s, %d passing\n", stats.Teams, stats.AverageText(), stats.Passing)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tTEAM\tPR\tGRADE\tSCORE\n")
	fmt.Fprintf(w, "----\t----\t--\t-----\t-----\n")
	for i, r := range records {
		fmt.Fprintf(w, "%d\t%s\t#%d\t%s\t%d\n", i+1, r.Team, r.PRNumber, r.Grade, r.OverallScore)
	}
	w.Flush()
}
