package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/judge/internal/judge/score"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage for one pull request",
	Long: `Runs the full pipeline for one pull request:

  1. score    aggregate component scores into score-breakdown.json
  2. report   render report-<team-slug>.html
  3. index    rebuild <reports-dir>/index.html
  4. comment  write pr-comment.md, or post it with --post

When no score source is given, an existing score-breakdown.json is reused.`,
	Example: `  judge run --team "Team Rocket" --pr 7 --inputs scores.json --stack node --post`,
	RunE:    runAll,
}

func init() {
	addTargetFlags(runCmd)
	addScoreFlags(runCmd)
	addCommentFlags(runCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	dir, err := e.prDir()
	if err != nil {
		return err
	}

	b, err := e.computeScore(dir)
	if err != nil {
		return err
	}
	if b != nil {
		if _, err := score.Save(dir, b); err != nil {
			return err
		}
	} else if _, err := os.Stat(filepath.Join(dir, score.BreakdownFile)); errors.Is(err, fs.ErrNotExist) {
		return errNoScores
	}

	bun, err := e.loadBundle()
	if err != nil {
		return err
	}
	if bun.Breakdown == nil {
		return fmt.Errorf("unusable %s in %s", score.BreakdownFile, dir)
	}

	out := cmd.OutOrStdout()
	printBreakdown(out, bun.Breakdown)

	reportPath, err := e.writeReport(bun)
	if err != nil {
		return err
	}
	_, indexPath, err := e.writeIndex(true)
	if err != nil {
		return err
	}

	body, err := e.renderComment(bun)
	if err != nil {
		return err
	}
	commentPath, err := writeComment(bun.Dir, body)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Report:  %s\n", reportPath)
	fmt.Fprintf(out, "Index:   %s\n", indexPath)
	fmt.Fprintf(out, "Comment: %s\n", commentPath)

	if commentPost {
		res, err := e.postComment(cmd.Context(), bun, body)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Posted:  %s\n", res.URL)
	}
	return nil
}
