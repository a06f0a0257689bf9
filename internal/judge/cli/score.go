package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/judge/internal/judge/bundle"
	"github.com/build-flow-labs/judge/internal/judge/score"
)

var (
	scoreInputs string
	scoreJSON   bool

	// scoreValues holds the raw --<component>-score flag values.
	scoreValues = map[score.Component]*string{}
)

var errNoScores = errors.New("no component scores: pass --<component>-score flags or --inputs, or add " + score.InputsFile + " to the PR directory")

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the weighted overall score of a pull request",
	Long: `Combines the six component scores into an overall 0-100 score and letter grade
and writes score-breakdown.json into the PR directory.

Component scores come from score-inputs.json in the PR directory, the file
given with --inputs, and the --<component>-score flags, later sources winning.
Raw values are sanitized: non-digits are stripped and the result is clamped
to 0-100, so "85%" reads as 85 and an empty value as 0.

Components and default weights:
  Tests          25%
  Code Quality   30%
  Security       20%
  Frontend       10%
  Team           10%
  AI Attribution  5%`,
	Example: `  judge score --team "Team Rocket" --pr 7 --test-score 80 --sonar-score 70 --security-score 90
  judge score --dir reports/team-rocket/pr-7 --inputs scores.json --json`,
	RunE: runScore,
}

func init() {
	addTargetFlags(scoreCmd)
	addScoreFlags(scoreCmd)
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Output the breakdown as JSON")
}

func addScoreFlags(cmd *cobra.Command) {
	for _, c := range score.Components {
		v, ok := scoreValues[c]
		if !ok {
			v = new(string)
			scoreValues[c] = v
		}
		cmd.Flags().StringVar(v, string(c)+"-score", "", c.Label()+" score (0-100)")
	}
	cmd.Flags().StringVar(&scoreInputs, "inputs", "", "JSON file of raw component scores")
}

func runScore(cmd *cobra.Command, args []string) error {
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
	if b == nil {
		return errNoScores
	}

	path, err := score.Save(dir, b)
	if err != nil {
		return err
	}
	e.logger.Info("score saved", "path", path, "overall", b.OverallScore, "grade", b.Grade)

	if scoreJSON {
		out, _ := json.MarshalIndent(b, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
	printBreakdown(cmd.OutOrStdout(), b)
	return nil
}

// computeScore gathers raw scores for dir and aggregates them. It returns a
// nil breakdown when no source provided any score.
func (e *env) computeScore(dir string) (*score.Breakdown, error) {
	var s score.Scores
	found := false

	inputs := scoreInputs
	if inputs == "" {
		candidate := filepath.Join(dir, score.InputsFile)
		if _, err := os.Stat(candidate); err == nil {
			inputs = candidate
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking %s: %w", candidate, err)
		}
	}
	if inputs != "" {
		fromFile, err := score.ReadInputs(inputs)
		if err != nil {
			return nil, fmt.Errorf("reading score inputs %s: %w", inputs, err)
		}
		s = fromFile
		found = true
		e.logger.Debug("read score inputs", "path", inputs)
	}

	for _, c := range score.Components {
		if raw := *scoreValues[c]; raw != "" {
			s.Set(c, score.Sanitize(raw))
			found = true
		}
	}
	if !found {
		return nil, nil
	}

	b := score.NewAggregator(e.cfg.Weights).Compute(s)
	b.Team, b.PRNumber = targetTeam, targetPR
	if slug, pr, ok := bundle.ParseDir(dir); ok {
		if b.Team == "" {
			b.Team = slug
		}
		if b.PRNumber == 0 {
			b.PRNumber = pr
		}
	}
	if d := b.Drift(); d != 0 {
		e.logger.Debug("contribution rounding drift", "drift", d, "overall", b.OverallScore)
	}
	return b, nil
}

func printBreakdown(out io.Writer, b *score.Breakdown) {
	title := b.Team
	if b.PRNumber > 0 {
		title = fmt.Sprintf("%s #%d", b.Team, b.PRNumber)
	}
	fmt.Fprintf(out, "SCORE: %s  [%s] %d/100\n", title, b.Grade, b.OverallScore)
	fmt.Fprintln(out, strings.Repeat("─", 60))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "COMPONENT\tSCORE\tWEIGHT\tCONTRIBUTION\n")
	fmt.Fprintf(w, "---------\t-----\t------\t------------\n")
	for _, cs := range b.Components {
		fmt.Fprintf(w, "%s\t%d\t%d%%\t%d\n", cs.Name.Label(), cs.Score, cs.Weight, cs.Contribution)
	}
	w.Flush()
}
