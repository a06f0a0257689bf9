// Package comment renders the markdown pull-request comment summarising a
// team's score, code-quality findings and prioritised action items.
package comment

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/build-flow-labs/judge/internal/judge/bundle"
	"github.com/build-flow-labs/judge/internal/judge/quality"
	"github.com/build-flow-labs/judge/internal/judge/score"
)

//go:embed templates/comment.md.tmpl
var templateFS embed.FS

var commentTmpl = template.Must(template.New("comment.md.tmpl").Funcs(template.FuncMap{
	"add1": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/comment.md.tmpl"))

// Marker identifies comments written by the judge so they can be updated in
// place on later runs.
const Marker = "<!-- hackathon-judge -->"

// Fixed wording used by the renderer.
const (
	QualityPending  = "⏳ Code quality analysis is pending or did not run for this PR."
	PraiseExcellent = "🎉 Outstanding work! No action items. This submission is in great shape."
	PraiseGood      = "✅ No critical action items. Keep polishing to push the score higher."
)

// Thresholds of the action-item rules.
const (
	CoverageTarget    = 80
	MaxCodeSmells     = 5
	FrontendTarget    = 70
	TeamTarget        = 70
	ExcellentOverall  = 85
	progressBarLength = 10
)

// Links are the external pages referenced at the end of the comment.
type Links struct {
	Dashboard string
	Sonar     string
	Workflow  string
}

// Input is everything the comment is rendered from.
type Input struct {
	Team  string
	Stack string
	PR    int

	// Breakdown defaults to Bundle.Breakdown when nil.
	Breakdown *score.Breakdown
	// Bundle carries the collaborator summaries; it may be nil.
	Bundle *bundle.Bundle
	Links  Links
}

type row struct {
	Label  string
	Score  int
	Bar    string
	Weight int
}

type link struct {
	Label string
	URL   string
}

type view struct {
	Marker  string
	Team    string
	Stack   string
	PR      int
	Overall int
	Grade   string
	Rows    []row
	Quality string
	Actions []string
	Praise  string
	Links   []link
}

// Render produces the markdown comment.
func Render(in Input) (string, error) {
	b := in.Bundle
	if b == nil {
		b = &bundle.Bundle{}
	}
	breakdown := in.Breakdown
	if breakdown == nil {
		breakdown = b.Breakdown
	}
	if breakdown == nil {
		return "", errors.New("rendering comment: no score breakdown")
	}

	team := in.Team
	if team == "" {
		team = b.Team
	}
	pr := in.PR
	if pr == 0 {
		pr = b.PRNumber
	}

	v := view{
		Marker:  Marker,
		Team:    team,
		Stack:   in.Stack,
		PR:      pr,
		Overall: breakdown.OverallScore,
		Grade:   breakdown.Grade,
		Quality: QualitySection(b),
		Actions: ActionItems(breakdown, b),
		Links:   links(in.Links, b),
	}
	for _, cs := range breakdown.Components {
		v.Rows = append(v.Rows, row{
			Label:  cs.Name.Label(),
			Score:  cs.Score,
			Bar:    ProgressBar(cs.Score),
			Weight: cs.Weight,
		})
	}
	if len(v.Actions) == 0 {
		v.Praise = PraiseGood
		if breakdown.OverallScore >= ExcellentOverall {
			v.Praise = PraiseExcellent
		}
	}

	var buf bytes.Buffer
	if err := commentTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("rendering comment: %w", err)
	}
	return buf.String(), nil
}

// ProgressBar draws a ten-character bar with one filled cell per full ten
// points of score.
func ProgressBar(s int) string {
	filled := score.Clamp(s) / 10
	return strings.Repeat("█", filled) + strings.Repeat("░", progressBarLength-filled)
}

// QualitySection returns the code-quality text: the formatted report when it
// has text, else a one-line count summary, else a pending notice.
func QualitySection(b *bundle.Bundle) string {
	if b.QualityReport.HasText() {
		return strings.TrimSpace(b.QualityReport.FormattedReport)
	}
	if b.Quality == nil {
		return QualityPending
	}

	c := b.Quality.Summary
	line := fmt.Sprintf("🐛 Bugs: %d · 🔓 Vulnerabilities: %d · 🧹 Code smells: %d · 📊 Coverage: %s",
		c.Bugs, c.Vulnerabilities, c.CodeSmells, c.Coverage)
	if c.QualityGate != "" {
		line += " · 🚦 Quality gate: " + c.QualityGate
	}
	return line
}

// ActionItems evaluates the threshold rules in priority order and returns
// the triggered items.
func ActionItems(breakdown *score.Breakdown, b *bundle.Bundle) []string {
	var items []string

	if n := b.TotalVulnerabilities(); n > 0 {
		items = append(items, fmt.Sprintf("🔒 **Security:** fix %d known %s in your dependencies.", n, plural(n, "vulnerability", "vulnerabilities")))
	}

	if noTests(breakdown, b) {
		items = append(items, "🧪 **Testing:** no test files were found. Add automated tests for your core features.")
	}

	if cov, ok := coverage(b); ok && cov < CoverageTarget {
		items = append(items, fmt.Sprintf("📈 **Coverage:** test coverage is %s; aim for at least %d%%.", cov, CoverageTarget))
	}

	if q := b.Quality; q != nil {
		c := q.Summary
		if c.Bugs > 0 || c.CodeSmells > MaxCodeSmells || c.GateFailed() {
			items = append(items, fmt.Sprintf("🧹 **Code quality:** resolve %d %s and %d code %s flagged by SonarCloud.",
				c.Bugs, plural(c.Bugs, "bug", "bugs"), c.CodeSmells, plural(c.CodeSmells, "smell", "smells")))
		}
	}

	if breakdown.Score(score.ComponentFrontend) < FrontendTarget {
		items = append(items, "🎨 **User experience:** improve Lighthouse performance and accessibility scores.")
	}

	if breakdown.Score(score.ComponentTeam) < TeamTarget {
		items = append(items, "🤝 **Collaboration:** spread commits across the team and write descriptive commit messages.")
	}

	return items
}

// noTests reports whether the PR has no tests: the test summary counts zero
// test files, or there is no summary and the test score is zero.
func noTests(breakdown *score.Breakdown, b *bundle.Bundle) bool {
	if b.Tests != nil {
		return b.Tests.Summary.TestFiles == 0
	}
	return breakdown.Score(score.ComponentTest) == 0
}

// coverage returns the coverage percentage from the quality summary, falling
// back to line coverage of the coverage summary.
func coverage(b *bundle.Bundle) (quality.Percent, bool) {
	if b.Quality != nil {
		return b.Quality.Summary.Coverage, true
	}
	if b.Coverage != nil {
		return b.Coverage.Total.Lines.Pct, true
	}
	return 0, false
}

func links(l Links, b *bundle.Bundle) []link {
	sonar := l.Sonar
	if sonar == "" && b.Quality != nil {
		sonar = b.Quality.Summary.ProjectURL
	}

	var out []link
	for _, candidate := range []link{
		{Label: "📊 Dashboard", URL: l.Dashboard},
		{Label: "🔍 SonarCloud", URL: sonar},
		{Label: "⚙️ Workflow run", URL: l.Workflow},
	} {
		if candidate.URL != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
