// Package report renders the self-contained per-team HTML report of a pull
// request from its analysis bundle.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/build-flow-labs/judge/internal/judge/bundle"
	"github.com/build-flow-labs/judge/internal/judge/quality"
	"github.com/build-flow-labs/judge/internal/judge/score"
	"github.com/build-flow-labs/judge/vulnscan"
)

//go:embed templates/*.html
var embeddedFS embed.FS

// Placeholder sentences for sections without data.
const (
	NoBreakdown      = "Score breakdown is not available for this pull request."
	SecurityClean    = "No vulnerabilities detected"
	NoQualityData    = "Code quality analysis did not produce results for this pull request."
	NoCoverageData   = "No test or coverage results were collected for this pull request."
	NoTeamData       = "No team collaboration data is available for this pull request."
	NoAIData         = "No AI attribution analysis is available for this pull request."
	NoFrontendData   = "No frontend performance audit was run for this pull request."
	noIssuesReported = "No code quality issues reported."
)

// Options configures a Renderer.
type Options struct {
	// Repository is the owner/name used for source links. Links are omitted
	// when empty.
	Repository string
	// Ref is the branch, tag or commit the links point at.
	Ref string
	// Now returns the render timestamp.
	Now func() time.Time
}

// Renderer renders per-team HTML reports.
type Renderer struct {
	tmpl *template.Template
	opts Options
}

// New parses the embedded templates.
func New(opts Options) (*Renderer, error) {
	if opts.Ref == "" {
		opts.Ref = "main"
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	funcMap := template.FuncMap{
		"gradeClass":    gradeClass,
		"severityClass": severityClass,
		"percentWidth":  percentWidth,
		"formatTime":    formatTime,
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(embeddedFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing report templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, opts: opts}, nil
}

// Render produces the HTML report. team overrides the team name recorded in
// the bundle when non-empty. A nil bundle renders every section as empty.
func (r *Renderer) Render(team string, b *bundle.Bundle) (string, error) {
	if b == nil {
		b = &bundle.Bundle{}
	}
	if team == "" {
		team = b.Team
	}

	data := r.buildPage(team, b)
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "report", data); err != nil {
		return "", fmt.Errorf("rendering report for %s: %w", team, err)
	}
	return buf.String(), nil
}

// WriteReport renders the report and writes it to dir as
// report-<team-slug>.html, returning the written path.
func (r *Renderer) WriteReport(dir, team string, b *bundle.Bundle) (string, error) {
	html, err := r.Render(team, b)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	if team == "" && b != nil {
		team = b.Team
	}
	path := filepath.Join(dir, bundle.ReportFileName(team))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// Page data types

type page struct {
	Team       string
	PRNumber   int
	Repository string
	Generated  time.Time

	Breakdown  *score.Breakdown
	Components []componentView

	Security   securityView
	Quality    *qualityView
	Coverage   *bundle.CoverageSummary
	Tests      *bundle.TestSummary
	Behavior   *bundle.TeamSummary
	AI         *bundle.AISummary
	Lighthouse *bundle.LighthouseSummary

	Empty emptyText
}

type emptyText struct {
	Breakdown, SecurityClean, Quality, NoIssues, Coverage, Team, AI, Frontend string
}

var placeholders = emptyText{
	Breakdown:     NoBreakdown,
	SecurityClean: SecurityClean,
	Quality:       NoQualityData,
	NoIssues:      noIssuesReported,
	Coverage:      NoCoverageData,
	Team:          NoTeamData,
	AI:            NoAIData,
	Frontend:      NoFrontendData,
}

type componentView struct {
	Label        string
	Score        int
	Weight       int
	Contribution int
}

type securityView struct {
	HasData  bool
	Counts   bundle.SecurityCounts
	Details  string
	Findings []findingView
}

type findingView struct {
	ID          string
	Severity    string
	Package     string
	Installed   string
	Fixed       string
	Title       string
	Description string
	Links       []string
}

type qualityView struct {
	Counts     quality.Counts
	Severities []severityCount
	Issues     []issueView
}

type severityCount struct {
	Severity string
	Count    int
}

type issueView struct {
	Severity string
	Type     string
	File     string
	Line     int
	Message  string
	Rule     string
	URL      string
}

func (r *Renderer) buildPage(team string, b *bundle.Bundle) page {
	p := page{
		Team:       team,
		PRNumber:   b.PRNumber,
		Repository: r.opts.Repository,
		Generated:  r.opts.Now(),
		Breakdown:  b.Breakdown,
		Coverage:   b.Coverage,
		Tests:      b.Tests,
		Behavior:   b.Behavior,
		AI:         b.AI,
		Lighthouse: b.Lighthouse,
		Empty:      placeholders,
	}

	if b.Breakdown != nil {
		for _, cs := range b.Breakdown.Components {
			p.Components = append(p.Components, componentView{
				Label:        cs.Name.Label(),
				Score:        cs.Score,
				Weight:       cs.Weight,
				Contribution: cs.Contribution,
			})
		}
	}

	p.Security = buildSecurity(b)
	if b.Quality != nil {
		p.Quality = r.buildQuality(b.Quality)
	}
	return p
}

func buildSecurity(b *bundle.Bundle) securityView {
	var v securityView
	v.Counts, v.HasData = b.SecurityCounts()
	if b.Security != nil {
		v.Details = b.Security.DetailsText()
	}
	for _, vuln := range b.Vulnerabilities() {
		v.Findings = append(v.Findings, findingView{
			ID:          vuln.VulnerabilityID,
			Severity:    vulnscan.NormalizeSeverity(vuln.Severity),
			Package:     vuln.PkgName,
			Installed:   vuln.InstalledVersion,
			Fixed:       vuln.FixedVersion,
			Title:       vuln.Summary(),
			Description: vuln.Description,
			Links:       vuln.Links(),
		})
	}
	return v
}

func (r *Renderer) buildQuality(s *quality.Summary) *qualityView {
	issues := quality.MergeIssues(s)
	v := &qualityView{Counts: s.Summary}

	counts := quality.CountBySeverity(issues)
	order := make([]string, 0, len(quality.Severities)+1)
	order = append(order, quality.Severities...)
	for _, sev := range append(order, "UNKNOWN") {
		if n := counts[sev]; n > 0 {
			v.Severities = append(v.Severities, severityCount{Severity: sev, Count: n})
		}
	}

	for _, iss := range issues {
		severity := iss.Severity
		if quality.SeverityRank(severity) == len(quality.Severities) {
			severity = "UNKNOWN"
		}
		v.Issues = append(v.Issues, issueView{
			Severity: severity,
			Type:     iss.Type,
			File:     iss.File,
			Line:     iss.Line,
			Message:  iss.Message,
			Rule:     iss.Rule,
			URL:      r.SourceURL(iss.File, iss.Line),
		})
	}
	return v
}

// SourceURL links a file and line in the repository at the configured ref.
// It returns "" when no repository is configured or file is empty.
func (r *Renderer) SourceURL(file string, line int) string {
	if r.opts.Repository == "" || file == "" {
		return ""
	}
	u := "https://github.com/" + r.opts.Repository + "/blob/" + r.opts.Ref + "/" + strings.TrimPrefix(file, "/")
	if line > 0 {
		u += "#L" + strconv.Itoa(line)
	}
	return u
}

// Template helper functions

func gradeClass(grade string) string {
	switch grade {
	case "A", "B", "C", "D":
		return "grade-" + grade
	default:
		return "grade-F"
	}
}

func severityClass(severity string) string {
	s := strings.ToLower(strings.TrimSpace(severity))
	switch s {
	case "blocker", "critical", "high", "major", "medium", "minor", "low", "info":
		return "sev-" + s
	default:
		return "sev-unknown"
	}
}

// percentWidth converts a score or percentage to a bar width in [0,100].
func percentWidth(v any) int {
	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case float64:
		f = x
	case quality.Percent:
		f = float64(x)
	}
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	default:
		return int(f + 0.5)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
