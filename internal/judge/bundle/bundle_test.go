package bundle

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/build-flow-labs/judge/internal/judge/score"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeArtifact(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadEmptyDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "team-rocket", "pr-12")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	b, err := Load(dir, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "team-rocket", b.Team)
	assert.Equal(t, 12, b.PRNumber)
	assert.Nil(t, b.Breakdown)
	assert.Nil(t, b.Quality)
	assert.Nil(t, b.QualityReport)
	assert.Nil(t, b.Security)
	assert.Nil(t, b.Trivy)
	assert.Nil(t, b.Behavior)
	assert.Nil(t, b.AI)
	assert.Nil(t, b.Coverage)
	assert.Nil(t, b.Lighthouse)
	assert.Nil(t, b.Tests)
	assert.Len(t, b.Missing, 10)
	assert.Empty(t, b.Malformed)

	_, ok := b.SecurityCounts()
	assert.False(t, ok)
	assert.Equal(t, 0, b.TotalVulnerabilities())
	assert.Empty(t, b.Vulnerabilities())
	assert.Empty(t, b.Issues())
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope", "pr-1"), discardLogger())
	assert.Error(t, err)
}

func TestLoadFileInsteadOfDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pr-1")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := Load(path, discardLogger())
	assert.Error(t, err)
}

func TestLoadAllArtifacts(t *testing.T) {
	dir := Dir(t.TempDir(), "Team Rocket", 7)

	b := score.Compute(score.Scores{Test: 80, Sonar: 70, Security: 90, Frontend: 60, Team: 50, AI: 100})
	b.Team = "Team Rocket"
	b.PRNumber = 7
	_, err := score.Save(dir, b)
	require.NoError(t, err)

	writeArtifact(t, dir, "quality-summary.json", `{"summary": {"bugs": 1, "code_smells": -3, "coverage": "150%"}}`)
	writeArtifact(t, dir, "quality-report.json", `{"formatted_report": "### Bugs", "total_issues": 1`)
	writeArtifact(t, dir, SecurityFile, `{"summary": {"totalIssues": 1, "highSeverity": 2, "mediumSeverity": 1, "score": 140}, "details": "2 high"}`)
	writeArtifact(t, dir, "trivy-results.json", `[{"Target": "package-lock.json", "Vulnerabilities": [{"VulnerabilityID": "CVE-1", "Severity": "LOW"}, {"VulnerabilityID": "CVE-2", "Severity": "CRITICAL"}]}]`)
	writeArtifact(t, dir, TeamFile, `{"summary": {"totalCommits": 42, "totalAuthors": 3, "messageQuality": "71.5"}, "breakdown": {"messages": {"score": 7, "maxScore": 10}, "balance": {"score": 3, "maxScore": 4, "description": "even split"}}}`)
	writeArtifact(t, dir, AIFile, `{"summary": {"hasAttribution": true, "estimatedAiPercentage": 35, "aiCommits": 4}, "patterns": {"totalCodeFiles": 20}, "recommendations": ["Document AI usage", "  "]}`)
	writeArtifact(t, dir, CoverageFile, `{"total": {"lines": {"total": 200, "covered": 150, "pct": 75}, "statements": {"total": 10, "covered": 5, "pct": "Unknown"}, "functions": {"total": 0, "covered": 0, "pct": 100}, "branches": {"total": 4, "covered": 1, "pct": 25}}}`)
	writeArtifact(t, dir, LighthouseFile, `{"performance": 0.92, "accessibility": 0.8, "bestPractices": 1, "seo": 0.5}`)
	writeArtifact(t, dir, TestsFile, `{"summary": {"testFiles": 3, "totalTests": 10, "passed": 9, "failed": 1, "framework": "jest"}}`)

	got, err := Load(dir, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, got.Missing)
	assert.Empty(t, got.Malformed)

	assert.Equal(t, "Team Rocket", got.Team)
	assert.Equal(t, 7, got.PRNumber)
	assert.Equal(t, 75, got.Breakdown.OverallScore)

	assert.Equal(t, 0, got.Quality.Summary.CodeSmells)
	assert.InDelta(t, 100, float64(got.Quality.Summary.Coverage), 0.001)
	assert.Equal(t, "### Bugs", got.QualityReport.FormattedReport)

	assert.Equal(t, 3, got.Security.Summary.TotalIssues)
	assert.Equal(t, 100, got.Security.Summary.Score)
	assert.Equal(t, "2 high", got.Security.DetailsText())

	vulns := got.Vulnerabilities()
	require.Len(t, vulns, 2)
	assert.Equal(t, "CVE-2", vulns[0].VulnerabilityID)

	counts, ok := got.SecurityCounts()
	require.True(t, ok)
	assert.Equal(t, 3, counts.TotalIssues)

	cats := got.Behavior.Categories()
	require.Len(t, cats, 2)
	assert.Equal(t, "balance", cats[0].Name)
	assert.Equal(t, 75, cats[0].Percent())
	assert.Equal(t, 70, cats[1].Percent())
	assert.InDelta(t, 71.5, float64(got.Behavior.Summary.MessageQuality), 0.001)

	assert.Equal(t, []string{"Document AI usage"}, got.AI.Recommendations)

	metrics := got.Coverage.Metrics()
	assert.Equal(t, "Lines", metrics[0].Name)
	assert.InDelta(t, 50, float64(metrics[1].Pct), 0.001)

	assert.InDelta(t, 92, float64(got.Lighthouse.Performance), 0.001)
	assert.InDelta(t, 100, float64(got.Lighthouse.BestPractices), 0.001)

	assert.Equal(t, "jest", got.Tests.Summary.Framework)
}

func TestLoadMalformedArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "team-rocket", "pr-3")
	writeArtifact(t, dir, SecurityFile, `{"summary": `)
	writeArtifact(t, dir, "quality-report.json", `{"formatted_report": "cut mid str`)
	writeArtifact(t, dir, "trivy-results.json", `nope`)
	writeArtifact(t, dir, TeamFile, `{"summary": {"totalCommits": 5}}`)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	b, err := Load(dir, logger)
	require.NoError(t, err)

	assert.Nil(t, b.Security)
	assert.Nil(t, b.QualityReport)
	assert.Nil(t, b.Trivy)
	require.NotNil(t, b.Behavior)
	assert.Equal(t, 5, b.Behavior.Summary.TotalCommits)
	assert.ElementsMatch(t, []string{SecurityFile, "quality-report.json", "trivy-results.json"}, b.Malformed)
	assert.Contains(t, logs.String(), "malformed artifact")
}

func TestSecurityCountsFromTrivy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "team-rocket", "pr-1")
	writeArtifact(t, dir, "trivy-results.json", `{"Results": [{"Target": "package-lock.json", "Vulnerabilities": [
		{"VulnerabilityID": "CVE-1", "Severity": "CRITICAL"},
		{"VulnerabilityID": "CVE-2", "Severity": "HIGH"},
		{"VulnerabilityID": "CVE-3", "Severity": "MEDIUM"}
	]}]}`)

	b, err := Load(dir, discardLogger())
	require.NoError(t, err)

	counts, ok := b.SecurityCounts()
	require.True(t, ok)
	assert.Equal(t, SecurityCounts{TotalIssues: 3, HighSeverity: 2, MediumSeverity: 1, Score: 62}, counts)
	assert.Equal(t, 3, b.TotalVulnerabilities())
}

func TestDetailsText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{``, ""},
		{`null`, ""},
		{`" two issues "`, "two issues"},
		{`{"a": 1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		s := SecuritySummary{Details: []byte(tt.raw)}
		assert.Equal(t, tt.want, s.DetailsText(), tt.raw)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Team Rocket", "team-rocket"},
		{"  team_rocket!! ", "team-rocket"},
		{"ALPHA--42", "alpha-42"},
		{"!!!", "team"},
		{"", "team"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), tt.in)
	}
}

func TestDirAndParseDir(t *testing.T) {
	dir := Dir("reports", "Team Rocket", 12)
	assert.Equal(t, filepath.Join("reports", "team-rocket", "pr-12"), dir)

	slug, pr, ok := ParseDir(dir)
	require.True(t, ok)
	assert.Equal(t, "team-rocket", slug)
	assert.Equal(t, 12, pr)

	for _, bad := range []string{"reports/team", "reports/team/pr-x", "pr-3", "reports/team/pr--1"} {
		_, _, ok := ParseDir(bad)
		assert.False(t, ok, bad)
	}

	assert.Equal(t, "report-team-rocket.html", ReportFileName("Team Rocket"))
}

func TestPRDirs(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"zeta/pr-1", "alpha/pr-2", "alpha/pr-10", "alpha/notes"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("x"), 0o644))

	dirs, err := PRDirs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "alpha", "pr-10"),
		filepath.Join(root, "alpha", "pr-2"),
		filepath.Join(root, "zeta", "pr-1"),
	}, dirs)

	dirs, err = PRDirs(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, dirs)
}
