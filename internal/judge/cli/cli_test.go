package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/build-flow-labs/judge/internal/judge/bundle"
	"github.com/build-flow-labs/judge/internal/judge/comment"
	"github.com/build-flow-labs/judge/internal/judge/config"
	"github.com/build-flow-labs/judge/internal/judge/dashboard"
	"github.com/build-flow-labs/judge/internal/judge/score"
	"github.com/build-flow-labs/judge/vulnscan"
)

func resetFlags() {
	configPath, reportsDir, logLevel = "", "", ""
	targetTeam, targetPR, targetDir = "", 0, ""
	scoreInputs, scoreJSON = "", false
	for _, v := range scoreValues {
		*v = ""
	}
	indexAll = false
	commentStack, commentPost, commentWrite = "", false, false
	serveAddr = ""
	configInitPath, configInitForce = config.DefaultFile, false
	vulnInput, vulnThreshold, vulnIgnoreUnfixed, vulnJSON = "", string(vulnscan.GateNoCriticalHigh), false, false
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_REPOSITORY", "")
	resetFlags()

	root := &cobra.Command{Use: "judge", SilenceUsage: true, SilenceErrors: true}
	Attach(root)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

var rocketScores = []string{
	"--test-score", "80", "--sonar-score", "70", "--security-score", "90",
	"--frontend-score", "60", "--team-score", "50", "--ai-score", "100",
}

func rocketArgs(cmd, root string, extra ...string) []string {
	args := []string{cmd, "--reports-dir", root, "--team", "Team Rocket", "--pr", "7"}
	return append(args, extra...)
}

func TestScoreCommand(t *testing.T) {
	root := t.TempDir()
	out, err := execute(t, rocketArgs("score", root, rocketScores...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "SCORE: Team Rocket #7  [C] 75/100")
	assert.Contains(t, out, "COMPONENT")

	b, err := score.Load(filepath.Join(root, "team-rocket", "pr-7", score.BreakdownFile))
	require.NoError(t, err)
	assert.Equal(t, 75, b.OverallScore)
	assert.Equal(t, "Team Rocket", b.Team)
	assert.Equal(t, 7, b.PRNumber)
}

func TestScoreInputsWithFlagOverride(t *testing.T) {
	root := t.TempDir()
	inputs := filepath.Join(t.TempDir(), "scores.json")
	require.NoError(t, os.WriteFile(inputs, []byte(`{"test": "85%", "sonar": 70, "security": null}`), 0o644))

	out, err := execute(t, rocketArgs("score", root, "--inputs", inputs, "--sonar-score", "100", "--json")...)
	require.NoError(t, err)

	var b score.Breakdown
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, 85, b.Score(score.ComponentTest))
	assert.Equal(t, 100, b.Score(score.ComponentSonar))
	assert.Equal(t, 0, b.Score(score.ComponentSecurity))
}

func TestScoreReadsInputsFromPRDir(t *testing.T) {
	root := t.TempDir()
	dir := bundle.Dir(root, "Team Rocket", 7)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, score.InputsFile), []byte(`{"test": 100, "sonar": 100}`), 0o644))

	out, err := execute(t, "score", "--dir", dir, "--json")
	require.NoError(t, err)

	var b score.Breakdown
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, 55, b.OverallScore)
	assert.Equal(t, "team-rocket", b.Team)
	assert.Equal(t, 7, b.PRNumber)
}

func TestScoreErrors(t *testing.T) {
	root := t.TempDir()

	_, err := execute(t, rocketArgs("score", root)...)
	assert.ErrorIs(t, err, errNoScores)

	_, err = execute(t, "score", "--reports-dir", root, "--pr", "7", "--test-score", "80")
	assert.Error(t, err)

	_, err = execute(t, "score", "--reports-dir", root, "--team", "x", "--test-score", "80")
	assert.Error(t, err)
}

func TestRunPipeline(t *testing.T) {
	root := t.TempDir()
	out, err := execute(t, rocketArgs("run", root, append(rocketScores, "--stack", "node")...)...)
	require.NoError(t, err)

	dir := bundle.Dir(root, "Team Rocket", 7)
	assert.FileExists(t, filepath.Join(dir, score.BreakdownFile))
	assert.FileExists(t, filepath.Join(dir, "report-team-rocket.html"))
	assert.FileExists(t, filepath.Join(root, dashboard.IndexFile))

	md, err := os.ReadFile(filepath.Join(dir, CommentFile))
	require.NoError(t, err)
	assert.Contains(t, string(md), comment.Marker)
	assert.Contains(t, string(md), "**Stack:** node")
	assert.Contains(t, string(md), "### Overall Score: 75/100 (Grade C)")

	assert.Contains(t, out, "Report:  "+filepath.Join(dir, "report-team-rocket.html"))
	assert.Contains(t, out, "Index:   "+filepath.Join(root, dashboard.IndexFile))
}

func TestRunReusesExistingBreakdown(t *testing.T) {
	root := t.TempDir()
	_, err := execute(t, rocketArgs("score", root, rocketScores...)...)
	require.NoError(t, err)

	out, err := execute(t, rocketArgs("run", root)...)
	require.NoError(t, err)
	assert.Contains(t, out, "75/100")

	_, err = execute(t, "run", "--reports-dir", root, "--team", "Nobody", "--pr", "1")
	assert.Error(t, err)
}

func TestReportAndIndexCommands(t *testing.T) {
	root := t.TempDir()
	_, err := execute(t, rocketArgs("score", root, rocketScores...)...)
	require.NoError(t, err)

	out, err := execute(t, rocketArgs("report", root)...)
	require.NoError(t, err)
	assert.Contains(t, out, "report-team-rocket.html")

	out, err = execute(t, "index", "--reports-dir", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Team Rocket")

	html, err := os.ReadFile(filepath.Join(root, dashboard.IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(html), `href="team-rocket/pr-7/report-team-rocket.html"`)

	_, err = execute(t, "report", "--dir", filepath.Join(root, "missing", "pr-1"))
	assert.Error(t, err)
}

func TestCommentCommand(t *testing.T) {
	root := t.TempDir()
	_, err := execute(t, rocketArgs("score", root, rocketScores...)...)
	require.NoError(t, err)

	out, err := execute(t, rocketArgs("comment", root, "--stack", "go")...)
	require.NoError(t, err)
	assert.Contains(t, out, comment.Marker)
	assert.Contains(t, out, "**Team:** Team Rocket · **Stack:** go · **PR:** #7")

	out, err = execute(t, rocketArgs("comment", root, "--write")...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(bundle.Dir(root, "Team Rocket", 7), CommentFile))
	assert.Contains(t, out, CommentFile)

	// Posting needs a repository and a token.
	_, err = execute(t, rocketArgs("comment", root, "--post")...)
	assert.Error(t, err)
}

func TestVulnAnalyzeCommand(t *testing.T) {
	input := filepath.Join(t.TempDir(), vulnscan.ResultsFile)
	require.NoError(t, os.WriteFile(input, []byte(`[{"Target": "package-lock.json", "Vulnerabilities": [
		{"VulnerabilityID": "CVE-2024-0001", "PkgName": "lodash", "InstalledVersion": "4.17.20", "FixedVersion": "4.17.21", "Severity": "CRITICAL"},
		{"VulnerabilityID": "CVE-2024-0002", "PkgName": "minimist", "InstalledVersion": "1.2.5", "Severity": "LOW"}
	]}]`), 0o644))

	out, err := execute(t, "vuln", "analyze", "-i", input)
	assert.ErrorIs(t, err, ErrGateFailed)
	assert.Contains(t, out, "Gate Status: FAILED")
	assert.Contains(t, out, "[CRITICAL] CVE-2024-0001 in lodash@4.17.20 (4.17.21)")
	assert.Contains(t, out, "[LOW] CVE-2024-0002 in minimist@1.2.5 (no fix)")

	out, err = execute(t, "vuln", "analyze", "-i", input, "--ignore-unfixed", "-t", "no_critical_high_medium", "--json")
	assert.ErrorIs(t, err, ErrGateFailed)
	var analysis vulnscan.VulnAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	assert.Equal(t, 1, analysis.Summary.Total)

	low := filepath.Join(t.TempDir(), vulnscan.ResultsFile)
	require.NoError(t, os.WriteFile(low, []byte(`[{"Target": "go.sum", "Vulnerabilities": [
		{"VulnerabilityID": "CVE-2024-0003", "PkgName": "x/net", "InstalledVersion": "0.1.0", "Severity": "LOW"}
	]}]`), 0o644))
	out, err = execute(t, "vuln", "analyze", "-i", low)
	require.NoError(t, err)
	assert.Contains(t, out, "Gate Status: PASSED")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "judge.yaml")

	out, err := execute(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = execute(t, "config", "init", "--path", path)
	assert.Error(t, err)

	out, err = execute(t, "config", "show", "--config", path, "--reports-dir", "elsewhere")
	require.NoError(t, err)
	assert.Contains(t, out, "reports_dir: elsewhere")
	assert.Contains(t, out, "sonar: 30")

	out, err = execute(t, "config", "env")
	require.NoError(t, err)
	assert.Contains(t, out, "JUDGE_REPORTS_DIR")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "index", "--reports-dir", t.TempDir(), "--log-level", "chatty")
	assert.Error(t, err)
}
