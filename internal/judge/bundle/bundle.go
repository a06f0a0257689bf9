// Package bundle loads the per-PR analysis artifacts written by the judge
// workflow. Each artifact is optional; a missing or malformed file leaves the
// corresponding summary nil so renderers can show a "no data" state.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/build-flow-labs/judge/internal/judge/quality"
	"github.com/build-flow-labs/judge/internal/judge/score"
	"github.com/build-flow-labs/judge/vulnscan"
)

// Bundle is the full set of artifacts for one team's pull request.
type Bundle struct {
	Dir      string
	Team     string
	PRNumber int

	Breakdown     *score.Breakdown
	Quality       *quality.Summary
	QualityReport *quality.Report
	Security      *SecuritySummary
	Trivy         *vulnscan.TrivyResult
	Behavior      *TeamSummary
	AI            *AISummary
	Coverage      *CoverageSummary
	Lighthouse    *LighthouseSummary
	Tests         *TestSummary

	// Missing and Malformed list artifact files that could not be used.
	Missing   []string
	Malformed []string
}

type validator interface {
	Validate()
}

type loader struct {
	dir    string
	logger *slog.Logger
	b      *Bundle
}

// Load reads every known artifact from dir. Only an unreadable directory is
// an error; per-artifact problems are logged and recorded on the bundle.
func Load(dir string, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading PR directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("reading PR directory: %s is not a directory", dir)
	}

	b := &Bundle{Dir: dir}
	if slug, pr, ok := ParseDir(dir); ok {
		b.Team = slug
		b.PRNumber = pr
	}

	l := &loader{dir: dir, logger: logger.With("dir", dir), b: b}
	b.Breakdown = readArtifact[score.Breakdown](l, score.BreakdownFile)
	b.Quality = readArtifact[quality.Summary](l, quality.SummaryFile)
	b.Security = readArtifact[SecuritySummary](l, SecurityFile)
	b.Behavior = readArtifact[TeamSummary](l, TeamFile)
	b.AI = readArtifact[AISummary](l, AIFile)
	b.Coverage = readArtifact[CoverageSummary](l, CoverageFile)
	b.Lighthouse = readArtifact[LighthouseSummary](l, LighthouseFile)
	b.Tests = readArtifact[TestSummary](l, TestsFile)
	b.QualityReport = l.readQualityReport()
	b.Trivy = l.readTrivy()

	if b.Quality != nil {
		b.Quality.Validate()
	}
	if b.Breakdown != nil {
		if b.Breakdown.Team != "" {
			b.Team = b.Breakdown.Team
		}
		if b.Breakdown.PRNumber != 0 {
			b.PRNumber = b.Breakdown.PRNumber
		}
	}
	return b, nil
}

// read returns the artifact bytes, or false when it is absent or unreadable.
func (l *loader) read(name string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("artifact not found", "file", name)
		} else {
			l.logger.Warn("failed to read artifact", "file", name, "error", err)
		}
		l.b.Missing = append(l.b.Missing, name)
		return nil, false
	}
	return data, true
}

func (l *loader) malformed(name string, err error) {
	l.logger.Warn("malformed artifact", "file", name, "error", err)
	l.b.Malformed = append(l.b.Malformed, name)
}

func readArtifact[T any](l *loader, name string) *T {
	data, ok := l.read(name)
	if !ok {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		l.malformed(name, err)
		return nil
	}
	if val, ok := any(v).(validator); ok {
		val.Validate()
	}
	return v
}

func (l *loader) readQualityReport() *quality.Report {
	data, ok := l.read(quality.ReportFile)
	if !ok {
		return nil
	}
	r, repaired, err := quality.DecodeReport(data)
	if err != nil {
		l.malformed(quality.ReportFile, err)
		return nil
	}
	if repaired {
		l.logger.Info("repaired truncated quality report", "file", quality.ReportFile)
	}
	return r
}

func (l *loader) readTrivy() *vulnscan.TrivyResult {
	data, ok := l.read(vulnscan.ResultsFile)
	if !ok {
		return nil
	}
	r, err := vulnscan.ParseTrivyJSON(data)
	if err != nil {
		l.malformed(vulnscan.ResultsFile, err)
		return nil
	}
	return r
}

// Vulnerabilities returns the raw findings, most severe first.
func (b *Bundle) Vulnerabilities() []vulnscan.Vulnerability {
	return b.Trivy.SortedVulnerabilities()
}

// SecurityCounts returns the security counts. The summary artifact wins; when
// it is absent the counts are derived from the raw findings, with critical
// findings counted as high. ok is false when neither source is present.
func (b *Bundle) SecurityCounts() (counts SecurityCounts, ok bool) {
	if b.Security != nil {
		return b.Security.Summary, true
	}
	if b.Trivy == nil {
		return SecurityCounts{}, false
	}
	s := vulnscan.Summarize(b.Trivy.GetAllVulnerabilities())
	return SecurityCounts{
		TotalIssues:    s.Total,
		HighSeverity:   s.Critical + s.High,
		MediumSeverity: s.Medium,
		LowSeverity:    s.Low,
		Score:          s.Score(),
	}, true
}

// TotalVulnerabilities returns the number of known vulnerabilities, 0 when no
// security data is present.
func (b *Bundle) TotalVulnerabilities() int {
	c, _ := b.SecurityCounts()
	return c.TotalIssues
}

// Issues returns the merged code-quality issues.
func (b *Bundle) Issues() []quality.Issue {
	return quality.MergeIssues(b.Quality)
}
