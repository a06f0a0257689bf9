// Package quality models the code-quality (SonarCloud) artifacts of a PR and
// merges their overlapping issue sources into one ordered issue list.
package quality

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SummaryFile is the artifact name of the quality summary.
const SummaryFile = "quality-summary.json"

// Issue categories as they appear under detailed_reports.
const (
	CategoryBugs            = "bugs"
	CategoryVulnerabilities = "vulnerabilities"
	CategoryCodeSmells      = "code_smells"
)

// Categories lists detailed_reports keys in merge order.
var Categories = []string{CategoryBugs, CategoryVulnerabilities, CategoryCodeSmells}

// categoryType maps a detailed_reports key to the Sonar issue type.
var categoryType = map[string]string{
	CategoryBugs:            "BUG",
	CategoryVulnerabilities: "VULNERABILITY",
	CategoryCodeSmells:      "CODE_SMELL",
}

// Summary is the quality-summary.json document.
type Summary struct {
	Summary         Counts                    `json:"summary"`
	DetailedReports map[string]DetailedReport `json:"detailed_reports,omitempty"`
	FilesAffected   *FilesAffected            `json:"files_affected,omitempty"`
}

// Counts holds the headline code-quality numbers.
type Counts struct {
	Bugs            int     `json:"bugs"`
	Vulnerabilities int     `json:"vulnerabilities"`
	CodeSmells      int     `json:"code_smells"`
	Coverage        Percent `json:"coverage"`
	Duplication     Percent `json:"duplication,omitempty"`
	QualityGate     string  `json:"quality_gate,omitempty"`
	ProjectURL      string  `json:"sonar_project_url,omitempty"`
}

// GateFailed reports whether the quality gate status is a failure.
func (c Counts) GateFailed() bool {
	switch strings.ToUpper(strings.TrimSpace(c.QualityGate)) {
	case "ERROR", "FAILED", "FAIL", "RED":
		return true
	default:
		return false
	}
}

// DetailedReport holds the issues of one category.
type DetailedReport struct {
	ByFile map[string][]Issue `json:"by_file,omitempty"`
	Issues []Issue            `json:"issues,omitempty"`
}

// FilesAffected lists the files with the most issues.
type FilesAffected struct {
	MostAffectedFiles []AffectedFile `json:"most_affected_files,omitempty"`
}

// AffectedFile is one entry of the most-affected-files list.
type AffectedFile struct {
	File       string  `json:"file"`
	IssueCount int     `json:"issue_count"`
	Issues     []Issue `json:"issues,omitempty"`
}

// Issue is one static-analysis finding.
type Issue struct {
	File      string `json:"file,omitempty"`
	Component string `json:"component,omitempty"`
	Line      int    `json:"line,omitempty"`
	Type      string `json:"type,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Message   string `json:"message"`
	Rule      string `json:"rule,omitempty"`
	Effort    string `json:"effort,omitempty"`
}

// Path returns the repository-relative file path of the issue. Sonar
// component keys ("project:src/app.js") are reduced to the path part.
func (i Issue) Path() string {
	if i.File != "" {
		return i.File
	}
	if _, path, ok := strings.Cut(i.Component, ":"); ok {
		return path
	}
	return i.Component
}

// Validate normalises the summary after decoding.
func (s *Summary) Validate() {
	s.Summary.Bugs = nonNegative(s.Summary.Bugs)
	s.Summary.Vulnerabilities = nonNegative(s.Summary.Vulnerabilities)
	s.Summary.CodeSmells = nonNegative(s.Summary.CodeSmells)
	s.Summary.Coverage = s.Summary.Coverage.Clamp()
	s.Summary.Duplication = s.Summary.Duplication.Clamp()
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// Percent is a 0-100 value that decodes from a JSON number or a numeric
// string such as "85.2" or "85.2%". Anything else decodes as 0.
type Percent float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Percent) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*p = Percent(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*p = Percent(f)
			return nil
		}
	}
	*p = 0
	return nil
}

// Clamp limits the percentage to [0,100].
func (p Percent) Clamp() Percent {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// String formats the percentage with one decimal.
func (p Percent) String() string {
	return strconv.FormatFloat(float64(p), 'f', 1, 64) + "%"
}
