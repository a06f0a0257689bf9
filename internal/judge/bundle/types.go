package bundle

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/build-flow-labs/judge/internal/judge/quality"
)

// Artifact file names inside a PR directory.
const (
	SecurityFile   = "security-summary.json"
	TeamFile       = "team-summary.json"
	AIFile         = "ai-summary.json"
	CoverageFile   = "coverage-summary.json"
	LighthouseFile = "lighthouse-summary.json"
	TestsFile      = "test-results.json"
)

// SecuritySummary is the dependency-audit summary.
type SecuritySummary struct {
	Summary SecurityCounts  `json:"summary"`
	Details json.RawMessage `json:"details,omitempty"`
}

// SecurityCounts holds vulnerability counts by severity.
type SecurityCounts struct {
	TotalIssues    int `json:"totalIssues"`
	HighSeverity   int `json:"highSeverity"`
	MediumSeverity int `json:"mediumSeverity"`
	LowSeverity    int `json:"lowSeverity"`
	Score          int `json:"score"`
}

// DetailsText returns details as plain text. A JSON string is unquoted; any
// other JSON value is returned compacted.
func (s *SecuritySummary) DetailsText() string {
	raw := bytes.TrimSpace(s.Details)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Validate normalises the summary after decoding.
func (s *SecuritySummary) Validate() {
	c := &s.Summary
	c.HighSeverity = nonNegative(c.HighSeverity)
	c.MediumSeverity = nonNegative(c.MediumSeverity)
	c.LowSeverity = nonNegative(c.LowSeverity)
	c.TotalIssues = nonNegative(c.TotalIssues)
	if sum := c.HighSeverity + c.MediumSeverity + c.LowSeverity; c.TotalIssues < sum {
		c.TotalIssues = sum
	}
	c.Score = clampInt(c.Score)
}

// TeamSummary is the git-history collaboration summary.
type TeamSummary struct {
	Summary   TeamCounts              `json:"summary"`
	Breakdown map[string]TeamCategory `json:"breakdown,omitempty"`
}

// TeamCounts holds headline collaboration numbers.
type TeamCounts struct {
	TotalCommits   int             `json:"totalCommits"`
	TotalAuthors   int             `json:"totalAuthors"`
	MessageQuality quality.Percent `json:"messageQuality"`
}

// TeamCategory is one scored collaboration category.
type TeamCategory struct {
	Name        string  `json:"-"`
	Score       float64 `json:"score"`
	MaxScore    float64 `json:"maxScore"`
	Description string  `json:"description,omitempty"`
}

// Percent returns the category score as a share of its maximum.
func (c TeamCategory) Percent() int {
	if c.MaxScore <= 0 {
		return 0
	}
	p := int(c.Score/c.MaxScore*100 + 0.5)
	return clampInt(p)
}

// Categories returns the breakdown ordered by name.
func (s *TeamSummary) Categories() []TeamCategory {
	names := make([]string, 0, len(s.Breakdown))
	for name := range s.Breakdown {
		names = append(names, name)
	}
	sort.Strings(names)

	cats := make([]TeamCategory, 0, len(names))
	for _, name := range names {
		c := s.Breakdown[name]
		c.Name = name
		cats = append(cats, c)
	}
	return cats
}

// Validate normalises the summary after decoding.
func (s *TeamSummary) Validate() {
	s.Summary.TotalCommits = nonNegative(s.Summary.TotalCommits)
	s.Summary.TotalAuthors = nonNegative(s.Summary.TotalAuthors)
	s.Summary.MessageQuality = s.Summary.MessageQuality.Clamp()
}

// AISummary is the AI-attribution heuristic summary.
type AISummary struct {
	Summary         AICounts   `json:"summary"`
	Patterns        AIPatterns `json:"patterns"`
	Recommendations []string   `json:"recommendations,omitempty"`
}

// AICounts holds the attribution findings.
type AICounts struct {
	HasAttribution        bool            `json:"hasAttribution"`
	EstimatedAIPercentage quality.Percent `json:"estimatedAiPercentage"`
	AICommits             int             `json:"aiCommits"`
}

// AIPatterns holds code-pattern statistics.
type AIPatterns struct {
	TotalCodeFiles int `json:"totalCodeFiles"`
}

// Validate normalises the summary after decoding.
func (s *AISummary) Validate() {
	s.Summary.EstimatedAIPercentage = s.Summary.EstimatedAIPercentage.Clamp()
	s.Summary.AICommits = nonNegative(s.Summary.AICommits)
	s.Patterns.TotalCodeFiles = nonNegative(s.Patterns.TotalCodeFiles)
	recs := s.Recommendations[:0]
	for _, r := range s.Recommendations {
		if r = strings.TrimSpace(r); r != "" {
			recs = append(recs, r)
		}
	}
	s.Recommendations = recs
}

// CoverageSummary is an istanbul json-summary document.
type CoverageSummary struct {
	Total CoverageTotals `json:"total"`
}

// CoverageTotals holds the four istanbul metrics.
type CoverageTotals struct {
	Lines      CoverageMetric `json:"lines"`
	Statements CoverageMetric `json:"statements"`
	Functions  CoverageMetric `json:"functions"`
	Branches   CoverageMetric `json:"branches"`
}

// CoverageMetric is one istanbul metric.
type CoverageMetric struct {
	Name    string          `json:"-"`
	Total   int             `json:"total"`
	Covered int             `json:"covered"`
	Pct     quality.Percent `json:"pct"`
}

// Metrics returns the metrics in display order.
func (s *CoverageSummary) Metrics() []CoverageMetric {
	t := s.Total
	t.Lines.Name = "Lines"
	t.Statements.Name = "Statements"
	t.Functions.Name = "Functions"
	t.Branches.Name = "Branches"
	return []CoverageMetric{t.Lines, t.Statements, t.Functions, t.Branches}
}

// Validate normalises the summary after decoding. A missing or non-numeric
// pct is derived from covered/total.
func (s *CoverageSummary) Validate() {
	for _, m := range []*CoverageMetric{&s.Total.Lines, &s.Total.Statements, &s.Total.Functions, &s.Total.Branches} {
		m.Total = nonNegative(m.Total)
		m.Covered = nonNegative(m.Covered)
		if m.Pct == 0 && m.Total > 0 && m.Covered > 0 {
			m.Pct = quality.Percent(float64(m.Covered) * 100 / float64(m.Total))
		}
		m.Pct = m.Pct.Clamp()
	}
}

// LighthouseSummary holds Lighthouse category scores.
type LighthouseSummary struct {
	Performance   quality.Percent `json:"performance"`
	Accessibility quality.Percent `json:"accessibility"`
	BestPractices quality.Percent `json:"bestPractices"`
	SEO           quality.Percent `json:"seo"`
}

// LighthouseCategory is one named Lighthouse score.
type LighthouseCategory struct {
	Name  string
	Score quality.Percent
}

// Categories returns the scores in display order.
func (s *LighthouseSummary) Categories() []LighthouseCategory {
	return []LighthouseCategory{
		{Name: "Performance", Score: s.Performance},
		{Name: "Accessibility", Score: s.Accessibility},
		{Name: "Best Practices", Score: s.BestPractices},
		{Name: "SEO", Score: s.SEO},
	}
}

// Validate normalises the summary after decoding. Lighthouse reports scores
// as 0-1 fractions; when every score is at most 1 they are scaled to 0-100.
func (s *LighthouseSummary) Validate() {
	scores := []*quality.Percent{&s.Performance, &s.Accessibility, &s.BestPractices, &s.SEO}
	fractional := true
	for _, p := range scores {
		if *p > 1 {
			fractional = false
		}
	}
	for _, p := range scores {
		if fractional {
			*p *= 100
		}
		*p = p.Clamp()
	}
}

// TestSummary is the test-runner summary.
type TestSummary struct {
	Summary TestCounts `json:"summary"`
}

// TestCounts holds test-run totals.
type TestCounts struct {
	TestFiles  int    `json:"testFiles"`
	TotalTests int    `json:"totalTests"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Framework  string `json:"framework,omitempty"`
}

// Validate normalises the summary after decoding.
func (s *TestSummary) Validate() {
	c := &s.Summary
	c.TestFiles = nonNegative(c.TestFiles)
	c.Passed = nonNegative(c.Passed)
	c.Failed = nonNegative(c.Failed)
	c.TotalTests = nonNegative(c.TotalTests)
	if c.TotalTests < c.Passed+c.Failed {
		c.TotalTests = c.Passed + c.Failed
	}
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
