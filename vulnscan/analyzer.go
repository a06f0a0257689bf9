package vulnscan

import (
	"fmt"
	"strings"
)

// GateThreshold defines the vulnerability threshold for gating.
type GateThreshold string

const (
	// GateNoCritical fails if any CRITICAL vulnerabilities are found.
	GateNoCritical GateThreshold = "no_critical"
	// GateNoCriticalHigh fails if any CRITICAL or HIGH vulnerabilities are found.
	GateNoCriticalHigh GateThreshold = "no_critical_high"
	// GateNoCriticalHighMedium fails on any CRITICAL, HIGH or MEDIUM vulnerability.
	GateNoCriticalHighMedium GateThreshold = "no_critical_high_medium"
	// GateNoVulnerabilities fails if any vulnerabilities are found.
	GateNoVulnerabilities GateThreshold = "no_vulnerabilities"
)

// VulnSummary contains counts of vulnerabilities by severity.
type VulnSummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Unknown  int `json:"unknown"`
	Total    int `json:"total"`
}

// Score rates the summary on 0-100: each critical costs 25 points, each high
// 10, each medium 3 and each low 1.
func (s VulnSummary) Score() int {
	penalty := s.Critical*25 + s.High*10 + s.Medium*3 + s.Low
	if penalty >= 100 {
		return 0
	}
	return 100 - penalty
}

// VulnAnalysis contains the analysis results and gate decision.
type VulnAnalysis struct {
	Summary       VulnSummary   `json:"summary"`
	PassesGate    bool          `json:"passes_gate"`
	GateThreshold GateThreshold `json:"gate_threshold"`
	GateMessage   string        `json:"gate_message"`
	TopFindings   []VulnFinding `json:"top_findings,omitempty"`
}

// VulnFinding is a finding in the condensed form used by CLI output.
type VulnFinding struct {
	ID         string `json:"id"`
	Package    string `json:"package"`
	Version    string `json:"version"`
	FixVersion string `json:"fix_version,omitempty"`
	Severity   string `json:"severity"`
	Title      string `json:"title,omitempty"`
	HasFix     bool   `json:"has_fix"`
}

// Analyzer summarises Trivy findings and applies a gate.
type Analyzer struct {
	Threshold     GateThreshold
	IgnoreUnfixed bool
	// TopN bounds the number of findings in the analysis.
	TopN int
}

// NewAnalyzer creates an analyzer with the given threshold.
func NewAnalyzer(threshold GateThreshold) *Analyzer {
	return &Analyzer{
		Threshold: threshold,
		TopN:      10,
	}
}

// Analyze processes a Trivy result and returns the analysis. A nil result is
// treated as a clean scan.
func (a *Analyzer) Analyze(result *TrivyResult) *VulnAnalysis {
	vulns := result.SortedVulnerabilities()

	if a.IgnoreUnfixed {
		fixable := vulns[:0]
		for _, v := range vulns {
			if v.HasFixedVersion() {
				fixable = append(fixable, v)
			}
		}
		vulns = fixable
	}

	summary := Summarize(vulns)
	passes, message := a.checkGate(summary)

	return &VulnAnalysis{
		Summary:       summary,
		PassesGate:    passes,
		GateThreshold: a.Threshold,
		GateMessage:   message,
		TopFindings:   topFindings(vulns, a.TopN),
	}
}

// AnalyzeFromJSON parses Trivy output and returns the analysis.
func (a *Analyzer) AnalyzeFromJSON(data []byte) (*VulnAnalysis, error) {
	result, err := ParseTrivyJSON(data)
	if err != nil {
		return nil, err
	}
	return a.Analyze(result), nil
}

// Summarize counts vulnerabilities by severity.
func Summarize(vulns []Vulnerability) VulnSummary {
	summary := VulnSummary{Total: len(vulns)}
	for _, v := range vulns {
		switch NormalizeSeverity(v.Severity) {
		case SeverityCritical:
			summary.Critical++
		case SeverityHigh:
			summary.High++
		case SeverityMedium:
			summary.Medium++
		case SeverityLow:
			summary.Low++
		default:
			summary.Unknown++
		}
	}
	return summary
}

// checkGate determines if the summary passes the configured threshold.
func (a *Analyzer) checkGate(s VulnSummary) (bool, string) {
	var counts []string
	add := func(n int, label string) {
		if n > 0 {
			counts = append(counts, formatCount(n, label))
		}
	}

	switch a.Threshold {
	case GateNoCritical:
		add(s.Critical, "critical")
		if len(counts) == 0 {
			return true, "Gate passed: no critical vulnerabilities"
		}
	case GateNoCriticalHighMedium:
		add(s.Critical, "critical")
		add(s.High, "high")
		add(s.Medium, "medium")
		if len(counts) == 0 {
			return true, "Gate passed: no critical, high, or medium vulnerabilities"
		}
	case GateNoVulnerabilities:
		add(s.Total, "")
		if len(counts) == 0 {
			return true, "Gate passed: no vulnerabilities"
		}
	default:
		add(s.Critical, "critical")
		add(s.High, "high")
		if len(counts) == 0 {
			return true, "Gate passed: no critical or high vulnerabilities"
		}
	}
	return false, "Gate failed: " + strings.Join(counts, ", ") + " vulnerability(ies) found"
}

// topFindings condenses the first limit findings; vulns must already be sorted.
func topFindings(vulns []Vulnerability, limit int) []VulnFinding {
	if limit > 0 && len(vulns) > limit {
		vulns = vulns[:limit]
	}

	findings := make([]VulnFinding, 0, len(vulns))
	for _, v := range vulns {
		findings = append(findings, VulnFinding{
			ID:         v.VulnerabilityID,
			Package:    v.PkgName,
			Version:    v.InstalledVersion,
			FixVersion: v.FixedVersion,
			Severity:   NormalizeSeverity(v.Severity),
			Title:      v.Summary(),
			HasFix:     v.HasFixedVersion(),
		})
	}
	return findings
}

func formatCount(count int, label string) string {
	if label == "" {
		return fmt.Sprintf("%d", count)
	}
	return fmt.Sprintf("%s(%d)", label, count)
}

// ParseGateThreshold converts a string to a GateThreshold.
func ParseGateThreshold(s string) GateThreshold {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no_critical", "critical":
		return GateNoCritical
	case "no_critical_high_medium", "medium":
		return GateNoCriticalHighMedium
	case "no_vulnerabilities", "none", "all":
		return GateNoVulnerabilities
	default:
		return GateNoCriticalHigh
	}
}
