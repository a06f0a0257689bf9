// Package vulnscan reads Trivy findings for a pull request and summarises them
// by severity, with an optional pass/fail gate for CI.
package vulnscan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ResultsFile is the artifact name of the raw Trivy findings.
const ResultsFile = "trivy-results.json"

// Severity levels for vulnerabilities
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
	SeverityUnknown  = "UNKNOWN"
)

// Vulnerability is one Trivy finding.
type Vulnerability struct {
	VulnerabilityID  string   `json:"VulnerabilityID"`
	PkgName          string   `json:"PkgName"`
	InstalledVersion string   `json:"InstalledVersion"`
	FixedVersion     string   `json:"FixedVersion,omitempty"`
	Severity         string   `json:"Severity"`
	Title            string   `json:"Title,omitempty"`
	Description      string   `json:"Description,omitempty"`
	PrimaryURL       string   `json:"PrimaryURL,omitempty"`
	References       []string `json:"References,omitempty"`
}

// HasFixedVersion returns true if the vulnerability has a known fix.
func (v *Vulnerability) HasFixedVersion() bool {
	return v.FixedVersion != "" && !strings.EqualFold(v.FixedVersion, "none")
}

// Summary returns the title, falling back to the first line of the description.
func (v *Vulnerability) Summary() string {
	if v.Title != "" {
		return v.Title
	}
	line, _, _ := strings.Cut(strings.TrimSpace(v.Description), "\n")
	return line
}

// Links returns the primary URL followed by the references, without duplicates.
func (v *Vulnerability) Links() []string {
	seen := make(map[string]bool)
	var links []string
	for _, l := range append([]string{v.PrimaryURL}, v.References...) {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		links = append(links, l)
	}
	return links
}

// Target is one scanned target (lockfile, image layer, directory).
type Target struct {
	Target          string          `json:"Target"`
	Class           string          `json:"Class,omitempty"`
	Type            string          `json:"Type,omitempty"`
	Vulnerabilities []Vulnerability `json:"Vulnerabilities,omitempty"`
}

// TrivyResult is the parsed Trivy output.
type TrivyResult struct {
	ArtifactName string   `json:"ArtifactName,omitempty"`
	Results      []Target `json:"Results"`
}

// ParseTrivyJSON parses Trivy output. Both the full report object
// ({"Results": [...]}) and a bare array of targets are accepted.
func ParseTrivyJSON(data []byte) (*TrivyResult, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty trivy output")
	}

	if data[0] == '[' {
		var targets []Target
		if err := json.Unmarshal(data, &targets); err != nil {
			return nil, fmt.Errorf("parsing trivy targets: %w", err)
		}
		return &TrivyResult{Results: targets}, nil
	}

	var result TrivyResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing trivy report: %w", err)
	}
	return &result, nil
}

// ReadFile reads and parses a Trivy output file.
func ReadFile(path string) (*TrivyResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseTrivyJSON(data)
}

// GetAllVulnerabilities returns all vulnerabilities from all targets.
func (r *TrivyResult) GetAllVulnerabilities() []Vulnerability {
	if r == nil {
		return nil
	}
	var all []Vulnerability
	for _, target := range r.Results {
		all = append(all, target.Vulnerabilities...)
	}
	return all
}

// FilterBySeverity returns vulnerabilities matching the given severities.
func (r *TrivyResult) FilterBySeverity(severities ...string) []Vulnerability {
	want := make(map[string]bool)
	for _, s := range severities {
		want[NormalizeSeverity(s)] = true
	}

	var filtered []Vulnerability
	for _, v := range r.GetAllVulnerabilities() {
		if want[NormalizeSeverity(v.Severity)] {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// SortedVulnerabilities returns all findings, most severe first. Findings of
// equal severity keep their scan order.
func (r *TrivyResult) SortedVulnerabilities() []Vulnerability {
	vulns := r.GetAllVulnerabilities()
	sort.SliceStable(vulns, func(i, j int) bool {
		return SeverityRank(vulns[i].Severity) > SeverityRank(vulns[j].Severity)
	})
	return vulns
}

// NormalizeSeverity converts various severity formats to standard form.
func NormalizeSeverity(severity string) string {
	switch strings.ToUpper(strings.TrimSpace(severity)) {
	case "CRITICAL", "CRIT":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM", "MODERATE", "MED":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// SeverityRank returns a numeric rank for severity comparison.
// Higher rank means more severe.
func SeverityRank(severity string) int {
	switch NormalizeSeverity(severity) {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}
