package quality

import (
	"sort"
	"strings"
)

// Sonar severities from most to least severe.
const (
	SeverityBlocker  = "BLOCKER"
	SeverityCritical = "CRITICAL"
	SeverityMajor    = "MAJOR"
	SeverityMinor    = "MINOR"
	SeverityInfo     = "INFO"
)

// Severities lists known severities in rank order.
var Severities = []string{SeverityBlocker, SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo}

// SeverityRank returns the sort rank of a severity. Lower is more severe;
// unknown severities rank after INFO.
func SeverityRank(severity string) int {
	s := strings.ToUpper(strings.TrimSpace(severity))
	for i, known := range Severities {
		if s == known {
			return i
		}
	}
	return len(Severities)
}

// issueKey identifies an issue across sources.
type issueKey struct {
	file    string
	line    int
	typ     string
	message string
}

// IssueSet is an insertion-ordered set of issues keyed by
// (file, line, type, message). An issue without a type matches a present
// issue of any type at the same file, line and message.
type IssueSet struct {
	seen    map[issueKey]struct{}
	untyped map[issueKey]struct{}
	issues  []Issue
}

// NewIssueSet creates an empty set.
func NewIssueSet() *IssueSet {
	return &IssueSet{
		seen:    make(map[issueKey]struct{}),
		untyped: make(map[issueKey]struct{}),
	}
}

// Add inserts the issue unless an issue with the same key is already present.
// It reports whether the issue was added.
func (s *IssueSet) Add(iss Issue) bool {
	iss = normalize(iss)
	k := issueKey{file: iss.File, line: iss.Line, typ: iss.Type, message: iss.Message}
	loose := issueKey{file: iss.File, line: iss.Line, message: iss.Message}

	if _, dup := s.seen[k]; dup {
		return false
	}
	if _, dup := s.untyped[loose]; dup && iss.Type == "" {
		return false
	}
	s.seen[k] = struct{}{}
	s.untyped[loose] = struct{}{}
	s.issues = append(s.issues, iss)
	return true
}

// Len returns the number of distinct issues.
func (s *IssueSet) Len() int {
	return len(s.issues)
}

// Issues returns the issues in insertion order.
func (s *IssueSet) Issues() []Issue {
	out := make([]Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

func normalize(iss Issue) Issue {
	iss.File = iss.Path()
	iss.Type = strings.ToUpper(strings.TrimSpace(iss.Type))
	iss.Severity = strings.ToUpper(strings.TrimSpace(iss.Severity))
	iss.Message = strings.TrimSpace(iss.Message)
	return iss
}

// MergeIssues collects every issue of the summary into one de-duplicated list
// ordered by severity then file name.
//
// Sources are read in fixed priority: detailed_reports.*.by_file, then
// detailed_reports.*.issues, then files_affected.most_affected_files. A later
// source only contributes issues whose key is not already present.
func MergeIssues(s *Summary) []Issue {
	if s == nil {
		return nil
	}
	set := NewIssueSet()

	for _, cat := range Categories {
		report, ok := s.DetailedReports[cat]
		if !ok {
			continue
		}
		files := make([]string, 0, len(report.ByFile))
		for f := range report.ByFile {
			files = append(files, f)
		}
		sort.Strings(files)
		for _, f := range files {
			for _, iss := range report.ByFile[f] {
				if iss.File == "" && iss.Component == "" {
					iss.File = f
				}
				set.Add(withCategory(iss, cat))
			}
		}
	}

	for _, cat := range Categories {
		for _, iss := range s.DetailedReports[cat].Issues {
			set.Add(withCategory(iss, cat))
		}
	}

	if s.FilesAffected != nil {
		for _, af := range s.FilesAffected.MostAffectedFiles {
			for _, iss := range af.Issues {
				if iss.File == "" && iss.Component == "" {
					iss.File = af.File
				}
				set.Add(iss)
			}
		}
	}

	issues := set.Issues()
	SortIssues(issues)
	return issues
}

func withCategory(iss Issue, cat string) Issue {
	if strings.TrimSpace(iss.Type) == "" {
		iss.Type = categoryType[cat]
	}
	return iss
}

// SortIssues orders issues by severity rank then file name. Equal issues keep
// their relative order.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		ri, rj := SeverityRank(issues[i].Severity), SeverityRank(issues[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return issues[i].File < issues[j].File
	})
}

// CountBySeverity tallies issues per known severity; unknown severities are
// counted under "UNKNOWN".
func CountBySeverity(issues []Issue) map[string]int {
	counts := make(map[string]int)
	for _, iss := range issues {
		if SeverityRank(iss.Severity) == len(Severities) {
			counts["UNKNOWN"]++
			continue
		}
		counts[strings.ToUpper(iss.Severity)]++
	}
	return counts
}
