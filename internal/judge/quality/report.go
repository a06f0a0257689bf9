package quality

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ReportFile is the artifact name of the formatted quality report.
const ReportFile = "quality-report.json"

// maxRepairBraces bounds how many closing braces DecodeReport appends.
const maxRepairBraces = 5

// Report is the formatted issue text produced for the PR comment. The
// producing step may be cut off mid-write, so the payload can be truncated.
type Report struct {
	FormattedReport string `json:"formatted_report"`
	TotalIssues     int    `json:"total_issues,omitempty"`
}

// HasText reports whether the report carries non-blank formatted text.
func (r *Report) HasText() bool {
	return r != nil && strings.TrimSpace(r.FormattedReport) != ""
}

// DecodeReport parses a quality report. If the payload does not parse, closing
// braces are appended one at a time (up to five) and parsing is retried.
// repaired is true when a retry succeeded.
func DecodeReport(data []byte) (r *Report, repaired bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, errors.New("empty quality report")
	}

	var report Report
	firstErr := json.Unmarshal(data, &report)
	if firstErr == nil {
		return &report, false, nil
	}

	candidate := make([]byte, len(data), len(data)+maxRepairBraces)
	copy(candidate, data)
	for i := 0; i < maxRepairBraces; i++ {
		candidate = append(candidate, '}')
		report = Report{}
		if json.Unmarshal(candidate, &report) == nil {
			return &report, true, nil
		}
	}
	return nil, false, fmt.Errorf("parsing quality report: %w", firstErr)
}
