package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/judge/vulnscan"
)

// ErrGateFailed is returned when the vulnerability gate does not pass.
var ErrGateFailed = errors.New("vulnerability gate failed")

var (
	vulnInput         string
	vulnThreshold     string
	vulnIgnoreUnfixed bool
	vulnJSON          bool
)

var vulnCmd = &cobra.Command{
	Use:   "vuln",
	Short: "Analyze vulnerability scan results",
}

var vulnAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize Trivy results and check a severity gate",
	Long: `Reads Trivy JSON output (a bare array of targets or the full report object),
prints a severity summary with the top findings and exits non-zero when the
gate fails.

Thresholds:
  no_critical               fail on any critical
  no_critical_high          fail on any critical or high (default)
  no_critical_high_medium   fail on any critical, high or medium
  no_vulnerabilities        fail on any vulnerability`,
	Example: `  judge vuln analyze -i reports/team-rocket/pr-7/trivy-results.json -t no_critical`,
	RunE:    runVulnAnalyze,
}

func init() {
	vulnAnalyzeCmd.Flags().StringVarP(&vulnInput, "input", "i", "", "Trivy JSON output file (required)")
	vulnAnalyzeCmd.Flags().StringVarP(&vulnThreshold, "threshold", "t", string(vulnscan.GateNoCriticalHigh), "Gate threshold")
	vulnAnalyzeCmd.Flags().BoolVar(&vulnIgnoreUnfixed, "ignore-unfixed", false, "Ignore vulnerabilities without fixes")
	vulnAnalyzeCmd.Flags().BoolVar(&vulnJSON, "json", false, "Output as JSON")
	vulnAnalyzeCmd.MarkFlagRequired("input")

	vulnCmd.AddCommand(vulnAnalyzeCmd)
}

func runVulnAnalyze(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(vulnInput)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	analyzer := vulnscan.NewAnalyzer(vulnscan.ParseGateThreshold(vulnThreshold))
	analyzer.IgnoreUnfixed = vulnIgnoreUnfixed

	analysis, err := analyzer.AnalyzeFromJSON(data)
	if err != nil {
		return fmt.Errorf("analyzing vulnerabilities: %w", err)
	}

	out := cmd.OutOrStdout()
	if vulnJSON {
		enc, _ := json.MarshalIndent(analysis, "", "  ")
		fmt.Fprintln(out, string(enc))
	} else {
		printVulnAnalysis(out, analysis)
	}

	if !analysis.PassesGate {
		return ErrGateFailed
	}
	return nil
}

func printVulnAnalysis(out io.Writer, a *vulnscan.VulnAnalysis) {
	status := "PASSED"
	if !a.PassesGate {
		status = "FAILED"
	}

	fmt.Fprintf(out, "Vulnerability Analysis\n")
	fmt.Fprintf(out, "======================\n\n")
	fmt.Fprintf(out, "Gate Threshold: %s\n", a.GateThreshold)
	fmt.Fprintf(out, "Gate Status: %s\n\n", status)

	s := a.Summary
	fmt.Fprintf(out, "Summary:\n")
	fmt.Fprintf(out, "  Critical: %d\n", s.Critical)
	fmt.Fprintf(out, "  High:     %d\n", s.High)
	fmt.Fprintf(out, "  Medium:   %d\n", s.Medium)
	fmt.Fprintf(out, "  Low:      %d\n", s.Low)
	fmt.Fprintf(out, "  Total:    %d\n", s.Total)
	fmt.Fprintf(out, "  Score:    %d/100\n\n", s.Score())

	if len(a.TopFindings) > 0 {
		fmt.Fprintf(out, "Top Findings:\n")
		for _, f := range a.TopFindings {
			fix := "no fix"
			if f.HasFix {
				fix = f.FixVersion
			}
			fmt.Fprintf(out, "  [%s] %s in %s@%s (%s)\n", f.Severity, f.ID, f.Package, f.Version, fix)
		}
	}

	if a.GateMessage != "" {
		fmt.Fprintf(out, "\n%s\n", a.GateMessage)
	}
}
