package score

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// BreakdownFile is the artifact name of a persisted Breakdown.
const BreakdownFile = "score-breakdown.json"

// InputsFile is the optional artifact holding raw component scores.
const InputsFile = "score-inputs.json"

// Save writes the breakdown to dir/score-breakdown.json, creating dir if needed.
func Save(dir string, b *Breakdown) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling breakdown: %w", err)
	}

	path := filepath.Join(dir, BreakdownFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Load reads a persisted breakdown.
func Load(path string) (*Breakdown, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Breakdown
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &b, nil
}

// ReadInputs reads raw component scores from a JSON object such as
// {"test": 80, "sonar": "70%", "security": null}. Values of any JSON type are
// passed through Sanitize; unknown keys are ignored.
func ReadInputs(path string) (Scores, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scores{}, err
	}
	return ParseInputs(data)
}

// ParseInputs decodes raw component scores from JSON. See ReadInputs.
func ParseInputs(data []byte) (Scores, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Scores{}, fmt.Errorf("parsing score inputs: %w", err)
	}

	raw := make(map[Component]string, len(Components))
	for _, c := range Components {
		if v, ok := fields[string(c)]; ok {
			raw[c] = string(v)
		}
	}
	return ParseScores(raw), nil
}
