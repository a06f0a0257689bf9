package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const prPrefix = "pr-"

// Slug converts a team name into a lowercase directory-safe name. Runs of
// characters other than letters and digits collapse to a single dash.
func Slug(team string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(team)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "team"
	}
	return s
}

// Dir returns the PR directory of a team: <root>/<team-slug>/pr-<n>.
func Dir(root, team string, pr int) string {
	return filepath.Join(root, Slug(team), prPrefix+strconv.Itoa(pr))
}

// ParseDir extracts the team slug and PR number from a PR directory path.
func ParseDir(dir string) (slug string, pr int, ok bool) {
	dir = filepath.Clean(dir)
	base := filepath.Base(dir)
	if !strings.HasPrefix(base, prPrefix) {
		return "", 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(base, prPrefix))
	if err != nil || n < 0 {
		return "", 0, false
	}
	slug = filepath.Base(filepath.Dir(dir))
	if slug == "." || slug == string(filepath.Separator) {
		return "", 0, false
	}
	return slug, n, true
}

// ReportFileName returns the per-team report file name.
func ReportFileName(team string) string {
	return fmt.Sprintf("report-%s.html", Slug(team))
}

// PRDirs lists every <root>/<team>/pr-<n> directory in lexical order. A
// missing root yields no directories.
func PRDirs(root string) ([]string, error) {
	teams, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading reports dir: %w", err)
	}

	var dirs []string
	for _, team := range teams {
		if !team.IsDir() {
			continue
		}
		prs, err := os.ReadDir(filepath.Join(root, team.Name()))
		if err != nil {
			continue
		}
		for _, pr := range prs {
			if !pr.IsDir() {
				continue
			}
			dir := filepath.Join(root, team.Name(), pr.Name())
			if _, _, ok := ParseDir(dir); ok {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs, nil
}
