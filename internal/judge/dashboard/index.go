// Package dashboard builds the cross-team leaderboard from the score
// breakdowns under the reports directory and serves it over HTTP.
package dashboard

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/build-flow-labs/judge/internal/judge/bundle"
	"github.com/build-flow-labs/judge/internal/judge/score"
)

// PassingScore is the overall score at or above which a team counts as passing.
const PassingScore = 70

// TeamRecord is a denormalized score breakdown for one team's pull request.
type TeamRecord struct {
	Team         string       `json:"team"`
	Slug         string       `json:"slug"`
	PRNumber     int          `json:"pr_number"`
	OverallScore int          `json:"overall_score"`
	Grade        string       `json:"grade"`
	Scores       score.Scores `json:"scores"`
	// ReportPath is the report location relative to the reports root, with
	// forward slashes so it can be used as a link from index.html.
	ReportPath string    `json:"report_path"`
	Modified   time.Time `json:"modified"`
}

// ListOptions controls filtering of record listings.
type ListOptions struct {
	Team  string // team name or slug substring (case-insensitive)
	Grade string
	// Latest keeps only the most recent pull request per team.
	Latest bool
}

// Index is an in-memory store of team records.
type Index struct {
	mu      sync.RWMutex
	records []TeamRecord
	root    string
	logger  *slog.Logger
}

// NewIndex creates an index over a reports root.
func NewIndex(root string, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{root: root, logger: logger}
}

// Load scans <root>/<team>/pr-<n>/score-breakdown.json. A missing root yields
// an empty index; unreadable or corrupt breakdowns are skipped.
func (idx *Index) Load() error {
	dirs, err := bundle.PRDirs(idx.root)
	if err != nil {
		return err
	}

	var records []TeamRecord
	for _, dir := range dirs {
		rec, err := loadRecord(idx.root, dir)
		if err != nil {
			if !os.IsNotExist(err) {
				idx.logger.Warn("skipping team record", "dir", dir, "error", err)
			}
			continue
		}
		records = append(records, rec)
	}
	SortRecords(records)

	idx.mu.Lock()
	idx.records = records
	idx.mu.Unlock()
	return nil
}

// loadRecord reads a PR directory's breakdown into a TeamRecord.
func loadRecord(root, dir string) (TeamRecord, error) {
	p := filepath.Join(dir, score.BreakdownFile)
	info, err := os.Stat(p)
	if err != nil {
		return TeamRecord{}, err
	}
	b, err := score.Load(p)
	if err != nil {
		return TeamRecord{}, err
	}

	slug, pr, _ := bundle.ParseDir(dir)
	team := b.Team
	if team == "" {
		team = slug
	}
	if b.PRNumber != 0 {
		pr = b.PRNumber
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return TeamRecord{}, fmt.Errorf("resolving report path: %w", err)
	}

	return TeamRecord{
		Team:         team,
		Slug:         slug,
		PRNumber:     pr,
		OverallScore: b.OverallScore,
		Grade:        b.Grade,
		Scores:       b.Scores(),
		ReportPath:   path.Join(filepath.ToSlash(rel), bundle.ReportFileName(team)),
		Modified:     info.ModTime().UTC(),
	}, nil
}

// List returns records matching the given options, best score first.
func (idx *Index) List(opts ListOptions) []TeamRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	source := idx.records
	if opts.Latest {
		source = latestPerTeam(source)
	}

	filtered := make([]TeamRecord, 0, len(source))
	team := strings.ToLower(opts.Team)
	for _, r := range source {
		if team != "" && !strings.Contains(strings.ToLower(r.Team), team) && !strings.Contains(r.Slug, team) {
			continue
		}
		if opts.Grade != "" && !strings.EqualFold(r.Grade, opts.Grade) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// Get returns the record of a team slug and PR number.
func (idx *Index) Get(slug string, pr int) (TeamRecord, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, r := range idx.records {
		if r.Slug == slug && r.PRNumber == pr {
			return r, true
		}
	}
	return TeamRecord{}, false
}

// Count returns the total number of indexed records.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// latestPerTeam keeps the most recently modified record of each team slug,
// preferring the higher PR number on equal times. Order is preserved.
func latestPerTeam(records []TeamRecord) []TeamRecord {
	best := make(map[string]int)
	for i, r := range records {
		j, ok := best[r.Slug]
		if !ok {
			best[r.Slug] = i
			continue
		}
		cur := records[j]
		if r.Modified.After(cur.Modified) || (r.Modified.Equal(cur.Modified) && r.PRNumber > cur.PRNumber) {
			best[r.Slug] = i
		}
	}

	out := make([]TeamRecord, 0, len(best))
	for i, r := range records {
		if best[r.Slug] == i {
			out = append(out, r)
		}
	}
	return out
}

// SortRecords orders records by overall score, highest first. Ties keep
// their discovery order.
func SortRecords(records []TeamRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].OverallScore > records[j].OverallScore
	})
}

// Stats summarises a set of records.
type Stats struct {
	Teams   int     `json:"teams"`
	Average float64 `json:"average"`
	Passing int     `json:"passing"`
}

// AverageText formats the mean score with one decimal.
func (s Stats) AverageText() string {
	return strconv.FormatFloat(s.Average, 'f', 1, 64)
}

// ComputeStats returns the team count, mean overall score (0 when empty) and
// the number of records at or above PassingScore.
func ComputeStats(records []TeamRecord) Stats {
	s := Stats{Teams: len(records)}
	if len(records) == 0 {
		return s
	}
	total := 0
	for _, r := range records {
		total += r.OverallScore
		if r.OverallScore >= PassingScore {
			s.Passing++
		}
	}
	s.Average = float64(total) / float64(len(records))
	return s
}
