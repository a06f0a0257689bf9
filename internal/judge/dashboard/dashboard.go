package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/build-flow-labs/judge/internal/judge/score"
)

//go:embed templates/*.html
var embeddedFS embed.FS

// IndexFile is the name of the generated leaderboard page.
const IndexFile = "index.html"

// NoTeams is shown when no team has a score breakdown yet.
const NoTeams = "No team reports have been generated yet."

var indexTmpl = template.Must(template.New("").Funcs(template.FuncMap{
	"gradeClass": gradeClass,
	"formatTime": formatTime,
	"add1":       func(i int) int { return i + 1 },
	"label":      func(c score.Component) string { return c.Label() },
	"scoreOf":    func(s score.Scores, c score.Component) int { return s.Get(c) },
}).ParseFS(embeddedFS, "templates/index.html"))

type indexData struct {
	Generated  time.Time
	Stats      Stats
	Records    []TeamRecord
	Components []score.Component
	NoTeams    string
	Passing    int
}

// RenderIndex renders the leaderboard page for the given records, which
// should already be sorted.
func RenderIndex(records []TeamRecord, now time.Time) (string, error) {
	data := indexData{
		Generated:  now,
		Stats:      ComputeStats(records),
		Records:    records,
		Components: score.Components,
		NoTeams:    NoTeams,
		Passing:    PassingScore,
	}
	var buf bytes.Buffer
	if err := indexTmpl.ExecuteTemplate(&buf, "index", data); err != nil {
		return "", fmt.Errorf("rendering index: %w", err)
	}
	return buf.String(), nil
}

// WriteIndex renders the leaderboard and writes it to <root>/index.html.
func WriteIndex(root string, records []TeamRecord, now time.Time) (string, error) {
	html, err := RenderIndex(records, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("creating reports dir: %w", err)
	}
	p := filepath.Join(root, IndexFile)
	if err := os.WriteFile(p, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("writing index: %w", err)
	}
	return p, nil
}

// Dashboard serves the live leaderboard and the generated reports.
type Dashboard struct {
	index  *Index
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Dashboard and indexes the existing breakdowns under root.
func New(root string, logger *slog.Logger) *Dashboard {
	idx := NewIndex(root, logger)
	if err := idx.Load(); err != nil {
		logger.Warn("failed to load initial team records", "error", err)
	}
	return &Dashboard{
		index:  idx,
		root:   root,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Index returns the dashboard's record index.
func (d *Dashboard) Index() *Index {
	return d.index
}

// RegisterRoutes adds dashboard routes to the given mux.
func (d *Dashboard) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", d.handleIndex)
	mux.HandleFunc("GET /api/teams", d.handleAPIList)
	mux.HandleFunc("GET /api/teams/{team}/{pr}", d.handleAPIDetail)
	mux.Handle("GET /", http.FileServer(http.Dir(d.root)))
}

// Refresh reloads records from the reports root.
func (d *Dashboard) Refresh() {
	if err := d.index.Load(); err != nil {
		d.logger.Error("dashboard refresh failed", "error", err)
	}
}

// Template helper functions

func gradeClass(grade string) string {
	switch grade {
	case "A", "B", "C", "D":
		return "grade-" + grade
	default:
		return "grade-F"
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
