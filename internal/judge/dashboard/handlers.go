package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	d.Refresh()
	records := d.index.List(ListOptions{Latest: r.URL.Query().Get("all") != "true"})

	html, err := RenderIndex(records, d.now())
	if err != nil {
		d.logger.Error("rendering index", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (d *Dashboard) handleAPIList(w http.ResponseWriter, r *http.Request) {
	d.Refresh()
	records := d.index.List(parseListOptions(r))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Stats   Stats        `json:"stats"`
		Records []TeamRecord `json:"records"`
	}{ComputeStats(records), records})
}

func (d *Dashboard) handleAPIDetail(w http.ResponseWriter, r *http.Request) {
	pr, err := strconv.Atoi(r.PathValue("pr"))
	if err != nil {
		http.Error(w, "invalid PR number", http.StatusBadRequest)
		return
	}

	rec, ok := d.index.Get(r.PathValue("team"), pr)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func parseListOptions(r *http.Request) ListOptions {
	return ListOptions{
		Team:   r.URL.Query().Get("team"),
		Grade:  r.URL.Query().Get("grade"),
		Latest: r.URL.Query().Get("latest") == "true",
	}
}
