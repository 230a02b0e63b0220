package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/biodash/internal/aggregate"
	"github.com/sells-group/biodash/internal/dataset"
	"github.com/sells-group/biodash/internal/export"
	"github.com/sells-group/biodash/internal/filter"
	"github.com/sells-group/biodash/internal/zone"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.sessions.Create()
	fs, _ := s.sessions.Get(id)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "filter": fs})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fs, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "filter": fs})
}

// filterUpdate is the wire shape of a filter change: dates in the source
// day-month-year format, empty meaning unset.
type filterUpdate struct {
	From     string `json:"from"`
	To       string `json:"to"`
	State    string `json:"state"`
	District string `json:"district"`
}

func (u filterUpdate) toState() (filter.State, error) {
	fs := filter.NewState()
	if u.State != "" {
		fs.State = u.State
	}
	if u.District != "" {
		fs.District = u.District
	}
	var err error
	if fs.From, err = parseDate(u.From); err != nil {
		return fs, err
	}
	if fs.To, err = parseDate(u.To); err != nil {
		return fs, err
	}
	return fs, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dataset.DateFormat, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Server) handleUpdateFilter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var upd filterUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	fs, err := upd.toState()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected DD-MM-YYYY")
		return
	}
	if !s.sessions.Set(id, fs) {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	// Recompute immediately so the caller can refresh its widgets from one
	// response.
	ds, err := s.cache.Dataset(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "no data available")
		return
	}
	sub := filter.Apply(ds, fs)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"filter":  fs,
		"metrics": metricsResponse(aggregate.ComputeMetrics(sub)),
	})
}

// filterFromRequest resolves the effective FilterState: a stored session
// when ?session= is given, otherwise ad-hoc query parameters.
func (s *Server) filterFromRequest(r *http.Request) (filter.State, bool) {
	q := r.URL.Query()
	if id := q.Get("session"); id != "" {
		fs, ok := s.sessions.Get(id)
		return fs, ok
	}

	upd := filterUpdate{
		From:     q.Get("from"),
		To:       q.Get("to"),
		State:    q.Get("state"),
		District: q.Get("district"),
	}
	fs, err := upd.toState()
	if err != nil {
		return fs, false
	}
	return fs, true
}

// filtered returns the dataset narrowed by the request's filter, or nil
// after writing an error response.
func (s *Server) filtered(w http.ResponseWriter, r *http.Request) *dataset.Dataset {
	fs, ok := s.filterFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid filter")
		return nil
	}
	ds, err := s.cache.Dataset(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "no data available")
		return nil
	}
	return filter.Apply(ds, fs)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	ds, err := s.cache.Dataset(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "no data available")
		return
	}

	resp := map[string]any{
		"states":    filter.StateChoices(ds),
		"districts": filter.DistrictChoices(ds, r.URL.Query().Get("state")),
		"has_dates": ds.HasDates(),
	}
	if min, max, ok := filter.DateBounds(ds); ok {
		resp["from"] = min.Format(dataset.DateFormat)
		resp["to"] = max.Format(dataset.DateFormat)
	}
	writeJSON(w, http.StatusOK, resp)
}

func metricsResponse(m aggregate.Metrics) map[string]any {
	return map[string]any{
		"records":           m.Records,
		"records_formatted": aggregate.FormatCount(m.Records),
		"bio_age_5_17":      m.AgeYoung,
		"bio_age_17_":       m.AgeAdult,
		"total":             m.Total,
		"total_formatted":   aggregate.FormatCount(m.Total),
		"young_pct":         m.YoungPct,
		"adult_pct":         m.AdultPct,
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	writeJSON(w, http.StatusOK, metricsResponse(aggregate.ComputeMetrics(sub)))
}

func intParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (s *Server) handleTopStates(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	n := intParam(r, "n", 10)
	rows := aggregate.TopN(aggregate.ByState(sub), n,
		func(rs aggregate.RegionSummary) int64 { return rs.Total })
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleTopDistricts(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	n := intParam(r, "n", 15)
	rows := aggregate.TopN(aggregate.ByDistrict(sub), n,
		func(g aggregate.GroupSum) int64 { return g.Total })
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	points := aggregate.ByDate(sub)
	rows := make([]map[string]any, len(points))
	for i, p := range points {
		rows[i] = map[string]any{
			"date":         p.Date.Format(dataset.DateFormat),
			"bio_age_5_17": p.AgeYoung,
			"bio_age_17_":  p.AgeAdult,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleAgeSplit(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	m := aggregate.ComputeMetrics(sub)
	writeJSON(w, http.StatusOK, map[string]any{"rows": []map[string]any{
		{"group": "5-17 Years", "count": m.AgeYoung},
		{"group": "17+ Years", "count": m.AgeAdult},
	}})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	summaries := aggregate.ByState(sub)
	zoned, th := zone.Classify(summaries)
	zoned = aggregate.SortDesc(zoned, func(z zone.ZonedRegion) int64 { return z.Total })
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":       zoned,
		"thresholds": th,
	})
}

// zoneRow is one choropleth entry: the zone plus whatever boundary metadata
// was available. Missing boundary data degrades the map, never the table.
type zoneRow struct {
	State       string      `json:"state"`
	Total       int64       `json:"total"`
	Zone        zone.Zone   `json:"zone"`
	Color       string      `json:"color"`
	Label       string      `json:"label"`
	Boundary    string      `json:"boundary,omitempty"`
	Center      *[2]float64 `json:"center,omitempty"`
	HasBoundary bool        `json:"has_boundary"`
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	zoned, th := zone.Classify(aggregate.ByState(sub))
	zoned = aggregate.SortDesc(zoned, func(z zone.ZonedRegion) int64 { return z.Total })

	fs, err := s.geo.Boundaries(r.Context())
	if err != nil {
		zap.L().Warn("zones: boundary data unavailable", zap.Error(err))
	}

	rows := make([]zoneRow, len(zoned))
	for i, z := range zoned {
		row := zoneRow{
			State: z.State,
			Total: z.Total,
			Zone:  z.Zone,
			Color: z.Zone.Color(),
			Label: z.Zone.Label(),
		}
		if fs != nil {
			name := s.geo.Resolve(z.State)
			if f, ok := fs.Get(name); ok {
				lon, lat := f.Center()
				row.Boundary = name
				row.Center = &[2]float64{lon, lat}
				row.HasBoundary = true
			}
		}
		rows[i] = row
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rows":       rows,
		"thresholds": th,
	})
}

func (s *Server) handleBoundaries(w http.ResponseWriter, r *http.Request) {
	fs, err := s.geo.Boundaries(r.Context())
	if err != nil {
		writeError(w, http.StatusNotFound, "boundary data unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fs.Raw())
}

func (s *Server) handleStateDetail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	detail := filter.Apply(sub, filter.State{State: name, District: filter.All})
	if detail.Empty() {
		writeError(w, http.StatusNotFound, "no records for state")
		return
	}

	m := aggregate.ComputeMetrics(detail)
	topDistricts := aggregate.TopN(
		aggregate.RecordCounts(detail, func(rec dataset.Record) string { return rec.District }),
		10,
		func(c aggregate.NameCount) int64 { return c.Count })

	writeJSON(w, http.StatusOK, map[string]any{
		"state":     name,
		"metrics":   metricsResponse(m),
		"districts": topDistricts,
		"age_split": []map[string]any{
			{"group": "5-17 Years", "count": m.AgeYoung},
			{"group": "17+ Years", "count": m.AgeAdult},
		},
	})
}

func (s *Server) handleHeatmapStateDistrict(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	top := intParam(r, "top", 5)
	writeJSON(w, http.StatusOK, map[string]any{
		"rows": aggregate.HeatmapStateDistrict(sub, top),
	})
}

func (s *Server) handleHeatmapStateDate(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	cells := aggregate.HeatmapStateDate(sub)
	rows := make([]map[string]any, len(cells))
	for i, c := range cells {
		rows[i] = map[string]any{
			"date":  c.Date.Format(dataset.DateFormat),
			"state": c.State,
			"count": c.Count,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	if err := export.Write(w, sub); err != nil {
		zap.L().Warn("export: write response", zap.Error(err))
	}
}

func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	sub := s.filtered(w, r)
	if sub == nil {
		return
	}
	zoned, _ := zone.Classify(aggregate.ByState(sub))
	zoned = aggregate.SortDesc(zoned, func(z zone.ZonedRegion) int64 { return z.Total })

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+summaryFilename(time.Now())+`"`)
	if err := export.WriteSummary(w, zoned); err != nil {
		zap.L().Warn("export: write summary response", zap.Error(err))
	}
}

func summaryFilename(now time.Time) string {
	return "uidai_summary_" + now.Format("20060102_150405") + ".csv"
}
