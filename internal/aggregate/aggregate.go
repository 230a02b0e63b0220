// Package aggregate computes group-by summary tables over a filtered Dataset.
// Sums are exact int64; group order is first-seen, which is also the
// deterministic tie-break for TopN.
package aggregate

import (
	"sort"
	"time"

	"github.com/sells-group/biodash/internal/dataset"
)

// RegionSummary is one row of the per-state summary table.
type RegionSummary struct {
	State     string `json:"state"`
	AgeYoung  int64  `json:"bio_age_5_17"`
	AgeAdult  int64  `json:"bio_age_17_"`
	Total     int64  `json:"total"`
	Districts int    `json:"districts"`
	Pincodes  int    `json:"pincodes"`
}

// GroupSum is a generic grouped sum row keyed by a single column value.
type GroupSum struct {
	Name     string `json:"name"`
	AgeYoung int64  `json:"bio_age_5_17"`
	AgeAdult int64  `json:"bio_age_17_"`
	Total    int64  `json:"total"`
}

// TrendPoint is one day of the authentication time series.
type TrendPoint struct {
	Date     time.Time `json:"date"`
	AgeYoung int64     `json:"bio_age_5_17"`
	AgeAdult int64     `json:"bio_age_17_"`
}

// NameCount pairs a group key with a record count.
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// HeatCell is one cell of the state/district density grid.
type HeatCell struct {
	State    string `json:"state"`
	District string `json:"district"`
	Count    int64  `json:"count"`
}

// DateHeatCell is one cell of the date/state activity grid.
type DateHeatCell struct {
	Date  time.Time `json:"date"`
	State string    `json:"state"`
	Count int64     `json:"count"`
}

// ByState sums both age bands per state and counts distinct districts and
// pincodes. Rows appear in first-seen record order; records with an empty
// state are skipped.
func ByState(ds *dataset.Dataset) []RegionSummary {
	type acc struct {
		idx       int
		districts map[string]bool
		pincodes  map[string]bool
	}
	var out []RegionSummary
	groups := make(map[string]*acc)

	for _, rec := range ds.Records {
		if rec.State == "" {
			continue
		}
		a, ok := groups[rec.State]
		if !ok {
			a = &acc{
				idx:       len(out),
				districts: make(map[string]bool),
				pincodes:  make(map[string]bool),
			}
			groups[rec.State] = a
			out = append(out, RegionSummary{State: rec.State})
		}
		row := &out[a.idx]
		row.AgeYoung += rec.AgeYoung
		row.AgeAdult += rec.AgeAdult
		row.Total += rec.Total()
		if rec.District != "" {
			a.districts[rec.District] = true
		}
		if rec.Pincode != "" {
			a.pincodes[rec.Pincode] = true
		}
	}

	for _, a := range groups {
		out[a.idx].Districts = len(a.districts)
		out[a.idx].Pincodes = len(a.pincodes)
	}
	return out
}

// ByDistrict sums both age bands per district in first-seen order.
func ByDistrict(ds *dataset.Dataset) []GroupSum {
	return groupSums(ds, func(r dataset.Record) string { return r.District })
}

// ByDate sums both age bands per calendar day, sorted by date. Records with
// a null date are excluded.
func ByDate(ds *dataset.Dataset) []TrendPoint {
	var out []TrendPoint
	idx := make(map[time.Time]int)

	for _, rec := range ds.Records {
		if rec.Date == nil {
			continue
		}
		day := *rec.Date
		i, ok := idx[day]
		if !ok {
			i = len(out)
			idx[day] = i
			out = append(out, TrendPoint{Date: day})
		}
		out[i].AgeYoung += rec.AgeYoung
		out[i].AgeAdult += rec.AgeAdult
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// RecordCounts counts records per value of the keyed column, first-seen order.
func RecordCounts(ds *dataset.Dataset, key func(dataset.Record) string) []NameCount {
	var out []NameCount
	idx := make(map[string]int)

	for _, rec := range ds.Records {
		k := key(rec)
		if k == "" {
			continue
		}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, NameCount{Name: k})
		}
		out[i].Count++
	}
	return out
}

// HeatmapStateDistrict builds the record-density grid for the topStates
// states with the most records.
func HeatmapStateDistrict(ds *dataset.Dataset, topStates int) []HeatCell {
	counts := RecordCounts(ds, func(r dataset.Record) string { return r.State })
	top := TopN(counts, topStates, func(c NameCount) int64 { return c.Count })
	keep := make(map[string]bool, len(top))
	for _, c := range top {
		keep[c.Name] = true
	}

	var out []HeatCell
	idx := make(map[[2]string]int)
	for _, rec := range ds.Records {
		if !keep[rec.State] || rec.District == "" {
			continue
		}
		k := [2]string{rec.State, rec.District}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, HeatCell{State: rec.State, District: rec.District})
		}
		out[i].Count++
	}
	return out
}

// HeatmapStateDate builds the record-count grid of activity per state per
// day, sorted by date then first-seen state.
func HeatmapStateDate(ds *dataset.Dataset) []DateHeatCell {
	type key struct {
		day   time.Time
		state string
	}
	var out []DateHeatCell
	idx := make(map[key]int)

	for _, rec := range ds.Records {
		if rec.Date == nil || rec.State == "" {
			continue
		}
		k := key{*rec.Date, rec.State}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, DateHeatCell{Date: *rec.Date, State: rec.State})
		}
		out[i].Count++
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SortDesc returns a copy of rows ordered by value descending, preserving
// the input's first-seen order between equal values (stable sort tie-break).
func SortDesc[T any](rows []T, value func(T) int64) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return value(out[i]) > value(out[j]) })
	return out
}

// TopN returns the n rows with the largest value, with SortDesc's tie-break.
func TopN[T any](rows []T, n int, value func(T) int64) []T {
	out := SortDesc(rows, value)
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func groupSums(ds *dataset.Dataset, key func(dataset.Record) string) []GroupSum {
	var out []GroupSum
	idx := make(map[string]int)

	for _, rec := range ds.Records {
		k := key(rec)
		if k == "" {
			continue
		}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, GroupSum{Name: k})
		}
		out[i].AgeYoung += rec.AgeYoung
		out[i].AgeAdult += rec.AgeAdult
		out[i].Total += rec.Total()
	}
	return out
}
