// Package filter narrows a Dataset by date range, state, and district, each
// stage operating on the output of the previous one.
package filter

import (
	"sort"
	"time"

	"github.com/sells-group/biodash/internal/dataset"
)

// All is the sentinel choice meaning "no filter" for state and district.
const All = "All"

// State is one session's current filter selection. It is never persisted.
type State struct {
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
	State    string     `json:"state"`
	District string     `json:"district"`
}

// NewState returns the initial "no filter" selection: full date range,
// "All" state, "All" district.
func NewState() State {
	return State{State: All, District: All}
}

// Apply narrows ds progressively: inclusive date range first (skipped when
// the dataset carries no dates at all), then state equality unless "All",
// then district equality unless "All" or no state is selected. The result
// shares record storage with ds and must be treated as read-only.
func Apply(ds *dataset.Dataset, st State) *dataset.Dataset {
	if ds == nil {
		return &dataset.Dataset{}
	}

	out := &dataset.Dataset{
		ExtraCols: ds.ExtraCols,
		Sources:   ds.Sources,
	}

	dateFilter := (st.From != nil || st.To != nil) && ds.HasDates()
	stateFilter := st.State != "" && st.State != All
	districtFilter := stateFilter && st.District != "" && st.District != All

	for _, rec := range ds.Records {
		if dateFilter {
			if rec.Date == nil {
				continue
			}
			if st.From != nil && rec.Date.Before(*st.From) {
				continue
			}
			if st.To != nil && rec.Date.After(*st.To) {
				continue
			}
		}
		if stateFilter && rec.State != st.State {
			continue
		}
		if districtFilter && rec.District != st.District {
			continue
		}
		out.Records = append(out.Records, rec)
	}

	return out
}

// StateChoices returns the selectable states: "All" first, then the distinct
// non-empty states sorted.
func StateChoices(ds *dataset.Dataset) []string {
	return append([]string{All}, distinct(ds, func(r dataset.Record) string { return r.State })...)
}

// DistrictChoices returns the selectable districts for the given state. The
// choices come from the state-filtered subset only, so a caller never sees
// districts that do not belong to the selected state. With state "All" the
// districts of the whole dataset are offered.
func DistrictChoices(ds *dataset.Dataset, state string) []string {
	sub := ds
	if state != "" && state != All {
		sub = Apply(ds, State{State: state, District: All})
	}
	return append([]string{All}, distinct(sub, func(r dataset.Record) string { return r.District })...)
}

// DateBounds returns the earliest and latest non-null dates, or ok=false
// when the dataset has no dates.
func DateBounds(ds *dataset.Dataset) (min, max time.Time, ok bool) {
	if ds == nil {
		return
	}
	for _, rec := range ds.Records {
		if rec.Date == nil {
			continue
		}
		if !ok {
			min, max, ok = *rec.Date, *rec.Date, true
			continue
		}
		if rec.Date.Before(min) {
			min = *rec.Date
		}
		if rec.Date.After(max) {
			max = *rec.Date
		}
	}
	return
}

func distinct(ds *dataset.Dataset, key func(dataset.Record) string) []string {
	if ds == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, rec := range ds.Records {
		v := key(rec)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
