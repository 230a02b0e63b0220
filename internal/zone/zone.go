// Package zone classifies regions into Low/Medium/High activity zones by
// quantile thresholds over the currently visible totals. Classification is
// relative: the same raw count can land in a different zone once the
// filtered set changes.
package zone

import (
	"math"
	"sort"

	"github.com/sells-group/biodash/internal/aggregate"
)

// Zone is the activity band of a region.
type Zone string

const (
	Low    Zone = "Low"
	Medium Zone = "Medium"
	High   Zone = "High"
)

// Color returns the map color for the zone. High activity renders green,
// low renders red.
func (z Zone) Color() string {
	switch z {
	case Low:
		return "red"
	case Medium:
		return "yellow"
	case High:
		return "green"
	}
	return ""
}

// Label returns the legend text for the zone.
func (z Zone) Label() string {
	switch z {
	case Low:
		return "Low Activity (Red)"
	case Medium:
		return "Medium Activity (Yellow)"
	case High:
		return "High Activity (Green)"
	}
	return ""
}

// ZonedRegion is a RegionSummary with its assigned zone.
type ZonedRegion struct {
	aggregate.RegionSummary
	Zone Zone `json:"zone"`
}

// Thresholds are the quantile cut points used for a classification.
type Thresholds struct {
	P33 float64 `json:"p33"`
	P66 float64 `json:"p66"`
}

// Quantile computes the linearly interpolated quantile of values, matching
// standard statistical-package semantics. values need not be sorted.
// Returns NaN for an empty slice.
func Quantile(values []int64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	for i, v := range values {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := float64(len(sorted)-1) * q
	lower := int(math.Floor(pos))
	frac := pos - float64(lower)
	if lower+1 >= len(sorted) {
		return sorted[lower]
	}
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// Classify assigns each region a zone from the 33rd and 66th percentiles of
// the visible totals. A total at or below p33 is Low, at or below p66 is
// Medium, above p66 is High: a boundary value always belongs to the lower
// zone. Input order is preserved.
func Classify(summaries []aggregate.RegionSummary) ([]ZonedRegion, Thresholds) {
	if len(summaries) == 0 {
		return nil, Thresholds{}
	}

	totals := make([]int64, len(summaries))
	for i, s := range summaries {
		totals[i] = s.Total
	}
	th := Thresholds{
		P33: Quantile(totals, 0.33),
		P66: Quantile(totals, 0.66),
	}

	out := make([]ZonedRegion, len(summaries))
	for i, s := range summaries {
		z := High
		switch {
		case float64(s.Total) <= th.P33:
			z = Low
		case float64(s.Total) <= th.P66:
			z = Medium
		}
		out[i] = ZonedRegion{RegionSummary: s, Zone: z}
	}
	return out, th
}
