package aggregate

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/biodash/internal/dataset"
)

// Metrics are the headline dashboard numbers for the current filter.
type Metrics struct {
	Records  int     `json:"records"`
	AgeYoung int64   `json:"bio_age_5_17"`
	AgeAdult int64   `json:"bio_age_17_"`
	Total    int64   `json:"total"`
	YoungPct float64 `json:"young_pct"`
	AdultPct float64 `json:"adult_pct"`
}

// ComputeMetrics totals both age bands over the dataset. Percentage splits
// are 0 when the total is zero rather than dividing by zero.
func ComputeMetrics(ds *dataset.Dataset) Metrics {
	m := Metrics{Records: ds.Len()}
	for _, rec := range ds.Records {
		m.AgeYoung += rec.AgeYoung
		m.AgeAdult += rec.AgeAdult
	}
	m.Total = m.AgeYoung + m.AgeAdult
	if m.Total > 0 {
		m.YoungPct = float64(m.AgeYoung) / float64(m.Total) * 100
		m.AdultPct = float64(m.AgeAdult) / float64(m.Total) * 100
	}
	return m
}

var printer = message.NewPrinter(language.English)

// FormatCount renders a count with thousands separators for display
// ("1,234,567").
func FormatCount[N int | int64](n N) string {
	return printer.Sprintf("%d", int64(n))
}
