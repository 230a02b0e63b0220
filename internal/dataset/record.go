// Package dataset loads tabular biometric-authentication records from CSV
// and XLSX drops and holds them as an immutable in-memory table.
package dataset

import "time"

// DateFormat is the day-month-year layout used by the source files.
const DateFormat = "02-01-2006"

// Column names recognized in source headers.
const (
	ColDate     = "date"
	ColState    = "state"
	ColDistrict = "district"
	ColPincode  = "pincode"
	ColAgeYoung = "bio_age_5_17"
	ColAgeAdult = "bio_age_17_"
)

// Record is one row of source data. Date is nil when the source value was
// missing or unparseable; such rows are excluded from date-based views but
// kept everywhere else.
type Record struct {
	Date     *time.Time        `json:"date,omitempty"`
	State    string            `json:"state"`
	District string            `json:"district"`
	Pincode  string            `json:"pincode"`
	AgeYoung int64             `json:"bio_age_5_17"`
	AgeAdult int64             `json:"bio_age_17_"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Total returns the combined authentication count for the record.
func (r Record) Total() int64 {
	return r.AgeYoung + r.AgeAdult
}

// Dataset is an ordered sequence of Records plus the source files they came
// from. Concatenation preserves every row; there is no deduplication.
// A Dataset is read-only after Load.
type Dataset struct {
	Records []Record
	// ExtraCols lists unrecognized source columns in first-seen order so
	// they survive export untouched.
	ExtraCols []string
	// Sources lists the files that contributed rows, in load order.
	Sources []string
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Empty reports the terminal "no data" state: zero source files found or
// every file failed to parse.
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// HasDates reports whether at least one record carries a parseable date.
// When false, date-based filters and views are skipped silently.
func (d *Dataset) HasDates() bool {
	if d == nil {
		return false
	}
	for _, r := range d.Records {
		if r.Date != nil {
			return true
		}
	}
	return false
}
