// Package export renders the filtered table and the zoned summary table as
// CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/biodash/internal/dataset"
	"github.com/sells-group/biodash/internal/zone"
)

// Filename returns the export filename for the given generation time,
// e.g. "uidai_data_20240131_153045.csv".
func Filename(now time.Time) string {
	return fmt.Sprintf("uidai_data_%s.csv", now.Format("20060102_150405"))
}

// Write renders the dataset as CSV: the recognized columns first, then any
// pass-through columns in first-seen order. Dates are rendered back in the
// source day-month-year format, null dates as empty. The output re-parses
// through the loader to the same rows and values.
func Write(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)

	header := []string{
		dataset.ColDate,
		dataset.ColState,
		dataset.ColDistrict,
		dataset.ColPincode,
		dataset.ColAgeYoung,
		dataset.ColAgeAdult,
	}
	header = append(header, ds.ExtraCols...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	row := make([]string, len(header))
	for _, rec := range ds.Records {
		row = row[:0]
		date := ""
		if rec.Date != nil {
			date = rec.Date.Format(dataset.DateFormat)
		}
		row = append(row,
			date,
			rec.State,
			rec.District,
			rec.Pincode,
			fmt.Sprintf("%d", rec.AgeYoung),
			fmt.Sprintf("%d", rec.AgeAdult),
		)
		for _, col := range ds.ExtraCols {
			row = append(row, rec.Extra[col])
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

// summaryRow is the fixed-schema CSV shape of a zoned region summary.
type summaryRow struct {
	State     string `csv:"state"`
	AgeYoung  int64  `csv:"bio_age_5_17"`
	AgeAdult  int64  `csv:"bio_age_17_"`
	Total     int64  `csv:"total"`
	Districts int    `csv:"districts"`
	Pincodes  int    `csv:"pincodes"`
	Zone      string `csv:"zone"`
}

// WriteSummary renders the zoned per-state summary table as CSV.
func WriteSummary(w io.Writer, zoned []zone.ZonedRegion) error {
	rows := make([]summaryRow, len(zoned))
	for i, z := range zoned {
		rows[i] = summaryRow{
			State:     z.State,
			AgeYoung:  z.AgeYoung,
			AgeAdult:  z.AgeAdult,
			Total:     z.Total,
			Districts: z.Districts,
			Pincodes:  z.Pincodes,
			Zone:      string(z.Zone),
		}
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "export: encode summary")
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush summary")
}

// ToFile writes the dataset export into dir with a timestamped name and
// returns the full path.
func ToFile(dir string, ds *dataset.Dataset, now time.Time) (string, error) {
	path := filepath.Join(dir, Filename(now))
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "export: create file")
	}
	defer f.Close() //nolint:errcheck

	if err := Write(f, ds); err != nil {
		return "", err
	}
	return path, nil
}
