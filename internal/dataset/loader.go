package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// Loader discovers and parses source files under fixed-name subdirectories
// of a base directory.
type Loader struct {
	baseDir string
	dirs    []string
}

// NewLoader returns a Loader rooted at baseDir that scans the given
// subdirectory names.
func NewLoader(baseDir string, dirs []string) *Loader {
	return &Loader{baseDir: baseDir, dirs: dirs}
}

// Load parses every .csv and .xlsx file under the configured directories and
// returns the concatenated Dataset. A file that fails to parse is skipped
// with a warning. Zero loadable files yields an empty Dataset, not an error.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	log := zap.L().With(zap.String("component", "dataset.loader"))

	ds := &Dataset{}
	extraSeen := make(map[string]bool)

	for _, dir := range l.dirs {
		dirPath := filepath.Join(l.baseDir, dir)
		entries, err := os.ReadDir(dirPath)
		if err != nil {
			log.Debug("data directory not readable, skipping",
				zap.String("dir", dirPath), zap.Error(err))
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "dataset: load cancelled")
			}

			path := filepath.Join(dirPath, entry.Name())
			var (
				records []Record
				extra   []string
				perr    error
			)
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".csv":
				records, extra, perr = parseCSVFile(path)
			case ".xlsx":
				records, extra, perr = parseXLSXFile(path)
			default:
				continue
			}
			if perr != nil {
				log.Warn("could not load file, skipping",
					zap.String("file", path), zap.Error(perr))
				continue
			}

			ds.Records = append(ds.Records, records...)
			ds.Sources = append(ds.Sources, path)
			for _, col := range extra {
				if !extraSeen[col] {
					extraSeen[col] = true
					ds.ExtraCols = append(ds.ExtraCols, col)
				}
			}
		}
	}

	log.Info("dataset loaded",
		zap.Int("files", len(ds.Sources)),
		zap.Int("rows", ds.Len()),
	)
	return ds, nil
}

func parseCSVFile(path string) ([]Record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "dataset: open csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, eris.Wrap(err, "dataset: read csv header")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "dataset: read csv row")
		}
		rows = append(rows, record)
	}

	return buildRecords(header, rows)
}

func parseXLSXFile(path string) ([]Record, []string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "dataset: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.New("dataset: xlsx has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil, eris.New("dataset: xlsx sheet is empty")
	}

	header := rowToStrings(sheet.Rows[0])
	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		rows = append(rows, rowToStrings(row))
	}

	return buildRecords(header, rows)
}

func rowToStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		out[i] = strings.TrimSpace(cell.String())
	}
	return out
}

// buildRecords maps raw string rows onto Records using the header row.
// Recognized columns are typed; everything else passes through in Extra.
func buildRecords(header []string, rows [][]string) ([]Record, []string, error) {
	colIdx := make(map[string]int, len(header))
	var extraCols []string
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		if name == "" {
			continue
		}
		if _, dup := colIdx[name]; dup {
			continue
		}
		colIdx[name] = i
		switch name {
		case ColDate, ColState, ColDistrict, ColPincode, ColAgeYoung, ColAgeAdult:
		default:
			extraCols = append(extraCols, name)
		}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			State:    getCol(row, colIdx, ColState),
			District: getCol(row, colIdx, ColDistrict),
			Pincode:  getCol(row, colIdx, ColPincode),
			AgeYoung: parseCountOr(getCol(row, colIdx, ColAgeYoung), 0),
			AgeAdult: parseCountOr(getCol(row, colIdx, ColAgeAdult), 0),
		}
		if raw := getCol(row, colIdx, ColDate); raw != "" {
			if d, err := time.Parse(DateFormat, raw); err == nil {
				rec.Date = &d
			}
		}
		if len(extraCols) > 0 {
			rec.Extra = make(map[string]string, len(extraCols))
			for _, col := range extraCols {
				rec.Extra[col] = getCol(row, colIdx, col)
			}
		}
		records = append(records, rec)
	}

	return records, extraCols, nil
}

func getCol(row []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseCountOr parses a non-negative count, defaulting on blank or malformed
// values so an absent or empty numeric column never fails a load.
func parseCountOr(s string, def int64) int64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}
