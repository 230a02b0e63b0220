package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/biodash/internal/aggregate"
	"github.com/sells-group/biodash/internal/dataset"
	"github.com/sells-group/biodash/internal/zone"
)

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse(dataset.DateFormat, s)
	require.NoError(t, err)
	return &d
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 1, 31, 15, 30, 45, 0, time.UTC)
	assert.Equal(t, "uidai_data_20240131_153045.csv", Filename(now))
}

func TestWrite_RoundTripsThroughLoader(t *testing.T) {
	ds := &dataset.Dataset{
		Records: []dataset.Record{
			{Date: date(t, "01-01-2024"), State: "Kerala", District: "Ernakulam", Pincode: "682001",
				AgeYoung: 10, AgeAdult: 20, Extra: map[string]string{"agency": "CSC"}},
			{Date: nil, State: "Punjab", District: "Ludhiana", Pincode: "141001",
				AgeYoung: 7, AgeAdult: 3, Extra: map[string]string{"agency": ""}},
		},
		ExtraCols: []string{"agency"},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ds))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,state,district,pincode,bio_age_5_17,bio_age_17_,agency", lines[0])
	assert.Equal(t, "01-01-2024,Kerala,Ernakulam,682001,10,20,CSC", lines[1])

	// Re-parse via the loader: same row count, same values.
	base := t.TempDir()
	dir := filepath.Join(base, "data1.csv")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "export.csv"), buf.Bytes(), 0o644))

	reloaded, err := dataset.NewLoader(base, []string{"data1.csv"}).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, ds.Len(), reloaded.Len())
	assert.Equal(t, ds.Records[0].State, reloaded.Records[0].State)
	assert.Equal(t, ds.Records[0].AgeYoung, reloaded.Records[0].AgeYoung)
	assert.Equal(t, ds.Records[0].Extra["agency"], reloaded.Records[0].Extra["agency"])
	require.NotNil(t, reloaded.Records[0].Date)
	assert.Equal(t, "01-01-2024", reloaded.Records[0].Date.Format(dataset.DateFormat))
	assert.Nil(t, reloaded.Records[1].Date)
	assert.Equal(t, ds.ExtraCols, reloaded.ExtraCols)
}

func TestWrite_EmptyDataset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &dataset.Dataset{}))
	assert.Equal(t, "date,state,district,pincode,bio_age_5_17,bio_age_17_", strings.TrimSpace(buf.String()))
}

func TestWriteSummary(t *testing.T) {
	zoned, _ := zone.Classify([]aggregate.RegionSummary{
		{State: "A", AgeYoung: 60, AgeAdult: 40, Total: 100, Districts: 4, Pincodes: 9},
		{State: "B", AgeYoung: 30, AgeAdult: 20, Total: 50, Districts: 2, Pincodes: 3},
		{State: "C", AgeYoung: 5, AgeAdult: 5, Total: 10, Districts: 1, Pincodes: 1},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, zoned))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "state,bio_age_5_17,bio_age_17_,total,districts,pincodes,zone", lines[0])
	assert.Equal(t, "A,60,40,100,4,9,High", lines[1])
	assert.Equal(t, "C,5,5,10,1,1,Low", lines[3])
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	ds := &dataset.Dataset{Records: []dataset.Record{{State: "Kerala", AgeYoung: 1, AgeAdult: 2}}}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	path, err := ToFile(dir, ds, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "uidai_data_20240601_120000.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Kerala")
}
