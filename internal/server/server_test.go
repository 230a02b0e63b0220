package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/biodash/internal/dataset"
	"github.com/sells-group/biodash/internal/geo"
)

const testCSV = "date,state,district,pincode,bio_age_5_17,bio_age_17_\n" +
	"01-01-2024,Kerala,Ernakulam,682001,60,40\n" +
	"02-01-2024,Kerala,Kollam,691001,0,0\n" +
	"01-01-2024,Punjab,Ludhiana,141001,30,20\n" +
	"02-01-2024,Assam,Kamrup,781001,5,5\n"

const testGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"ST_NM": "Kerala"},
     "geometry": {"type": "Polygon", "coordinates": [[[76,8],[77,8],[77,12],[76,12],[76,8]]]}}
  ]
}`

// newTestServer builds a Server over a temp data dir. When boundaryStatus
// is 0 the boundary endpoint is unreachable.
func newTestServer(t *testing.T, csvData string, boundaryStatus int) (*Server, http.Handler) {
	t.Helper()

	base := t.TempDir()
	if csvData != "" {
		dir := filepath.Join(base, "data1.csv")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "rows.csv"), []byte(csvData), 0o644))
	}

	geoURL := "http://127.0.0.1:0/unreachable"
	if boundaryStatus != 0 {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if boundaryStatus != http.StatusOK {
				http.Error(w, "nope", boundaryStatus)
				return
			}
			_, _ = w.Write([]byte(testGeoJSON))
		}))
		t.Cleanup(srv.Close)
		geoURL = srv.URL
	}

	cache := dataset.NewCache(dataset.NewLoader(base, []string{"data1.csv"}))
	geoSvc := geo.NewService(geo.Options{
		URL:          geoURL,
		NameProperty: "ST_NM",
		RatePerSec:   100,
		Aliases:      map[string]string{"Keralam": "Kerala"},
	})

	s := New(cache, geoSvc)
	return s, s.Router([]string{"*"})
}

func doJSON(t *testing.T, h http.Handler, method, target string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	out := map[string]any{}
	if strings.Contains(rr.Header().Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, body := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestEmptyDatasetIsTerminal(t *testing.T) {
	_, h := newTestServer(t, "", http.StatusOK)
	rr, body := doJSON(t, h, http.MethodGet, "/api/metrics", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "no data available", body["error"])
}

func TestMetrics(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, body := doJSON(t, h, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	assert.EqualValues(t, 4, body["records"])
	assert.EqualValues(t, 160, body["total"])
	assert.Equal(t, "160", body["total_formatted"])
	assert.InDelta(t, 59.375, body["young_pct"].(float64), 0.001)
}

func TestMetrics_FilteredByState(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, body := doJSON(t, h, http.MethodGet, "/api/metrics?state=Kerala", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 2, body["records"])
	assert.EqualValues(t, 100, body["total"])
}

func TestMetrics_ZeroTotalGuard(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, body := doJSON(t, h, http.MethodGet, "/api/metrics?state=Kerala&district=Kollam", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 0, body["total"])
	assert.EqualValues(t, 0, body["young_pct"])
}

func TestMetrics_InvalidDate(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, _ := doJSON(t, h, http.MethodGet, "/api/metrics?from=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFilters_DependentDistricts(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)

	rr, body := doJSON(t, h, http.MethodGet, "/api/filters?state=Kerala", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	states, ok := body["states"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"All", "Assam", "Kerala", "Punjab"}, states)

	districts, ok := body["districts"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"All", "Ernakulam", "Kollam"}, districts)

	assert.Equal(t, true, body["has_dates"])
	assert.Equal(t, "01-01-2024", body["from"])
	assert.Equal(t, "02-01-2024", body["to"])
}

func TestTopStates(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, body := doJSON(t, h, http.MethodGet, "/api/states/top?n=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rows := body["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "Kerala", first["state"])
	assert.EqualValues(t, 100, first["total"])
	assert.EqualValues(t, 2, first["districts"])
}

func TestSummaryZonesSortedDescending(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, body := doJSON(t, h, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rows := body["rows"].([]any)
	require.Len(t, rows, 3)
	assert.Equal(t, "Kerala", rows[0].(map[string]any)["state"])
	assert.Equal(t, "High", rows[0].(map[string]any)["zone"])
	assert.Equal(t, "Low", rows[2].(map[string]any)["zone"])
	assert.NotNil(t, body["thresholds"])
}

func TestZones_WithBoundaries(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, body := doJSON(t, h, http.MethodGet, "/api/zones", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rows := body["rows"].([]any)
	require.Len(t, rows, 3)

	kerala := rows[0].(map[string]any)
	assert.Equal(t, "green", kerala["color"])
	assert.Equal(t, true, kerala["has_boundary"])
	assert.NotNil(t, kerala["center"])

	// No boundary feature for Punjab in the test document.
	punjab := rows[1].(map[string]any)
	assert.Equal(t, false, punjab["has_boundary"])
}

func TestZones_BoundaryFailureIsSoft(t *testing.T) {
	_, h := newTestServer(t, testCSV, 0)
	rr, body := doJSON(t, h, http.MethodGet, "/api/zones", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rows := body["rows"].([]any)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, false, row.(map[string]any)["has_boundary"])
	}
}

func TestBoundaries_PassthroughAndFailure(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	req := httptest.NewRequest(http.MethodGet, "/api/map/boundaries", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/geo+json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "ST_NM")

	_, h = newTestServer(t, testCSV, http.StatusInternalServerError)
	rr2, body := doJSON(t, h, http.MethodGet, "/api/map/boundaries", nil)
	assert.Equal(t, http.StatusNotFound, rr2.Code)
	assert.Equal(t, "boundary data unavailable", body["error"])
}

func TestStateDetail(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, body := doJSON(t, h, http.MethodGet, "/api/states/Kerala", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "Kerala", body["state"])
	metrics := body["metrics"].(map[string]any)
	assert.EqualValues(t, 100, metrics["total"])
	districts := body["districts"].([]any)
	assert.Len(t, districts, 2)
}

func TestStateDetail_Unknown(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)
	rr, _ := doJSON(t, h, http.MethodGet, "/api/states/Goa", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTrendAndHeatmaps(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)

	rr, body := doJSON(t, h, http.MethodGet, "/api/trend", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rows := body["rows"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "01-01-2024", rows[0].(map[string]any)["date"])

	rr, body = doJSON(t, h, http.MethodGet, "/api/heatmap/state-district?top=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cells := body["rows"].([]any)
	require.Len(t, cells, 2)
	assert.Equal(t, "Kerala", cells[0].(map[string]any)["state"])

	rr, body = doJSON(t, h, http.MethodGet, "/api/heatmap/state-date", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, body["rows"].([]any), 4)
}

func TestSessionLifecycle(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)

	rr, body := doJSON(t, h, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := body["id"].(string)
	require.NotEmpty(t, id)

	// Initial state is "no filter".
	fs := body["filter"].(map[string]any)
	assert.Equal(t, "All", fs["state"])

	// Narrow to Kerala; the response carries recomputed metrics.
	upd := []byte(`{"state":"Kerala"}`)
	rr, body = doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/filter", upd)
	require.Equal(t, http.StatusOK, rr.Code)
	metrics := body["metrics"].(map[string]any)
	assert.EqualValues(t, 100, metrics["total"])

	// Data endpoints resolve the stored session state.
	rr, body = doJSON(t, h, http.MethodGet, "/api/metrics?session="+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 2, body["records"])
}

func TestSessionUnknown(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)

	rr, _ := doJSON(t, h, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = doJSON(t, h, http.MethodPut, "/api/sessions/nope/filter", []byte(`{}`))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = doJSON(t, h, http.MethodGet, "/api/metrics?session=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportDownload(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/api/export?state=Punjab", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "uidai_data_")

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 2) // header + one Punjab row
	assert.Contains(t, lines[1], "Punjab")
}

func TestExportSummaryDownload(t *testing.T) {
	_, h := newTestServer(t, testCSV, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/api/export/summary", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "uidai_summary_")
	assert.Contains(t, rr.Body.String(), "zone")
	assert.Contains(t, rr.Body.String(), "Kerala")
}
