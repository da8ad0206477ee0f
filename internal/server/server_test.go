package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/crimemap/internal/dataset"
	"github.com/sells-group/crimemap/internal/geo"
	"github.com/sells-group/crimemap/internal/model"
	"github.com/sells-group/crimemap/internal/render"
)

func square(minX, minY, size float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY, minX, minY + size, minX + size, minY + size, minX + size, minY, minX, minY,
	}, []int{10})
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()

	ds := dataset.New([]model.CrimeRecord{
		{DepartmentCode: "49", Indicator: "Vol", UnitOfCount: "victime", Count: 120, RatePerThousand: 3.4, Year: "2022"},
		{DepartmentCode: "49", Indicator: "Vol", UnitOfCount: "infraction", Count: 150, RatePerThousand: 4.1, Year: "2022"},
		{DepartmentCode: "49", Indicator: "Cambriolage", UnitOfCount: "logement", Count: 40, RatePerThousand: 1.2, Year: "2022"},
		{DepartmentCode: "75", Indicator: "Vol", UnitOfCount: "victime", Count: 9000, RatePerThousand: 5.0, Year: "2022"},
	})

	var boundaries []model.DepartmentBoundary
	for _, d := range []struct {
		code, name string
		x, y       float64
	}{
		{"49", "Maine-et-Loire", -0.6, 47.3},
		{"75", "Paris", 2.25, 48.8},
	} {
		b, err := geo.NewBoundary(d.code, d.name, square(d.x, d.y, 0.2))
		require.NoError(t, err)
		boundaries = append(boundaries, b)
	}
	idx, err := geo.BuildIndex(boundaries)
	require.NoError(t, err)

	if opts.PageCacheSize == 0 {
		opts.PageCacheSize = 16
		opts.PageCacheTTL = time.Hour
	}
	return New(ds, idx, opts)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlePage_Scenario(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/?department=49-Maine-et-Loire&indicator=Vol&unit=victime")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	body := rec.Body.String()
	assert.Contains(t, body, `<option value="49-Maine-et-Loire" selected>`)
	assert.Contains(t, body, "Taux pour mille: 3.4")
	assert.Contains(t, body, `"color":"blue"`)
}

func TestHandlePage_CacheHit(t *testing.T) {
	s := newTestServer(t, Options{})
	h := s.Handler()

	first := get(t, h, "/?department=49-Maine-et-Loire")
	second := get(t, h, "/?department=49-Maine-et-Loire&indicator=Vol&unit=victime")

	assert.Equal(t, "miss", first.Header().Get("X-Cache"))
	assert.Equal(t, "hit", second.Header().Get("X-Cache"), "both resolve to the same selection")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int64(1), s.CacheStats().Hits)
}

func TestHandlePage_DepartmentEventClearsFilters(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/api/view?event=department&department=75-Paris&indicator=Cambriolage&unit=logement")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		View struct {
			Selection model.Selection `json:"selection"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.Selection{Department: "75-Paris", Indicator: "Vol", Unit: "victime"}, resp.View.Selection)
}

func TestHandlePage_DefaultSelection(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<option value="49-Maine-et-Loire" selected>`)
}

func TestHandlePage_UnknownDepartment(t *testing.T) {
	s := newTestServer(t, Options{})
	h := s.Handler()

	rec := get(t, h, "/?department=99-Nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown department")

	rec = get(t, h, "/export/table.csv?department=99")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleView(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/api/view?department=75-Paris&indicator=Vol&unit=victime")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		View struct {
			Code string `json:"code"`
		} `json:"view"`
		Map struct {
			Markers []render.Marker `json:"markers"`
		} `json:"map"`
		Table struct {
			Records []model.CrimeRecord `json:"records"`
		} `json:"table"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "75", resp.View.Code)
	require.Len(t, resp.Map.Markers, 1)
	assert.Equal(t, "red", resp.Map.Markers[0].Color, "rate 5.0 is high")
	assert.Len(t, resp.Table.Records, 1)
}

func TestHandleDepartments(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/api/departments")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Departments []string `json:"departments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"49-Maine-et-Loire", "75-Paris"}, resp.Departments)
}

func TestHandleBoundaries(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/api/boundaries")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"FeatureCollection"`)
	assert.Contains(t, rec.Body.String(), `"nom":"Maine-et-Loire"`)
}

func TestHandleExportCSV(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/export/table.csv?department=49-Maine-et-Loire&indicator=Vol&unit=victime")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="crimes-49.csv"`)

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"49", "Vol", "victime", "120", "3.4", "2022"}, rows[1])
}

func TestHandleExportCSV_StaleUnitFallsBack(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/export/table.csv?department=75-Paris&indicator=Vol&unit=infraction")
	require.Equal(t, http.StatusOK, rec.Code)

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2, "unit falls back to the department's first unit")
}

func TestHandleExportXLSX(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/export/table.xlsx?department=49-Maine-et-Loire&indicator=Vol&unit=infraction")
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	f, err := xlsx.OpenBinary(body)
	require.NoError(t, err)
	require.Len(t, f.Sheets[0].Rows, 2)
	assert.Equal(t, "infraction", f.Sheets[0].Rows[1].Cells[2].String())
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(4), resp["records"])
	assert.Equal(t, float64(2), resp["departments"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	get(t, h, "/?department=49-Maine-et-Loire")
	get(t, h, "/?department=99")

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `crimemap_requests_total{route="/",status="200"} 1`)
	assert.Contains(t, body, `crimemap_requests_total{route="/",status="404"} 1`)
	assert.Contains(t, body, "crimemap_lookup_failures_total 1")
	assert.Contains(t, body, "crimemap_page_cache_misses_total 1")
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2}).Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/api/departments").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/departments").Code)

	rec := get(t, h, "/api/departments")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// health and metrics are never limited
	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
}

func TestRequestID_Propagates(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, Options{CORSOrigins: []string{"https://carte.example"}}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/departments", nil)
	req.Header.Set("Origin", "https://carte.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://carte.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSelectionFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  model.Selection
	}{
		{
			name:  "no event",
			query: "department=49-Maine-et-Loire&indicator=Vol&unit=victime",
			want:  model.Selection{Department: "49-Maine-et-Loire", Indicator: "Vol", Unit: "victime"},
		},
		{
			name:  "department event",
			query: "event=department&department=75-Paris&indicator=Vol&unit=victime",
			want:  model.Selection{Department: "75-Paris"},
		},
		{
			name:  "unit event",
			query: "event=unit&department=49-Maine-et-Loire&indicator=Vol&unit=infraction",
			want:  model.Selection{Department: "49-Maine-et-Loire", Indicator: "Vol", Unit: "infraction"},
		},
		{
			name:  "unknown event ignored",
			query: "event=zoom&department=49",
			want:  model.Selection{Department: "49"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			assert.Equal(t, tt.want, selectionFromRequest(req))
		})
	}
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}

	n, err := sw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusOK, sw.status)
	assert.Equal(t, 5, sw.bytes)
	assert.True(t, bytes.Equal([]byte("hello"), rec.Body.Bytes()))
}
