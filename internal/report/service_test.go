package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/convertline/convertline/internal/ledger"
)

type fakeReader struct {
	mu      sync.Mutex
	rows    []ledger.Row
	calls   int
	queries []ledger.Query
}

func (f *fakeReader) Rows(_ context.Context, q ledger.Query) ([]ledger.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, q)
	out := make([]ledger.Row, 0, len(f.rows))
	for _, r := range f.rows {
		if r.Date.Before(q.Start) || r.Date.After(q.End) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReader) JobRows(context.Context, string) ([]ledger.Row, error) {
	return nil, nil
}

func (f *fakeReader) StageSums(context.Context, []string) (ledger.StageSums, error) {
	return ledger.StageSums{}, nil
}

func newTestService(t *testing.T, reader ledger.Reader) (*Service, *Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	return NewService(reader, cache, slog.New(slog.NewTextHandler(io.Discard, nil))), cache, mr
}

func marchFilter() Filter {
	return Filter{Start: day(1), End: day(31)}
}

func TestBumpAdvancesVersion(t *testing.T) {
	_, cache, _ := newTestService(t, &fakeReader{})
	ctx := context.Background()

	v, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	key, err := cache.BuildKey(ctx, "report", "x")
	require.NoError(t, err)
	assert.Equal(t, "report:x:v1", key)

	require.NoError(t, cache.Bump(ctx))
	v, err = cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	var nilCache *Cache
	assert.NoError(t, nilCache.Bump(ctx))
}

func TestProductionCachesUntilBump(t *testing.T) {
	reader := &fakeReader{rows: sampleRows()}
	svc, cache, _ := newTestService(t, reader)
	ctx := context.Background()

	first, err := svc.Production(ctx, marchFilter())
	require.NoError(t, err)
	assert.Equal(t, "520", first.Total.Produced.String())

	second, err := svc.Production(ctx, marchFilter())
	require.NoError(t, err)
	assert.Equal(t, 1, reader.calls, "second read is served from cache")
	assert.True(t, first.Total.AvgSpeed.Equal(second.Total.AvgSpeed))

	require.NoError(t, cache.Invalidate(ctx))
	_, err = svc.Production(ctx, marchFilter())
	require.NoError(t, err)
	assert.Equal(t, 2, reader.calls)

	assert.Equal(t, DefaultCodes, reader.queries[0].Codes)
}

func TestProductionWithoutCache(t *testing.T) {
	reader := &fakeReader{rows: sampleRows()}
	svc := NewService(reader, nil, nil)

	tree, err := svc.Production(context.Background(), Filter{Start: day(1), End: day(2), Granularity: GranularityDetail})
	require.NoError(t, err)
	assert.Equal(t, 4, tree.Total.Rows)
	_, err = svc.Production(context.Background(), Filter{Start: day(1), End: day(2), Granularity: GranularityDetail})
	require.NoError(t, err)
	assert.Equal(t, 2, reader.calls)
}

func TestDashboard(t *testing.T) {
	rows := []ledger.Row{
		row(1, ledger.CodePrinting, "PR-01", time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), "JO-0", "70", "0", "7", "0"),
		row(2, ledger.CodePrinting, "PR-01", day(1), "JO-1", "100", "0", "10", "0"),
		row(3, ledger.CodeSlitting, "SL-01", day(2), "JO-1", "90", "0", "2", "0"),
		row(4, ledger.CodeSlitting, "SL-01", day(3), "JO-1", "10", "0", "0", "0"),
		row(5, ledger.CodeSlitting, "", day(3), "JO-2", "0", "0", "30", "0"),
		row(6, ledger.CodePrinting, "PR-02", day(4), "JO-3", "50", "0", "1", "0"),
	}
	dash := BuildDashboard(rows, day(3))

	assert.Equal(t, day(1), dash.MonthStart)
	assert.Equal(t, "200", dash.Produced.String(), "february and future rows are excluded")
	assert.Equal(t, "42", dash.Wastage.String())
	assert.Equal(t, "21", dash.WasteRatio.String())
	assert.Equal(t, 2, dash.CompletedJobs)

	require.Len(t, dash.Trend, 7)
	assert.Equal(t, time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC), dash.Trend[0].Date)
	assert.Equal(t, "70", dash.Trend[2].Produced.String())
	assert.Equal(t, "100", dash.Trend[4].Produced.String())
	assert.Equal(t, "10", dash.Trend[6].Produced.String())

	require.Len(t, dash.TopWastage, 3)
	assert.Equal(t, UnknownMachine, dash.TopWastage[0].MachineCode)
	assert.Equal(t, "PR-01", dash.TopWastage[1].MachineCode)
}

func TestDashboardServiceWindow(t *testing.T) {
	reader := &fakeReader{}
	svc, _, _ := newTestService(t, reader)

	_, err := svc.Dashboard(context.Background(), day(20))
	require.NoError(t, err)
	require.Len(t, reader.queries, 1)
	assert.Equal(t, day(1), reader.queries[0].Start)
	assert.Equal(t, ledger.KnownCodes, reader.queries[0].Codes)

	reader.queries = nil
	_, err = svc.Dashboard(context.Background(), day(3))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC), reader.queries[0].Start)
}

func TestWriteCSV(t *testing.T) {
	tree := Build(sampleRows())
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Filter{Start: day(1), End: day(3), Granularity: GranularityDetail}, tree))

	text := buf.String()
	require.True(t, strings.HasPrefix(text, "# Production report 2024-03-01 to 2024-03-03"))
	r := csv.NewReader(strings.NewReader(text[strings.Index(text, "\r\n")+2:]))
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, exportHeader, records[0])
	last := records[len(records)-1]
	assert.Equal(t, "total", last[0])
	assert.Equal(t, "520.00", last[6])
}

func TestWriteXLSX(t *testing.T) {
	tree := Build(sampleRows())
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, marchFilter(), tree))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = book.Close() }()
	rows, err := book.GetRows(sheetName)
	require.NoError(t, err)
	assert.Equal(t, exportHeader, rows[1])
	assert.Equal(t, "total", rows[len(rows)-1][0])
}

func TestHandlerProduction(t *testing.T) {
	reader := &fakeReader{rows: sampleRows()}
	svc, _, _ := newTestService(t, reader)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, 0)
	r := chi.NewRouter()
	r.Route("/reports", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/production?start=2024-03-01&end=2024-03-31&type=machine_wise", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"machine_code":"PR-01"`)
	assert.NotContains(t, rec.Body.String(), `"dates"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/production?start=2024-03-10&end=2024-03-01", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_query_parameters")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/production?start=2024-03-01&end=2024-03-31&format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "production_20240301_20240331.csv")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/production?start=2024-03-01&end=2024-03-31&format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRateLimit(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeReader{})
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, 1)
	r := chi.NewRouter()
	r.Route("/reports", h.MountRoutes)

	url := "/reports/production?start=2024-03-01&end=2024-03-31"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
