package report

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convertline/convertline/internal/ledger"
	"github.com/convertline/convertline/internal/shared"
)

func withInput(r ledger.Row, input string) ledger.Row {
	r.Input = d(input)
	return r
}

func printingRows() []ledger.Row {
	return []ledger.Row{
		withInput(row(1, ledger.CodePrinting, "PR-01", day(1), "JO-1", "90", "1000", "5", "60"), "100"),
		withInput(row(2, ledger.CodePrinting, "PR-01", day(3), "JO-2", "180", "2000", "15", "60"), "200"),
		withInput(row(3, ledger.CodePrinting, "PR-02", day(2), "JO-3", "70", "400", "10", "40"), "100"),
		withInput(row(4, ledger.CodeSlitting, "SL-01", day(3), "JO-1", "90", "0", "3", "30"), "93"),
	}
}

func TestBuildProcessOutput(t *testing.T) {
	out := BuildProcessOutput(ledger.CodePrinting, printingRows())

	assert.Equal(t, "Printing", out.ProcessName)
	assert.Equal(t, "400", out.TotalInput.String())
	assert.Equal(t, "340", out.TotalOutput.String())
	assert.Equal(t, "30", out.TotalWaste.String())
	assert.True(t, out.YieldPct.Equal(d("85")), "got %s", out.YieldPct)
	assert.True(t, out.WastePct.Equal(d("7.5")), "got %s", out.WastePct)

	require.Len(t, out.Rows, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{out.Rows[0].SourceID, out.Rows[1].SourceID, out.Rows[2].SourceID}, "newest first")
}

func TestBuildProcessOutputWithoutInput(t *testing.T) {
	out := BuildProcessOutput(ledger.CodeRewinding, printingRows())
	assert.Empty(t, out.Rows)
	assert.True(t, out.YieldPct.IsZero())
	assert.True(t, out.WastePct.IsZero())
}

func TestProcessOutputRejectsInvertedRange(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeReader{})
	_, err := svc.ProcessOutput(context.Background(), ledger.CodePrinting, day(10), day(2))
	assert.ErrorIs(t, err, shared.ErrInvalidQueryParameters)
}

func TestProcessOutputHandler(t *testing.T) {
	reader := &fakeReader{rows: printingRows()}
	svc, _, _ := newTestService(t, reader)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, 0)
	h.now = func() time.Time { return day(5) }
	r := chi.NewRouter()
	r.Route("/reports", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/process/printing", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out ProcessOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, ledger.CodePrinting, out.ProcessCode)
	assert.Len(t, out.Rows, 3)
	assert.Equal(t, day(5).AddDate(0, 0, -29), out.Start)
	assert.Equal(t, day(5), out.End)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/process/printing?start=2024-03-02&end=2024-03-02", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Rows, 1)
	assert.Equal(t, int64(3), out.Rows[0].SourceID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/process/embossing", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/process/slitting?start=2024-03-09&end=2024-03-01", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
