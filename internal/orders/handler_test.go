package orders

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convertline/convertline/internal/platform/httpx"
	"github.com/convertline/convertline/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *mockRepository) {
	t.Helper()
	svc, repo := newSeededService(PolicyMultiple)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)
	r.Route("/lookup", h.MountLookups)
	return r, repo
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

const salesOrderBody = `{"customer_id":1,"order_date":"2024-01-05T00:00:00Z","delivery_date":"2024-01-20T00:00:00Z",
"lines":[{"item_id":1,"qty":"500","rate":"1.25"}]}`

func TestHandlerSalesOrderLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(r, http.MethodPost, "/sales-orders", salesOrderBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order SalesOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, SalesOrderStatusDraft, order.Status)

	path := "/sales-orders/" + strconv.FormatInt(order.ID, 10)
	rec = do(r, http.MethodPost, path+"/job-orders", `{"due_date":"2024-01-25T00:00:00Z"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, shared.RejectionCode(shared.ErrOrderNotReady), problem.Code)

	rec = do(r, http.MethodPost, path+"/approve", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(r, http.MethodPost, path+"/job-orders", `{"due_date":"2024-01-25T00:00:00Z","priority":"High"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var job JobOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, PriorityHigh, job.Priority)

	rec = do(r, http.MethodGet, path+"/job-orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []JobOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 1)

	rec = do(r, http.MethodDelete, "/job-orders/"+strconv.FormatInt(job.ID, 10), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(r, http.MethodGet, "/job-orders/"+strconv.FormatInt(job.ID, 10), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRejectsInvertedDates(t *testing.T) {
	r, repo := newTestRouter(t)
	body := strings.Replace(salesOrderBody, `"order_date":"2024-01-05T00:00:00Z"`, `"order_date":"2024-01-10T00:00:00Z"`, 1)
	body = strings.Replace(body, `"delivery_date":"2024-01-20T00:00:00Z"`, `"delivery_date":"2024-01-05T00:00:00Z"`, 1)

	rec := do(r, http.MethodPost, "/sales-orders", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "invalid_date_range", problem.Code)
	assert.Empty(t, repo.salesOrders)
}

func TestHandlerListPagination(t *testing.T) {
	r, _ := newTestRouter(t)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/sales-orders", salesOrderBody).Code)
	}

	rec := do(r, http.MethodGet, "/sales-orders?page=2&per_page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Orders     []SalesOrder      `json:"orders"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, shared.Pagination{Page: 2, PerPage: 2, Total: 3, TotalPages: 2}, out.Pagination)

	rec = do(r, http.MethodGet, "/sales-orders?date_from=05-01-2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerStatusAndLookup(t *testing.T) {
	r, repo := newTestRouter(t)

	rec := do(r, http.MethodPut, "/customers/1/status", `{"status":"suspended"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.EqualValues(t, "suspended", repo.reg.Customers[1].Status)

	rec = do(r, http.MethodPut, "/areas/abc/status", `{"status":"inactive"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/lookup/job-orders?q=JO", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
