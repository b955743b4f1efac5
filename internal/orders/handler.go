package orders

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/convertline/convertline/internal/platform/httpx"
	"github.com/convertline/convertline/internal/registry"
	"github.com/convertline/convertline/internal/shared"
)

// Handler exposes sales and job order endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the order handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, h.logger, err)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) CreateSalesOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateSalesOrderRequest
	if err := httpx.DecodeJSON(r, h.validator, &req); err != nil {
		h.fail(w, err)
		return
	}
	order, err := h.service.CreateSalesOrder(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("sales order created", slog.Int64("id", order.ID), slog.String("order_number", order.OrderNumber))
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) ListSalesOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var req ListSalesOrdersRequest
	if raw := q.Get("status"); raw != "" {
		status := SalesOrderStatus(raw)
		req.Status = &status
	}
	if raw := q.Get("customer_id"); raw != "" {
		id, err := httpx.PathInt64(raw)
		if err != nil {
			h.fail(w, err)
			return
		}
		req.CustomerID = &id
	}
	var err error
	if req.DateFrom, err = httpx.QueryDate(q.Get("date_from")); err != nil {
		h.fail(w, err)
		return
	}
	if req.DateTo, err = httpx.QueryDate(q.Get("date_to")); err != nil {
		h.fail(w, err)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	paging := shared.NewPagination(page, perPage, 0)
	req.Limit = paging.PerPage
	req.Offset = paging.Offset()

	orders, total, err := h.service.ListSalesOrders(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders":     orders,
		"pagination": shared.NewPagination(paging.Page, paging.PerPage, total),
	})
}

func (h *Handler) GetSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	order, err := h.service.GetSalesOrder(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Approve(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("sales order approved", slog.Int64("id", id))
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) CreateJobOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req CreateJobOrderRequest
	if err := httpx.DecodeJSON(r, h.validator, &req); err != nil {
		h.fail(w, err)
		return
	}
	job, err := h.service.CreateJobOrder(r.Context(), id, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("job order created", slog.Int64("sales_order_id", id), slog.String("job_number", job.JobNumber))
	httpx.JSON(w, http.StatusCreated, job)
}

func (h *Handler) ListJobOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	jobs, err := h.service.ListJobOrders(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, jobs)
}

func (h *Handler) GetJobOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	job, err := h.service.GetJobOrder(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) DeleteJobOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteJobOrder(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetCustomerStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := httpx.DecodeJSON(r, h.validator, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.SetCustomerStatus(r.Context(), id, registry.CustomerStatus(req.Status)); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetAreaStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := httpx.DecodeJSON(r, h.validator, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.SetAreaStatus(r.Context(), id, registry.AreaStatus(req.Status)); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LookupJobOrders(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.LookupJobOrders(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
