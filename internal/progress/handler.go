package progress

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/platform/httpx"
	"github.com/convertline/convertline/internal/shared"
)

// Handler serves job progress endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the progress handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /progress endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/jobs", h.list)
	r.Get("/jobs/{jobNo}", h.detail)
	r.Get("/pending", h.pending)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		f   = Filter{JobNumber: q.Get("job_no")}
		err error
	)
	if f.MinProgress, err = queryPercent(q.Get("min_progress")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if f.MaxProgress, err = queryPercent(q.Get("max_progress")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if f.From, err = httpx.QueryDate(q.Get("start_date")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if f.To, err = httpx.QueryDate(q.Get("end_date")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out, err := h.service.ListProgress(r.Context(), f)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListPending(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	var target *decimal.Decimal
	if raw := strings.TrimSpace(r.URL.Query().Get("target")); raw != "" {
		t, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.RespondError(w, h.logger, shared.Reject(shared.ErrInvalidQueryParameters, "target %q is not a number", raw))
			return
		}
		target = &t
	}
	out, err := h.service.JobDetail(r.Context(), chi.URLParam(r, "jobNo"), target)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func queryPercent(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, shared.Reject(shared.ErrInvalidQueryParameters, "progress bound %q is not an integer", raw)
	}
	return &v, nil
}
