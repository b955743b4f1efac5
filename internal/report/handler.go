package report

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/convertline/convertline/internal/ledger"
	"github.com/convertline/convertline/internal/platform/httpx"
	"github.com/convertline/convertline/internal/shared"
)

// Handler serves report endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	limitPerMin int
	now         func() time.Time
}

// NewHandler constructs the report handler. limitPerMin bounds report requests per
// client IP; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, limitPerMin int) *Handler {
	return &Handler{logger: logger, service: service, limitPerMin: limitPerMin, now: time.Now}
}

// MountRoutes registers /reports endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limitPerMin > 0 {
			r.Use(httprate.Limit(h.limitPerMin, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Get("/production", h.production)
		r.Get("/process/{kind}", h.processOutput)
	})
	r.Get("/dashboard", h.dashboard)
}

// ParseFilter reads a production report filter from query parameters. Process codes may
// repeat (process=31&process=34) or be comma separated.
func ParseFilter(q map[string][]string) (Filter, error) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	var f Filter
	start, err := httpx.QueryDate(get("start"))
	if err != nil {
		return f, err
	}
	end, err := httpx.QueryDate(get("end"))
	if err != nil {
		return f, err
	}
	if start != nil {
		f.Start = *start
	}
	if end != nil {
		f.End = *end
	}
	for _, raw := range q["process"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			code, err := strconv.Atoi(part)
			if err != nil {
				return f, shared.Reject(shared.ErrInvalidQueryParameters, "process %q is not a number", part)
			}
			f.Codes = append(f.Codes, ledger.ProcessCode(code))
		}
	}
	f.JobNumber = get("job_no")
	f.Granularity = Granularity(get("type"))
	return f, f.Normalize()
}

func (h *Handler) production(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	tree, err := h.service.Production(r.Context(), f)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	name := "production_" + f.Start.Format("20060102") + "_" + f.End.Format("20060102")
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		httpx.JSON(w, http.StatusOK, tree)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
		if err := WriteCSV(w, f, tree); err != nil {
			h.logger.Error("write csv export", slog.Any("error", err))
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
		if err := WriteXLSX(w, f, tree); err != nil {
			h.logger.Error("write xlsx export", slog.Any("error", err))
		}
	default:
		httpx.RespondError(w, h.logger, shared.Reject(shared.ErrInvalidQueryParameters, "unknown format %q", format))
	}
}

// processOutputDays is the window used when a process report gives no dates.
const processOutputDays = 30

func (h *Handler) processOutput(w http.ResponseWriter, r *http.Request) {
	kind, err := ledger.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, h.logger, shared.Reject(shared.ErrInvalidQueryParameters, "unknown process %q", chi.URLParam(r, "kind")))
		return
	}
	q := r.URL.Query()
	start, err := httpx.QueryDate(q.Get("start"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	end, err := httpx.QueryDate(q.Get("end"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	to := h.now()
	if end != nil {
		to = *end
	}
	from := to.AddDate(0, 0, -(processOutputDays - 1))
	if start != nil {
		from = *start
	}
	out, err := h.service.ProcessOutput(r.Context(), kind.Code(), from, to)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	asOf := h.now()
	d, err := httpx.QueryDate(r.URL.Query().Get("date"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if d != nil {
		asOf = *d
	}
	dash, err := h.service.Dashboard(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}
