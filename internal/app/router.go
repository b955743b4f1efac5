package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/convertline/convertline/internal/ledger"
	"github.com/convertline/convertline/internal/observability"
	"github.com/convertline/convertline/internal/orders"
	"github.com/convertline/convertline/internal/progress"
	"github.com/convertline/convertline/internal/registry"
	"github.com/convertline/convertline/internal/report"
	"github.com/convertline/convertline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	RegistryHandler *registry.Handler
	OrdersHandler   *orders.Handler
	LedgerHandler   *ledger.Handler
	ReportHandler   *report.Handler
	ProgressHandler *progress.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.RegistryHandler != nil {
		r.Route("/registry", params.RegistryHandler.MountRoutes)
	}
	r.Route("/lookup", func(r chi.Router) {
		if params.RegistryHandler != nil {
			params.RegistryHandler.MountLookups(r)
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountLookups(r)
		}
	})
	if params.OrdersHandler != nil {
		params.OrdersHandler.MountRoutes(r)
	}
	if params.LedgerHandler != nil {
		r.Route("/transactions", params.LedgerHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/reports", params.ReportHandler.MountRoutes)
	}
	if params.ProgressHandler != nil {
		r.Route("/progress", params.ProgressHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
