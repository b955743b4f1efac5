package orders

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the sales order, job order and status endpoints on the root router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales-orders", func(r chi.Router) {
		r.Get("/", h.ListSalesOrders)
		r.Post("/", h.CreateSalesOrder)
		r.Get("/{id}", h.GetSalesOrder)
		r.Post("/{id}/approve", h.Approve)
		r.Get("/{id}/job-orders", h.ListJobOrders)
		r.Post("/{id}/job-orders", h.CreateJobOrder)
	})
	r.Route("/job-orders", func(r chi.Router) {
		r.Get("/{id}", h.GetJobOrder)
		r.Delete("/{id}", h.DeleteJobOrder)
	})
	r.Put("/customers/{id}/status", h.SetCustomerStatus)
	r.Put("/areas/{id}/status", h.SetAreaStatus)
}

// MountLookups registers the job order typeahead under the shared /lookup router.
func (h *Handler) MountLookups(r chi.Router) {
	r.Get("/job-orders", h.LookupJobOrders)
}
