package invoices

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Show)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/send", h.Send)
		r.Get("/{id}/payments", h.PaymentHistory)
		r.Post("/{id}/payments", h.RecordPayment)
	})
}
