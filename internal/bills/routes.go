package bills

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/bills", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/stats", h.Stats)
		r.Get("/{id}", h.Show)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/payments", h.Payments)
		r.Post("/{id}/payments", h.AddPayment)
		r.Post("/{id}/mark-paid", h.MarkPaid)
		r.Post("/{id}/attachment", h.Attach)
		r.Get("/{id}/pdf", h.PDF)
	})
}
