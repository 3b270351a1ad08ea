package purchasing

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/from-quotation/{quotationID}", h.CreateFromQuotation)
		r.Post("/from-order-book", h.CreateFromOrderBook)
		r.Get("/{id}", h.Show)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/items/{itemID}/deliver", h.Deliver)
	})
}
