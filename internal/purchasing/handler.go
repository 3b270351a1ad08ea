package purchasing

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.RespondError(w, r, h.logger, err)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	items, page, err := h.service.List(r.Context(), ListFilter{
		Status:       Status(q.Get("status")),
		VendorID:     httpx.QueryInt64(r, "vendor_id"),
		QuotationID:  httpx.QueryInt64(r, "quotation_id"),
		GroupName:    q.Get("group"),
		SubGroupName: q.Get("sub_group"),
		ProjectID:    httpx.QueryInt64(r, "project_id"),
		Search:       q.Get("search"),
		Page:         httpx.QueryInt(r, "page"),
		PerPage:      httpx.QueryInt(r, "per_page"),
	}, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": page})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r, "id")
	if !ok {
		return
	}
	po, err := h.service.Get(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CreateRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	po, err := h.service.Create(r.Context(), req, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) CreateFromQuotation(w http.ResponseWriter, r *http.Request) {
	actor, quotationID, ok := h.actorAndID(w, r, "quotationID")
	if !ok {
		return
	}
	var req FromQuotationRequest
	if r.ContentLength != 0 {
		if err := httpx.Bind(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	po, err := h.service.CreateFromQuotation(r.Context(), quotationID, req, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) CreateFromOrderBook(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req FromOrderBookRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	po, err := h.service.CreateFromOrderBook(r.Context(), req, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	po, err := h.service.UpdateStatus(r.Context(), id, req.Status, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) Deliver(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r, "id")
	if !ok {
		return
	}
	itemID, err := httpx.IDParam(r, "itemID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req DeliverRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	po, err := h.service.MarkItemDelivered(r.Context(), id, itemID, req.DeliveredQty, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, actor); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request, param string) (shared.Actor, int64, bool) {
	actor, err := httpx.Actor(r)
	if err != nil {
		h.fail(w, r, err)
		return shared.Actor{}, 0, false
	}
	id, err := httpx.IDParam(r, param)
	if err != nil {
		h.fail(w, r, err)
		return shared.Actor{}, 0, false
	}
	return actor, id, true
}
