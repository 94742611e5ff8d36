package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-grocery/internal/common"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Items handles GET /api/v1/items with filters and pagination.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		common.WriteError(w, err, "failed to list items")
		return
	}
	origin, err := ParseOrigin(r.URL.Query())
	if err != nil {
		common.WriteError(w, err, "failed to list items")
		return
	}
	result, err := h.service.ListItems(r.Context(), params, origin)
	if err != nil {
		common.WriteError(w, err, "failed to list items")
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: int(result.Total)},
	})
}

// ItemDetail handles GET /api/v1/items/{id}.
func (h *Handler) ItemDetail(w http.ResponseWriter, r *http.Request) {
	origin, err := ParseOrigin(r.URL.Query())
	if err != nil {
		common.WriteError(w, err, "failed to get item")
		return
	}
	detail, err := h.service.GetItemDetail(r.Context(), chi.URLParam(r, "id"), origin)
	if err != nil {
		common.WriteError(w, err, "failed to get item")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// ItemByBarcode handles GET /api/v1/items/barcode/{code}.
func (h *Handler) ItemByBarcode(w http.ResponseWriter, r *http.Request) {
	origin, err := ParseOrigin(r.URL.Query())
	if err != nil {
		common.WriteError(w, err, "failed to look up barcode")
		return
	}
	detail, err := h.service.GetItemByBarcode(r.Context(), chi.URLParam(r, "code"), origin)
	if err != nil {
		common.WriteError(w, err, "failed to look up barcode")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Stores handles GET /api/v1/stores, optionally sorted by distance from
// lat/lng query parameters.
func (h *Handler) Stores(w http.ResponseWriter, r *http.Request) {
	origin, err := ParseOrigin(r.URL.Query())
	if err != nil {
		common.WriteError(w, err, "failed to list stores")
		return
	}
	stores, err := h.service.ListStores(r.Context(), origin)
	if err != nil {
		common.WriteError(w, err, "failed to list stores")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stores})
}

// Store handles GET /api/v1/stores/{id}.
func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	origin, err := ParseOrigin(r.URL.Query())
	if err != nil {
		common.WriteError(w, err, "failed to get store")
		return
	}
	store, err := h.service.GetStore(r.Context(), chi.URLParam(r, "id"), origin)
	if err != nil {
		common.WriteError(w, err, "failed to get store")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": store})
}
