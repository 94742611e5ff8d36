package price

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-grocery/internal/common"
)

// Handler exposes price submission and listing endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Submit handles POST /api/v1/prices. Requires authentication.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if _, ok := common.UserID(r.Context()); !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	view, err := h.service.Submit(r.Context(), sub)
	if err != nil {
		common.WriteError(w, err, "failed to submit price")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// ByItem handles GET /api/v1/items/{id}/prices.
func (h *Handler) ByItem(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListByItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err, "failed to list prices")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}
