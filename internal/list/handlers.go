package list

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-grocery/internal/catalog"
	"github.com/noah-isme/backend-grocery/internal/common"
)

// Handler exposes the shopping-list endpoints. All routes require auth.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return uuid.Nil, false
	}
	return id, true
}

// Get handles GET /api/v1/list.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Get(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err, "failed to get list")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

type addRequest struct {
	ItemID string `json:"itemId"`
	Qty    int    `json:"qty"`
}

// Add handles POST /api/v1/list/items.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}
	qty, err := h.service.Add(r.Context(), userID, req.ItemID, req.Qty)
	if err != nil {
		common.WriteError(w, err, "failed to add list item")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"itemId": req.ItemID, "qty": qty}})
}

type setQtyRequest struct {
	Qty int `json:"qty"`
}

// SetQty handles PUT /api/v1/list/items/{itemId}.
func (h *Handler) SetQty(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req setQtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	itemID := chi.URLParam(r, "itemId")
	if err := h.service.SetQty(r.Context(), userID, itemID, req.Qty); err != nil {
		common.WriteError(w, err, "failed to update list item")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"itemId": itemID, "qty": req.Qty}})
}

// Remove handles DELETE /api/v1/list/items/{itemId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), userID, chi.URLParam(r, "itemId")); err != nil {
		common.WriteError(w, err, "failed to remove list item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Optimize handles GET /api/v1/list/optimize with optional lat/lng.
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	origin, err := catalog.ParseOrigin(r.URL.Query())
	if err != nil {
		common.WriteError(w, err, "failed to optimize list")
		return
	}
	result, err := h.service.Optimize(r.Context(), userID, origin)
	if err != nil {
		common.WriteError(w, err, "failed to optimize list")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}
