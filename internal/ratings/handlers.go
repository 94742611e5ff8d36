package ratings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-grocery/internal/common"
)

// Handler exposes the rating endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

// Create handles POST /api/v1/items/{id}/ratings. Requires auth.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	view, err := h.service.Create(r.Context(), userID, chi.URLParam(r, "id"), req.Stars, req.Comment)
	if err != nil {
		common.WriteError(w, err, "failed to create rating")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// List handles GET /api/v1/items/{id}/ratings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 10)
	views, err := h.service.List(r.Context(), chi.URLParam(r, "id"), page, perPage)
	if err != nil {
		common.WriteError(w, err, "failed to list ratings")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// Stats handles GET /api/v1/items/{id}/ratings/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ItemStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err, "failed to get rating stats")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}
