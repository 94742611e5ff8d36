package directions

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-grocery/internal/common"
)

type router interface {
	Route(ctx context.Context, from, to LatLng, mode string) (Route, error)
}

// Handler exposes the directions endpoint.
type Handler struct {
	client router
}

// NewHandler constructs a Handler.
func NewHandler(client router) *Handler {
	return &Handler{client: client}
}

// Get handles GET /api/v1/directions?fromLat=&fromLng=&toLat=&toLng=&mode=.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	from, err := parsePoint(values, "fromLat", "fromLng")
	if err != nil {
		common.WriteError(w, err, "failed to get directions")
		return
	}
	to, err := parsePoint(values, "toLat", "toLng")
	if err != nil {
		common.WriteError(w, err, "failed to get directions")
		return
	}
	mode := strings.TrimSpace(values.Get("mode"))
	switch mode {
	case "", "driving", "walking", "bicycling", "transit":
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported travel mode", nil)
		return
	}

	route, err := h.client.Route(r.Context(), from, to, mode)
	if err != nil {
		if errors.Is(err, ErrNoRoute) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no route found", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "routing service unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": route})
}

func parsePoint(values url.Values, latKey, lngKey string) (LatLng, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(values.Get(latKey)), 64)
	if err != nil || lat < -90 || lat > 90 {
		return LatLng{}, common.NewAppError("BAD_REQUEST", latKey+" must be a valid latitude", http.StatusBadRequest, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(values.Get(lngKey)), 64)
	if err != nil || lng < -180 || lng > 180 {
		return LatLng{}, common.NewAppError("BAD_REQUEST", lngKey+" must be a valid longitude", http.StatusBadRequest, err)
	}
	return LatLng{Lat: lat, Lng: lng}, nil
}
