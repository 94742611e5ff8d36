package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-grocery/internal/common"
)

type foodAPI interface {
	Search(ctx context.Context, query string, pageSize int) ([]Food, error)
	Detail(ctx context.Context, fdcID int64) (Food, error)
}

// Handler exposes nutrition lookup endpoints backed by the USDA client with
// a Redis cache in front. Search results barely change, so cached queries
// skip the upstream entirely.
type Handler struct {
	client foodAPI
	redis  *redis.Client
	ttl    time.Duration
}

// NewHandler constructs a Handler. The redis client may be nil, disabling
// the cache.
func NewHandler(client foodAPI, rdb *redis.Client, ttl time.Duration) *Handler {
	return &Handler{client: client, redis: rdb, ttl: ttl}
}

// Search handles GET /api/v1/nutrition/search?name=...&brand=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	name := strings.TrimSpace(values.Get("name"))
	if name == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "name is required", nil)
		return
	}
	query := name
	if brand := strings.TrimSpace(values.Get("brand")); brand != "" {
		query = name + " " + brand
	}
	ctx := r.Context()
	cacheKey := "nutrition:search:" + strings.ToLower(query)

	if h.redis != nil {
		if data, err := h.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var foods []Food
			if json.Unmarshal(data, &foods) == nil {
				common.JSON(w, http.StatusOK, map[string]any{"data": foods})
				return
			}
		}
	}

	foods, err := h.client.Search(ctx, query, 10)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no foods matched that query", nil)
		case errors.Is(err, ErrUpstream):
			common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "nutrition service unavailable", nil)
		default:
			common.WriteError(w, err, "failed to search nutrition data")
		}
		return
	}

	if h.redis != nil {
		if data, err := json.Marshal(foods); err == nil {
			_ = h.redis.Set(ctx, cacheKey, data, h.ttl).Err()
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": foods})
}

// Detail handles GET /api/v1/nutrition/foods/{fdcId}
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	fdcID, err := strconv.ParseInt(chi.URLParam(r, "fdcId"), 10, 64)
	if err != nil || fdcID < 1 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "fdcId must be a positive integer", nil)
		return
	}
	ctx := r.Context()
	cacheKey := "nutrition:food:" + strconv.FormatInt(fdcID, 10)

	if h.redis != nil {
		if data, err := h.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var food Food
			if json.Unmarshal(data, &food) == nil {
				common.JSON(w, http.StatusOK, map[string]any{"data": food})
				return
			}
		}
	}

	food, err := h.client.Detail(ctx, fdcID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "food not found", nil)
		case errors.Is(err, ErrUpstream):
			common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "nutrition service unavailable", nil)
		default:
			common.WriteError(w, err, "failed to load nutrition data")
		}
		return
	}

	if h.redis != nil {
		if data, err := json.Marshal(food); err == nil {
			_ = h.redis.Set(ctx, cacheKey, data, h.ttl).Err()
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": food})
}
