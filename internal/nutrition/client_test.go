package nutrition

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSearchParsesFoods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/foods/search", r.URL.Path)
		require.Equal(t, "oat milk", r.URL.Query().Get("query"))
		w.Write([]byte(`{"foods":[{"fdcId":123,"description":"Oat milk","foodNutrients":[{"nutrientName":"Energy","value":47,"unitName":"KCAL"}]}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", zerolog.Nop())
	foods, err := c.Search(context.Background(), "oat milk", 10)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	require.Equal(t, int64(123), foods[0].FdcID)
	require.Equal(t, "Energy", foods[0].Nutrients[0].Name)
}

func TestSearchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"foods":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", zerolog.Nop())
	_, err := c.Search(context.Background(), "unobtainium", 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"foods":[{"fdcId":1,"description":"Rice"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", zerolog.Nop())
	foods, err := c.Search(context.Background(), "rice", 10)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	require.Equal(t, int32(3), calls.Load())
}

func TestHandlerCachesSearches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"foods":[{"fdcId":7,"description":"Eggs"}]}`))
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	h := NewHandler(NewClient(srv.URL, "key", zerolog.Nop()), rdb, time.Minute)

	for range 2 {
		rec := httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/search?name=eggs", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Eggs")
	}
	require.Equal(t, int32(1), calls.Load())
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, string, int) ([]Food, error) {
	return nil, fmt.Errorf("%w: boom", ErrUpstream)
}

func (failingSearcher) Detail(context.Context, int64) (Food, error) {
	return Food{}, fmt.Errorf("%w: boom", ErrUpstream)
}

func TestHandlerUpstreamFailure(t *testing.T) {
	h := NewHandler(failingSearcher{}, nil, time.Minute)
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/search?name=x", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandlerRequiresName(t *testing.T) {
	h := NewHandler(failingSearcher{}, nil, time.Minute)
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/search?brand=acme", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerFoodDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/food/123", r.URL.Path)
		w.Write([]byte(`{"fdcId":123,"description":"Oat milk"}`))
	}))
	defer srv.Close()

	h := NewHandler(NewClient(srv.URL, "key", zerolog.Nop()), nil, time.Minute)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("fdcId", "123")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/foods/123", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Detail(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Oat milk")
}

func TestHandlerFoodDetailBadID(t *testing.T) {
	h := NewHandler(failingSearcher{}, nil, time.Minute)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("fdcId", "abc")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/foods/abc", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Detail(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
