package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocery/internal/db"
)

type fakeQueries struct {
	items  []db.Item
	stores []db.Store
	prices map[string][]db.Price
	err    error
}

func (f *fakeQueries) ListItems(context.Context, db.ListItemsParams) ([]db.Item, error) {
	return f.items, f.err
}

func (f *fakeQueries) CountItems(context.Context, db.ListItemsParams) (int64, error) {
	return int64(len(f.items)), f.err
}

func (f *fakeQueries) GetItem(_ context.Context, id string) (db.Item, error) {
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return db.Item{}, pgx.ErrNoRows
}

func (f *fakeQueries) GetItemByBarcode(_ context.Context, barcode string) (db.Item, error) {
	for _, it := range f.items {
		if it.Barcode == barcode {
			return it, nil
		}
	}
	return db.Item{}, pgx.ErrNoRows
}

func (f *fakeQueries) ListPricesByItem(_ context.Context, itemID string) ([]db.Price, error) {
	return f.prices[itemID], nil
}

func (f *fakeQueries) ListPricesForItems(_ context.Context, itemIDs []string) ([]db.Price, error) {
	var out []db.Price
	for _, id := range itemIDs {
		out = append(out, f.prices[id]...)
	}
	return out, nil
}

func (f *fakeQueries) ListStores(context.Context) ([]db.Store, error) {
	return f.stores, f.err
}

func (f *fakeQueries) GetStoresByIDs(_ context.Context, ids []string) ([]db.Store, error) {
	var out []db.Store
	for _, st := range f.stores {
		for _, id := range ids {
			if st.ID == id {
				out = append(out, st)
			}
		}
	}
	return out, nil
}

func newTestHandler(t *testing.T, q queryProvider) *Handler {
	t.Helper()
	svc, err := NewService(ServiceConfig{Queries: q, DefaultLimit: 20, MaxLimit: 100})
	require.NoError(t, err)
	return NewHandler(svc)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestItemsReturnsSummaries(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{items: []db.Item{
		{ID: "milk-1l", Name: "Milk 1L", Brand: "Daily", AvgRating: 4.5, RatingsCount: 12},
	}})
	rec := httptest.NewRecorder()
	h.Items(rec, httptest.NewRequest(http.MethodGet, "/api/v1/items?q=milk", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	require.Contains(t, rec.Body.String(), `"Milk 1L"`)
	require.Contains(t, rec.Body.String(), `"avgRating":4.5`)
}

func TestItemsRejectsBadPage(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{})
	rec := httptest.NewRecorder()
	h.Items(rec, httptest.NewRequest(http.MethodGet, "/api/v1/items?page=zero", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemDetailIncludesStorePrices(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{
		items:  []db.Item{{ID: "milk-1l", Name: "Milk 1L"}},
		stores: []db.Store{{ID: "alpha", Name: "Alpha Mart"}},
		prices: map[string][]db.Price{"milk-1l": {{ItemID: "milk-1l", StoreID: "alpha", PriceCents: 1999}}},
	})
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/items/milk-1l", nil), "id", "milk-1l")
	rec := httptest.NewRecorder()
	h.ItemDetail(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"Alpha Mart"`)
	require.Contains(t, rec.Body.String(), `"priceCents":1999`)
}

func TestItemDetailNotFound(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{})
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/items/nope", nil), "id", "nope")
	rec := httptest.NewRecorder()
	h.ItemDetail(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestItemByBarcodeNotFound(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{})
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/items/barcode/000", nil), "code", "000")
	rec := httptest.NewRecorder()
	h.ItemByBarcode(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoresSortedByDistanceDropsUnlocated(t *testing.T) {
	lat := func(f float64) *float64 { return &f }
	h := newTestHandler(t, &fakeQueries{stores: []db.Store{
		{ID: "far", Name: "Far", Lat: lat(10), Lng: lat(0)},
		{ID: "nowhere", Name: "Nowhere"},
		{ID: "near", Name: "Near", Lat: lat(1), Lng: lat(0)},
	}})
	rec := httptest.NewRecorder()
	h.Stores(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stores?lat=0&lng=0", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.NotContains(t, body, "Nowhere")
	require.Less(t, strings.Index(body, "Near"), strings.Index(body, "Far"))
}

func TestStoresRejectsLoneLatitude(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{})
	rec := httptest.NewRecorder()
	h.Stores(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stores?lat=1.5", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreDetail(t *testing.T) {
	lat := func(f float64) *float64 { return &f }
	h := newTestHandler(t, &fakeQueries{stores: []db.Store{
		{ID: "alpha", Name: "Alpha Mart", Address: "1 Main St", Lat: lat(1), Lng: lat(0)},
	}})
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/stores/alpha?lat=0&lng=0", nil), "id", "alpha")
	rec := httptest.NewRecorder()
	h.Store(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Alpha Mart")
	require.Contains(t, rec.Body.String(), "distanceKm")
}

func TestStoreDetailNotFound(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{})
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/stores/ghost", nil), "id", "ghost")
	rec := httptest.NewRecorder()
	h.Store(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestItemsSortedByNearestOfferingStore(t *testing.T) {
	lat := func(f float64) *float64 { return &f }
	h := newTestHandler(t, &fakeQueries{
		items: []db.Item{
			{ID: "far-item", Name: "Far Item"},
			{ID: "near-item", Name: "Near Item"},
			{ID: "unpriced-item", Name: "Unpriced Item"},
		},
		stores: []db.Store{
			{ID: "far", Name: "Far", Lat: lat(10), Lng: lat(0)},
			{ID: "near", Name: "Near", Lat: lat(1), Lng: lat(0)},
		},
		prices: map[string][]db.Price{
			"far-item":  {{ItemID: "far-item", StoreID: "far", PriceCents: 100}},
			"near-item": {{ItemID: "near-item", StoreID: "near", PriceCents: 100}},
		},
	})
	rec := httptest.NewRecorder()
	h.Items(rec, httptest.NewRequest(http.MethodGet, "/api/v1/items?lat=0&lng=0", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Less(t, strings.Index(body, "Near Item"), strings.Index(body, "Far Item"))
	require.Less(t, strings.Index(body, "Far Item"), strings.Index(body, "Unpriced Item"))
}
