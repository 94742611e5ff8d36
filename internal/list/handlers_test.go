package list

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocery/internal/common"
	"github.com/noah-isme/backend-grocery/internal/db"
)

var testUserID = uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")

type fakeQueries struct {
	lists  map[uuid.UUID][]db.ListItem
	items  map[string]db.Item
	stores []db.Store
	prices []db.Price
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		lists: map[uuid.UUID][]db.ListItem{},
		items: map[string]db.Item{},
	}
}

func (f *fakeQueries) GetListItems(_ context.Context, userID uuid.UUID) ([]db.ListItem, error) {
	return f.lists[userID], nil
}

func (f *fakeQueries) AddListItem(_ context.Context, userID uuid.UUID, itemID string, qty int) (int, error) {
	for i, li := range f.lists[userID] {
		if li.ItemID == itemID {
			f.lists[userID][i].Qty += qty
			return f.lists[userID][i].Qty, nil
		}
	}
	f.lists[userID] = append(f.lists[userID], db.ListItem{ItemID: itemID, Qty: qty})
	return qty, nil
}

func (f *fakeQueries) SetListItemQty(_ context.Context, userID uuid.UUID, itemID string, qty int) error {
	for i, li := range f.lists[userID] {
		if li.ItemID == itemID {
			f.lists[userID][i].Qty = qty
			return nil
		}
	}
	f.lists[userID] = append(f.lists[userID], db.ListItem{ItemID: itemID, Qty: qty})
	return nil
}

func (f *fakeQueries) DeleteListItem(_ context.Context, userID uuid.UUID, itemID string) error {
	kept := f.lists[userID][:0]
	for _, li := range f.lists[userID] {
		if li.ItemID != itemID {
			kept = append(kept, li)
		}
	}
	f.lists[userID] = kept
	return nil
}

func (f *fakeQueries) GetItem(_ context.Context, id string) (db.Item, error) {
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return db.Item{}, pgx.ErrNoRows
}

func (f *fakeQueries) GetItemsByIDs(_ context.Context, ids []string) ([]db.Item, error) {
	var out []db.Item
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeQueries) ListPricesForItems(_ context.Context, itemIDs []string) ([]db.Price, error) {
	var out []db.Price
	for _, p := range f.prices {
		for _, id := range itemIDs {
			if p.ItemID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
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

func newTestHandler(t *testing.T, q *fakeQueries) *Handler {
	t.Helper()
	svc, err := NewService(q)
	require.NoError(t, err)
	return NewHandler(svc)
}

func authed(r *http.Request) *http.Request {
	return r.WithContext(common.WithUserID(r.Context(), testUserID.String()))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetRequiresAuth(t *testing.T) {
	h := newTestHandler(t, newFakeQueries())
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/list", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddMergesQuantities(t *testing.T) {
	q := newFakeQueries()
	q.items["milk-1l"] = db.Item{ID: "milk-1l", Name: "Milk 1L"}
	h := newTestHandler(t, q)

	for range 2 {
		body := strings.NewReader(`{"itemId":"milk-1l","qty":2}`)
		rec := httptest.NewRecorder()
		h.Add(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/list/items", body)))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, []db.ListItem{{ItemID: "milk-1l", Qty: 4}}, q.lists[testUserID])
}

func TestAddUnknownItem(t *testing.T) {
	h := newTestHandler(t, newFakeQueries())
	body := strings.NewReader(`{"itemId":"ghost","qty":1}`)
	rec := httptest.NewRecorder()
	h.Add(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/list/items", body)))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetQtyZeroRemovesLine(t *testing.T) {
	q := newFakeQueries()
	q.items["milk-1l"] = db.Item{ID: "milk-1l"}
	q.lists[testUserID] = []db.ListItem{{ItemID: "milk-1l", Qty: 3}}
	h := newTestHandler(t, q)

	req := withURLParam(authed(httptest.NewRequest(http.MethodPut, "/api/v1/list/items/milk-1l", strings.NewReader(`{"qty":0}`))), "itemId", "milk-1l")
	rec := httptest.NewRecorder()
	h.SetQty(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, q.lists[testUserID])
}

func TestRemoveAbsentLineIsNoOp(t *testing.T) {
	h := newTestHandler(t, newFakeQueries())
	req := withURLParam(authed(httptest.NewRequest(http.MethodDelete, "/api/v1/list/items/ghost", nil)), "itemId", "ghost")
	rec := httptest.NewRecorder()
	h.Remove(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOptimizeEmptyList(t *testing.T) {
	h := newTestHandler(t, newFakeQueries())
	rec := httptest.NewRecorder()
	h.Optimize(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/list/optimize", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"stores":[]`)
}

func TestOptimizeRanksStores(t *testing.T) {
	lat := func(f float64) *float64 { return &f }
	q := newFakeQueries()
	q.items["milk-1l"] = db.Item{ID: "milk-1l", Name: "Milk 1L"}
	q.items["eggs-12"] = db.Item{ID: "eggs-12", Name: "Eggs 12pk"}
	q.lists[testUserID] = []db.ListItem{
		{ItemID: "milk-1l", Qty: 2},
		{ItemID: "eggs-12", Qty: 1},
	}
	q.stores = []db.Store{
		{ID: "alpha", Name: "Alpha Mart", Lat: lat(0), Lng: lat(0)},
		{ID: "beta", Name: "Beta Mart", Lat: lat(1), Lng: lat(0)},
	}
	q.prices = []db.Price{
		{ItemID: "milk-1l", StoreID: "alpha", PriceCents: 1000},
		{ItemID: "milk-1l", StoreID: "beta", PriceCents: 900},
		{ItemID: "eggs-12", StoreID: "alpha", PriceCents: 3000},
		{ItemID: "eggs-12", StoreID: "beta", PriceCents: 3300},
	}
	h := newTestHandler(t, q)
	rec := httptest.NewRecorder()
	h.Optimize(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/list/optimize?lat=0&lng=0", nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data OptimizeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// alpha: 2*1000 + 3000 = 5000; beta: 2*900 + 3300 = 5100
	require.Len(t, resp.Data.Stores, 2)
	require.Equal(t, "alpha", resp.Data.Stores[0].StoreID)
	require.Equal(t, int64(5000), resp.Data.Stores[0].TotalCents)
	require.Equal(t, "beta", resp.Data.Stores[1].StoreID)
	require.Equal(t, int64(5100), resp.Data.Stores[1].TotalCents)
	require.NotNil(t, resp.Data.Stores[0].DistanceKm)
	require.Empty(t, resp.Data.UnpricedItems)

	// Mixed-store cheapest picks per item.
	require.Len(t, resp.Data.CheapestByItem, 2)
	require.Equal(t, "beta", resp.Data.CheapestByItem[0].StoreID)
	require.Equal(t, "Beta Mart", resp.Data.CheapestByItem[0].StoreName)
	require.Equal(t, int64(900), resp.Data.CheapestByItem[0].PriceCents)
}

func TestOptimizeUnpricedItemYieldsNoStores(t *testing.T) {
	q := newFakeQueries()
	q.items["milk-1l"] = db.Item{ID: "milk-1l", Name: "Milk 1L"}
	q.items["saffron"] = db.Item{ID: "saffron", Name: "Saffron"}
	q.lists[testUserID] = []db.ListItem{
		{ItemID: "milk-1l", Qty: 1},
		{ItemID: "saffron", Qty: 1},
	}
	q.stores = []db.Store{{ID: "alpha", Name: "Alpha Mart"}}
	q.prices = []db.Price{{ItemID: "milk-1l", StoreID: "alpha", PriceCents: 1000}}
	h := newTestHandler(t, q)
	rec := httptest.NewRecorder()
	h.Optimize(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/list/optimize", nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data OptimizeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// No store carries saffron, so no store can serve the whole list. The
	// unpriced item is reported so the client can explain the empty ranking.
	require.Empty(t, resp.Data.Stores)
	require.Equal(t, []string{"saffron"}, resp.Data.UnpricedItems)

	// Per-item picks still cover the priced item.
	require.Len(t, resp.Data.CheapestByItem, 1)
	require.Equal(t, "milk-1l", resp.Data.CheapestByItem[0].ItemID)
}

func TestOptimizeCheapestPickStoreNameFallsBackToID(t *testing.T) {
	q := newFakeQueries()
	q.items["milk-1l"] = db.Item{ID: "milk-1l", Name: "Milk 1L"}
	q.lists[testUserID] = []db.ListItem{{ItemID: "milk-1l", Qty: 1}}
	q.stores = []db.Store{{ID: "alpha"}}
	q.prices = []db.Price{{ItemID: "milk-1l", StoreID: "alpha", PriceCents: 1000}}
	h := newTestHandler(t, q)
	rec := httptest.NewRecorder()
	h.Optimize(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/list/optimize", nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data OptimizeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.CheapestByItem, 1)
	require.Equal(t, "alpha", resp.Data.CheapestByItem[0].StoreName)
}
