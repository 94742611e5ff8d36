package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocery/internal/common"
	"github.com/noah-isme/backend-grocery/internal/db"
)

type fakeQueries struct {
	items    map[string]db.Item
	stores   map[string]db.Store
	prices   []db.Price
	upserted []db.UpsertPriceParams
}

func (f *fakeQueries) GetItem(_ context.Context, id string) (db.Item, error) {
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return db.Item{}, pgx.ErrNoRows
}

func (f *fakeQueries) GetStore(_ context.Context, id string) (db.Store, error) {
	if st, ok := f.stores[id]; ok {
		return st, nil
	}
	return db.Store{}, pgx.ErrNoRows
}

func (f *fakeQueries) UpsertPrice(_ context.Context, arg db.UpsertPriceParams) (db.Price, error) {
	f.upserted = append(f.upserted, arg)
	return db.Price{
		ItemID:     arg.ItemID,
		StoreID:    arg.StoreID,
		PriceCents: arg.PriceCents,
		Unit:       arg.Unit,
		IsDeal:     arg.IsDeal,
		Source:     arg.Source,
		RecordedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeQueries) ListPricesByItem(_ context.Context, itemID string) ([]db.Price, error) {
	var out []db.Price
	for _, p := range f.prices {
		if p.ItemID == itemID {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestHandler(t *testing.T, q *fakeQueries) *Handler {
	t.Helper()
	if q.items == nil {
		q.items = map[string]db.Item{}
	}
	if q.stores == nil {
		q.stores = map[string]db.Store{}
	}
	svc, err := NewService(q, nil)
	require.NoError(t, err)
	return NewHandler(svc)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func authed(r *http.Request) *http.Request {
	return r.WithContext(common.WithUserID(r.Context(), "2f9b7f1e-6f3c-4c37-9d1c-0f6f6f1a2b3c"))
}

func TestSubmitRequiresAuth(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{})
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prices", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitRecordsManualPrice(t *testing.T) {
	q := &fakeQueries{
		items:  map[string]db.Item{"milk-1l": {ID: "milk-1l"}},
		stores: map[string]db.Store{"alpha": {ID: "alpha"}},
	}
	h := newTestHandler(t, q)
	body := `{"itemId":"milk-1l","storeId":"alpha","priceCents":1999,"unit":"1L"}`
	rec := httptest.NewRecorder()
	h.Submit(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/prices", strings.NewReader(body))))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, q.upserted, 1)
	require.Equal(t, "manual", q.upserted[0].Source)
	require.Equal(t, int64(1999), q.upserted[0].PriceCents)
}

func TestSubmitRejectsNonPositivePrice(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{
		items:  map[string]db.Item{"milk-1l": {ID: "milk-1l"}},
		stores: map[string]db.Store{"alpha": {ID: "alpha"}},
	})
	body := `{"itemId":"milk-1l","storeId":"alpha","priceCents":0}`
	rec := httptest.NewRecorder()
	h.Submit(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/prices", strings.NewReader(body))))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitUnknownStore(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{
		items: map[string]db.Item{"milk-1l": {ID: "milk-1l"}},
	})
	body := `{"itemId":"milk-1l","storeId":"ghost","priceCents":100}`
	rec := httptest.NewRecorder()
	h.Submit(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/prices", strings.NewReader(body))))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestByItemListsOffers(t *testing.T) {
	h := newTestHandler(t, &fakeQueries{
		items: map[string]db.Item{"milk-1l": {ID: "milk-1l"}},
		prices: []db.Price{
			{ItemID: "milk-1l", StoreID: "alpha", PriceCents: 1999, Source: "manual", RecordedAt: time.Now()},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/milk-1l/prices", nil)
	req = withURLParam(req, "id", "milk-1l")
	rec := httptest.NewRecorder()
	h.ByItem(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"priceCents":1999`)
}
