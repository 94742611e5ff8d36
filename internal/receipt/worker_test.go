package receipt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocery/internal/db"
)

type fakeQueries struct {
	receipts map[uuid.UUID]*db.Receipt
	stores   map[string]db.Store
	items    map[string]db.Item
	prices   []db.UpsertPriceParams
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		receipts: map[uuid.UUID]*db.Receipt{},
		stores:   map[string]db.Store{},
		items:    map[string]db.Item{},
	}
}

func (f *fakeQueries) GetReceiptByID(_ context.Context, id uuid.UUID) (db.Receipt, error) {
	if r, ok := f.receipts[id]; ok {
		return *r, nil
	}
	return db.Receipt{}, pgx.ErrNoRows
}

func (f *fakeQueries) MarkReceiptProcessing(_ context.Context, id uuid.UUID) error {
	r, ok := f.receipts[id]
	if !ok || r.Status != "pending" {
		return pgx.ErrNoRows
	}
	r.Status = "processing"
	return nil
}

func (f *fakeQueries) MarkReceiptDone(_ context.Context, id uuid.UUID, storeName, address string, payload []byte) error {
	r := f.receipts[id]
	r.Status = "done"
	r.StoreName = storeName
	r.Address = address
	r.Payload = payload
	return nil
}

func (f *fakeQueries) MarkReceiptFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	r := f.receipts[id]
	r.Status = "failed"
	r.Error = errMsg
	return nil
}

func (f *fakeQueries) GetStoreByName(_ context.Context, name string) (db.Store, error) {
	for _, st := range f.stores {
		if st.Name == name {
			return st, nil
		}
	}
	return db.Store{}, pgx.ErrNoRows
}

func (f *fakeQueries) UpsertStore(_ context.Context, arg db.UpsertStoreParams) error {
	f.stores[arg.ID] = db.Store{ID: arg.ID, Name: arg.Name, Address: arg.Address}
	return nil
}

func (f *fakeQueries) GetItemByName(_ context.Context, name string) (db.Item, error) {
	if it, ok := f.items[name]; ok {
		return it, nil
	}
	return db.Item{}, pgx.ErrNoRows
}

func (f *fakeQueries) UpsertPrice(_ context.Context, arg db.UpsertPriceParams) (db.Price, error) {
	f.prices = append(f.prices, arg)
	return db.Price{ItemID: arg.ItemID, StoreID: arg.StoreID, PriceCents: arg.PriceCents}, nil
}

type staticParser struct {
	parsed Parsed
	err    error
}

func (p staticParser) Parse(context.Context, string) (Parsed, error) {
	return p.parsed, p.err
}

func mustTask(t *testing.T, id uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := NewParseTask(id)
	require.NoError(t, err)
	return task
}

func TestProcessTaskMatchesItemsAndRecordsPrices(t *testing.T) {
	q := newFakeQueries()
	id := uuid.New()
	q.receipts[id] = &db.Receipt{ID: id, Status: "pending", RawText: "..."}
	q.stores["alpha-mart"] = db.Store{ID: "alpha-mart", Name: "Alpha Mart"}
	q.items["Milk 1L"] = db.Item{ID: "milk-1l", Name: "Milk 1L"}

	w := &Worker{
		Queries: q,
		Parser: staticParser{parsed: Parsed{
			StoreName: "Alpha Mart",
			Items: []ParsedItem{
				{ItemName: "Milk 1L", Price: 19.99},
				{ItemName: "Mystery Snack", Price: 3.50},
			},
		}},
		Log: zerolog.Nop(),
	}
	require.NoError(t, w.ProcessTask(context.Background(), mustTask(t, id)))

	require.Equal(t, "done", q.receipts[id].Status)
	require.Len(t, q.prices, 1)
	require.Equal(t, "milk-1l", q.prices[0].ItemID)
	require.Equal(t, int64(1999), q.prices[0].PriceCents)
	require.Equal(t, "receipt", q.prices[0].Source)

	var result resultPayload
	require.NoError(t, json.Unmarshal(q.receipts[id].Payload, &result))
	require.Len(t, result.Lines, 2)
	require.True(t, result.Lines[0].Matched)
	require.False(t, result.Lines[1].Matched)
}

func TestProcessTaskCreatesUnknownStore(t *testing.T) {
	q := newFakeQueries()
	id := uuid.New()
	q.receipts[id] = &db.Receipt{ID: id, Status: "pending", RawText: "..."}

	w := &Worker{
		Queries: q,
		Parser:  staticParser{parsed: Parsed{StoreName: "Beta Mart", Address: "Jl. Sudirman 1"}},
		Log:     zerolog.Nop(),
	}
	require.NoError(t, w.ProcessTask(context.Background(), mustTask(t, id)))
	require.Contains(t, q.stores, "beta-mart")
	require.Equal(t, "Jl. Sudirman 1", q.stores["beta-mart"].Address)
}

func TestProcessTaskUnparseableIsTerminal(t *testing.T) {
	q := newFakeQueries()
	id := uuid.New()
	q.receipts[id] = &db.Receipt{ID: id, Status: "pending", RawText: "garbage"}

	w := &Worker{Queries: q, Parser: staticParser{err: ErrParse}, Log: zerolog.Nop()}
	err := w.ProcessTask(context.Background(), mustTask(t, id))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, "failed", q.receipts[id].Status)
}

func TestProcessTaskMissingStoreNameIsTerminal(t *testing.T) {
	q := newFakeQueries()
	id := uuid.New()
	q.receipts[id] = &db.Receipt{ID: id, Status: "pending", RawText: "..."}

	w := &Worker{
		Queries: q,
		Parser:  staticParser{parsed: Parsed{Items: []ParsedItem{{ItemName: "Eggs", Price: 4.25}}}},
		Log:     zerolog.Nop(),
	}
	err := w.ProcessTask(context.Background(), mustTask(t, id))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, "failed", q.receipts[id].Status)
	require.Equal(t, "receipt has no store name", q.receipts[id].Error)
	require.Empty(t, q.prices)
}

func TestProcessTaskAlreadyClaimedIsNoOp(t *testing.T) {
	q := newFakeQueries()
	id := uuid.New()
	q.receipts[id] = &db.Receipt{ID: id, Status: "done", RawText: "..."}

	w := &Worker{Queries: q, Parser: staticParser{}, Log: zerolog.Nop()}
	require.NoError(t, w.ProcessTask(context.Background(), mustTask(t, id)))
	require.Equal(t, "done", q.receipts[id].Status)
}

func TestParserDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/parse", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"store_name":"Alpha Mart","address":"Main St","items":[{"item_name":"Eggs","price":4.25}]}`))
	}))
	defer srv.Close()

	p := NewParser(srv.URL, "secret")
	parsed, err := p.Parse(context.Background(), "raw text")
	require.NoError(t, err)
	require.Equal(t, "Alpha Mart", parsed.StoreName)
	require.Equal(t, int64(425), parsed.Items[0].PriceCents())
}

func TestParserUnprocessable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p := NewParser(srv.URL, "")
	_, err := p.Parse(context.Background(), "???")
	require.ErrorIs(t, err, ErrParse)
}
