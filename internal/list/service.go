// Package list manages per-user shopping lists and runs the price
// optimization over them: which store covers the list cheapest, and where
// each item is cheapest individually.
package list

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-grocery/internal/common"
	"github.com/noah-isme/backend-grocery/internal/db"
	"github.com/noah-isme/backend-grocery/internal/geo"
	"github.com/noah-isme/backend-grocery/internal/obs"
	"github.com/noah-isme/backend-grocery/internal/pricing"
)

type queryProvider interface {
	GetListItems(ctx context.Context, userID uuid.UUID) ([]db.ListItem, error)
	AddListItem(ctx context.Context, userID uuid.UUID, itemID string, qty int) (int, error)
	SetListItemQty(ctx context.Context, userID uuid.UUID, itemID string, qty int) error
	DeleteListItem(ctx context.Context, userID uuid.UUID, itemID string) error
	GetItem(ctx context.Context, id string) (db.Item, error)
	GetItemsByIDs(ctx context.Context, ids []string) ([]db.Item, error)
	ListPricesForItems(ctx context.Context, itemIDs []string) ([]db.Price, error)
	GetStoresByIDs(ctx context.Context, ids []string) ([]db.Store, error)
}

// Service backs the shopping-list endpoints.
type Service struct {
	queries queryProvider
}

// NewService constructs a Service.
func NewService(queries queryProvider) (*Service, error) {
	if queries == nil {
		return nil, errors.New("list: queries provider is required")
	}
	return &Service{queries: queries}, nil
}

// Entry is one shopping-list line enriched with item metadata.
type Entry struct {
	ItemID   string `json:"itemId"`
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Qty      int    `json:"qty"`
}

// StoreResult is one store's total in the optimization response.
type StoreResult struct {
	StoreID    string       `json:"storeId"`
	Name       string       `json:"name"`
	Address    string       `json:"address,omitempty"`
	DistanceKm *float64     `json:"distanceKm,omitempty"`
	TotalCents int64        `json:"totalCents"`
	Items      []PickResult `json:"items"`
}

// PickResult is the chosen offer for one list entry at a store.
type PickResult struct {
	ItemID     string `json:"itemId"`
	Name       string `json:"name,omitempty"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"priceCents"`
}

// CheapestResult is the lowest price for one item across all stores.
type CheapestResult struct {
	ItemID     string `json:"itemId"`
	Name       string `json:"name,omitempty"`
	StoreID    string `json:"storeId"`
	StoreName  string `json:"storeName,omitempty"`
	PriceCents int64  `json:"priceCents"`
}

// OptimizeResult is the full optimization payload.
type OptimizeResult struct {
	Stores         []StoreResult    `json:"stores"`
	CheapestByItem []CheapestResult `json:"cheapestByItem"`
	UnpricedItems  []string         `json:"unpricedItems,omitempty"`
}

// Get returns the user's list with item metadata. Items that vanished from
// the catalog still appear with their id only.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	rows, err := s.queries.GetListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ItemID)
	}
	entries := make([]Entry, 0, len(rows))
	if len(ids) == 0 {
		return entries, nil
	}
	items, err := s.queries.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	byID := make(map[string]db.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, row := range rows {
		e := Entry{ItemID: row.ItemID, Qty: row.Qty}
		if it, ok := byID[row.ItemID]; ok {
			e.Name = it.Name
			e.Brand = it.Brand
			e.ImageURL = it.ImageURL
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Add puts qty units of an item on the list, merging with an existing line.
// Returns the resulting quantity.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, itemID string, qty int) (int, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return 0, common.NewAppError("BAD_REQUEST", "item id is required", http.StatusBadRequest, nil)
	}
	if qty < 1 {
		return 0, common.NewAppError("BAD_REQUEST", "qty must be at least 1", http.StatusBadRequest, nil)
	}
	if _, err := s.queries.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.NewAppError("NOT_FOUND", "item not found", http.StatusNotFound, err)
		}
		return 0, fmt.Errorf("get item: %w", err)
	}
	newQty, err := s.queries.AddListItem(ctx, userID, itemID, qty)
	if err != nil {
		return 0, fmt.Errorf("add list item: %w", err)
	}
	return newQty, nil
}

// SetQty replaces the quantity of a line. A qty of zero removes the line.
func (s *Service) SetQty(ctx context.Context, userID uuid.UUID, itemID string, qty int) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return common.NewAppError("BAD_REQUEST", "item id is required", http.StatusBadRequest, nil)
	}
	if qty < 0 {
		return common.NewAppError("BAD_REQUEST", "qty cannot be negative", http.StatusBadRequest, nil)
	}
	if qty == 0 {
		if err := s.queries.DeleteListItem(ctx, userID, itemID); err != nil {
			return fmt.Errorf("delete list item: %w", err)
		}
		return nil
	}
	if err := s.queries.SetListItemQty(ctx, userID, itemID, qty); err != nil {
		return fmt.Errorf("set list item qty: %w", err)
	}
	return nil
}

// Remove deletes a line from the list. Removing an absent line is a no-op.
func (s *Service) Remove(ctx context.Context, userID uuid.UUID, itemID string) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return common.NewAppError("BAD_REQUEST", "item id is required", http.StatusBadRequest, nil)
	}
	if err := s.queries.DeleteListItem(ctx, userID, itemID); err != nil {
		return fmt.Errorf("delete list item: %w", err)
	}
	return nil
}

// Optimize snapshots the user's list and all current offers, then computes
// per-store totals and the cheapest store for each item. With an origin the
// store results carry distances used for tie-breaking.
func (s *Service) Optimize(ctx context.Context, userID uuid.UUID, origin *geo.Point) (OptimizeResult, error) {
	start := time.Now()
	result, err := s.optimize(ctx, userID, origin)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if obs.OptimizeRunsTotal != nil {
		obs.OptimizeRunsTotal.WithLabelValues(outcome).Inc()
	}
	if obs.OptimizeDuration != nil {
		obs.OptimizeDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	return result, err
}

func (s *Service) optimize(ctx context.Context, userID uuid.UUID, origin *geo.Point) (OptimizeResult, error) {
	rows, err := s.queries.GetListItems(ctx, userID)
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("get list: %w", err)
	}
	result := OptimizeResult{Stores: []StoreResult{}, CheapestByItem: []CheapestResult{}}
	if len(rows) == 0 {
		return result, nil
	}

	entries := make([]pricing.ListEntry, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, pricing.ListEntry{ItemID: row.ItemID, Qty: row.Qty})
		ids = append(ids, row.ItemID)
	}
	priceRows, err := s.queries.ListPricesForItems(ctx, ids)
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("list prices: %w", err)
	}
	offers := make([]pricing.Offer, 0, len(priceRows))
	storeIDSet := make(map[string]struct{})
	pricedItems := make(map[string]struct{})
	for _, p := range priceRows {
		offers = append(offers, pricing.Offer{ItemID: p.ItemID, StoreID: p.StoreID, PriceCents: p.PriceCents})
		storeIDSet[p.StoreID] = struct{}{}
		pricedItems[p.ItemID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := pricedItems[id]; !ok {
			result.UnpricedItems = append(result.UnpricedItems, id)
		}
	}

	storeIDs := make([]string, 0, len(storeIDSet))
	for id := range storeIDSet {
		storeIDs = append(storeIDs, id)
	}
	var storeRows []db.Store
	if len(storeIDs) > 0 {
		storeRows, err = s.queries.GetStoresByIDs(ctx, storeIDs)
		if err != nil {
			return OptimizeResult{}, fmt.Errorf("get stores: %w", err)
		}
	}
	stores := make(map[string]pricing.StoreInfo, len(storeRows))
	storesByID := make(map[string]db.Store, len(storeRows))
	for _, st := range storeRows {
		info := pricing.StoreInfo{StoreID: st.ID, Name: st.Name}
		if origin != nil && st.Lat != nil && st.Lng != nil {
			d := geo.HaversineKm(*origin, geo.Point{Lat: *st.Lat, Lng: *st.Lng})
			info.DistanceKm = &d
		}
		stores[st.ID] = info
		storesByID[st.ID] = st
	}

	itemRows, err := s.queries.GetItemsByIDs(ctx, ids)
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("get items: %w", err)
	}
	itemNames := make(map[string]string, len(itemRows))
	for _, it := range itemRows {
		itemNames[it.ID] = it.Name
	}

	for _, st := range pricing.ComputeStoreTotals(entries, offers, stores) {
		sr := StoreResult{
			StoreID:    st.StoreID,
			Name:       st.Name,
			DistanceKm: st.DistanceKm,
			TotalCents: st.TotalCents,
			Items:      make([]PickResult, 0, len(st.Items)),
		}
		if row, ok := storesByID[st.StoreID]; ok {
			sr.Address = row.Address
		}
		for _, pick := range st.Items {
			sr.Items = append(sr.Items, PickResult{
				ItemID:     pick.ItemID,
				Name:       itemNames[pick.ItemID],
				Qty:        pick.Qty,
				PriceCents: pick.PriceCents,
			})
		}
		result.Stores = append(result.Stores, sr)
	}

	for _, pick := range pricing.CheapestPerItem(entries, offers) {
		cr := CheapestResult{
			ItemID:     pick.ItemID,
			Name:       itemNames[pick.ItemID],
			StoreID:    pick.StoreID,
			StoreName:  pick.StoreID,
			PriceCents: pick.PriceCents,
		}
		if st, ok := storesByID[pick.StoreID]; ok && st.Name != "" {
			cr.StoreName = st.Name
		}
		result.CheapestByItem = append(result.CheapestByItem, cr)
	}
	return result, nil
}
