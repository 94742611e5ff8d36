// Package catalog serves the shared item and store directory: search,
// barcode lookup, item detail with current prices, and the store list with
// optional distance ordering.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-grocery/internal/common"
	"github.com/noah-isme/backend-grocery/internal/db"
	"github.com/noah-isme/backend-grocery/internal/geo"
)

type queryProvider interface {
	ListItems(ctx context.Context, arg db.ListItemsParams) ([]db.Item, error)
	CountItems(ctx context.Context, arg db.ListItemsParams) (int64, error)
	GetItem(ctx context.Context, id string) (db.Item, error)
	GetItemByBarcode(ctx context.Context, barcode string) (db.Item, error)
	ListPricesByItem(ctx context.Context, itemID string) ([]db.Price, error)
	ListPricesForItems(ctx context.Context, itemIDs []string) ([]db.Price, error)
	ListStores(ctx context.Context) ([]db.Store, error)
	GetStoresByIDs(ctx context.Context, ids []string) ([]db.Store, error)
}

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	queries      queryProvider
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for item listing.
type ListParams struct {
	Query    string
	Brand    string
	Category string
	Page     int
	Limit    int
}

// ItemSummary represents an entry in item list responses.
type ItemSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Brand        string  `json:"brand,omitempty"`
	Category     string  `json:"category,omitempty"`
	ImageURL     string  `json:"imageUrl,omitempty"`
	AvgRating    float64 `json:"avgRating"`
	RatingsCount int     `json:"ratingsCount"`
	// DistanceKm is the distance to the nearest store offering the item,
	// set only when the caller supplied an origin.
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// StorePrice is one store's current offer in an item detail payload.
type StorePrice struct {
	StoreID    string   `json:"storeId"`
	StoreName  string   `json:"storeName"`
	PriceCents int64    `json:"priceCents"`
	Unit       string   `json:"unit,omitempty"`
	IsDeal     bool     `json:"isDeal"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// ItemDetail aggregates the full detail payload.
type ItemDetail struct {
	ItemSummary
	Barcode string       `json:"barcode,omitempty"`
	Prices  []StorePrice `json:"prices"`
}

// StoreView is the public store payload. DistanceKm is set only when the
// caller supplied an origin.
type StoreView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// Location returns the store coordinate, or nil when unknown.
func (s StoreView) Location() *geo.Point {
	if s.Lat == nil || s.Lng == nil {
		return nil
	}
	return &geo.Point{Lat: *s.Lat, Lng: *s.Lng}
}

// ItemListResult contains list data and pagination metadata.
type ItemListResult struct {
	Items []ItemSummary
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: 1, Limit: s.defaultLimit}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Brand = strings.TrimSpace(values.Get("brand"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = limit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	return params, nil
}

// ListItems returns the filtered item list with pagination metadata. With an
// origin, items on the page are annotated with the distance to their nearest
// offering store and reordered nearest-first; items no located store offers
// keep their position at the end.
func (s *Service) ListItems(ctx context.Context, params ListParams, origin *geo.Point) (ItemListResult, error) {
	key, cacheable := listCacheKey(params, s.defaultLimit)
	cacheable = cacheable && origin == nil
	if cacheable {
		var cached cachedList
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return ItemListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	filter := db.ListItemsParams{
		Query:    params.Query,
		Brand:    params.Brand,
		Category: params.Category,
		Limit:    int32(params.Limit),
		Offset:   int32((params.Page - 1) * params.Limit),
	}
	total, err := s.queries.CountItems(ctx, filter)
	if err != nil {
		return ItemListResult{}, fmt.Errorf("count items: %w", err)
	}
	rows, err := s.queries.ListItems(ctx, filter)
	if err != nil {
		return ItemListResult{}, fmt.Errorf("list items: %w", err)
	}
	items := make([]ItemSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, summarize(row))
	}
	if origin != nil {
		if err := s.annotateDistances(ctx, items, *origin); err != nil {
			return ItemListResult{}, err
		}
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].DistanceKm, items[j].DistanceKm
			switch {
			case a != nil && b != nil:
				return *a < *b
			case a != nil:
				return true
			default:
				return false
			}
		})
	}
	if cacheable {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return ItemListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}, nil
}

// annotateDistances resolves the nearest located store offering each item.
func (s *Service) annotateDistances(ctx context.Context, items []ItemSummary, origin geo.Point) error {
	if len(items) == 0 {
		return nil
	}
	itemIDs := make([]string, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ID)
	}
	prices, err := s.queries.ListPricesForItems(ctx, itemIDs)
	if err != nil {
		return fmt.Errorf("list prices: %w", err)
	}
	storeIDs := make([]string, 0, len(prices))
	seen := map[string]struct{}{}
	for _, p := range prices {
		if _, ok := seen[p.StoreID]; !ok {
			seen[p.StoreID] = struct{}{}
			storeIDs = append(storeIDs, p.StoreID)
		}
	}
	if len(storeIDs) == 0 {
		return nil
	}
	stores, err := s.queries.GetStoresByIDs(ctx, storeIDs)
	if err != nil {
		return fmt.Errorf("get stores: %w", err)
	}
	distByStore := make(map[string]float64, len(stores))
	for _, st := range stores {
		if st.Lat == nil || st.Lng == nil {
			continue
		}
		distByStore[st.ID] = geo.HaversineKm(origin, geo.Point{Lat: *st.Lat, Lng: *st.Lng})
	}
	nearest := make(map[string]float64, len(items))
	for _, p := range prices {
		d, ok := distByStore[p.StoreID]
		if !ok {
			continue
		}
		if cur, ok := nearest[p.ItemID]; !ok || d < cur {
			nearest[p.ItemID] = d
		}
	}
	for i := range items {
		if d, ok := nearest[items[i].ID]; ok {
			dist := d
			items[i].DistanceKm = &dist
		}
	}
	return nil
}

// GetItemDetail returns one item with its current price at every store that
// carries it. An item no store prices yet still resolves, with empty prices.
func (s *Service) GetItemDetail(ctx context.Context, itemID string, origin *geo.Point) (ItemDetail, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return ItemDetail{}, badRequest("id", "item id is required", nil)
	}
	// Distance annotations depend on the caller's origin, so only the
	// origin-free payload is cached.
	if origin == nil {
		var cached ItemDetail
		if ok, err := s.cache.GetJSON(ctx, itemCacheKey(itemID), &cached); err == nil && ok {
			return cached, nil
		}
	}
	item, err := s.queries.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ItemDetail{}, notFound("item not found", err)
		}
		return ItemDetail{}, fmt.Errorf("get item: %w", err)
	}
	detail, err := s.assembleDetail(ctx, item, origin)
	if err != nil {
		return ItemDetail{}, err
	}
	if origin == nil {
		_ = s.cache.SetJSON(ctx, itemCacheKey(itemID), detail)
	}
	return detail, nil
}

// GetItemByBarcode resolves a scanned barcode to an item detail payload.
func (s *Service) GetItemByBarcode(ctx context.Context, barcode string, origin *geo.Point) (ItemDetail, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return ItemDetail{}, badRequest("barcode", "barcode is required", nil)
	}
	item, err := s.queries.GetItemByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ItemDetail{}, notFound("no item matches that barcode", err)
		}
		return ItemDetail{}, fmt.Errorf("get item by barcode: %w", err)
	}
	return s.assembleDetail(ctx, item, origin)
}

func (s *Service) assembleDetail(ctx context.Context, item db.Item, origin *geo.Point) (ItemDetail, error) {
	detail := ItemDetail{ItemSummary: summarize(item), Barcode: item.Barcode, Prices: []StorePrice{}}

	prices, err := s.queries.ListPricesByItem(ctx, item.ID)
	if err != nil {
		return ItemDetail{}, fmt.Errorf("list prices: %w", err)
	}
	if len(prices) == 0 {
		return detail, nil
	}
	storeIDs := make([]string, 0, len(prices))
	for _, p := range prices {
		storeIDs = append(storeIDs, p.StoreID)
	}
	stores, err := s.queries.GetStoresByIDs(ctx, storeIDs)
	if err != nil {
		return ItemDetail{}, fmt.Errorf("get stores: %w", err)
	}
	byID := make(map[string]db.Store, len(stores))
	for _, st := range stores {
		byID[st.ID] = st
	}
	for _, p := range prices {
		sp := StorePrice{
			StoreID:    p.StoreID,
			PriceCents: p.PriceCents,
			Unit:       p.Unit,
			IsDeal:     p.IsDeal,
		}
		if st, ok := byID[p.StoreID]; ok {
			sp.StoreName = st.Name
			if origin != nil && st.Lat != nil && st.Lng != nil {
				d := geo.HaversineKm(*origin, geo.Point{Lat: *st.Lat, Lng: *st.Lng})
				sp.DistanceKm = &d
			}
		}
		detail.Prices = append(detail.Prices, sp)
	}
	return detail, nil
}

// ListStores returns every store. With an origin the result is ordered by
// distance and stores without a known location are dropped.
func (s *Service) ListStores(ctx context.Context, origin *geo.Point) ([]StoreView, error) {
	rows, err := s.queries.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	views := make([]StoreView, 0, len(rows))
	for _, row := range rows {
		views = append(views, StoreView{
			ID:      row.ID,
			Name:    row.Name,
			Address: row.Address,
			Lat:     row.Lat,
			Lng:     row.Lng,
		})
	}
	if origin == nil {
		return views, nil
	}
	sorted := geo.SortByDistance(*origin, views)
	for i := range sorted {
		d := geo.HaversineKm(*origin, *sorted[i].Location())
		sorted[i].DistanceKm = &d
	}
	return sorted, nil
}

// GetStore returns a single store. With an origin and a known location the
// distance is annotated.
func (s *Service) GetStore(ctx context.Context, storeID string, origin *geo.Point) (StoreView, error) {
	rows, err := s.queries.GetStoresByIDs(ctx, []string{storeID})
	if err != nil {
		return StoreView{}, fmt.Errorf("get store: %w", err)
	}
	if len(rows) == 0 {
		return StoreView{}, notFound("store not found", nil)
	}
	row := rows[0]
	view := StoreView{ID: row.ID, Name: row.Name, Address: row.Address, Lat: row.Lat, Lng: row.Lng}
	if origin != nil {
		if loc := view.Location(); loc != nil {
			d := geo.HaversineKm(*origin, *loc)
			view.DistanceKm = &d
		}
	}
	return view, nil
}

// InvalidateItem drops cached entries touching the given item.
func (s *Service) InvalidateItem(ctx context.Context, itemID string) {
	s.cache.Invalidate(ctx, itemID)
}

func summarize(item db.Item) ItemSummary {
	return ItemSummary{
		ID:           item.ID,
		Name:         item.Name,
		Brand:        item.Brand,
		Category:     item.Category,
		ImageURL:     item.ImageURL,
		AvgRating:    item.AvgRating,
		RatingsCount: item.RatingsCount,
	}
}

type cachedList struct {
	Items []ItemSummary `json:"items"`
	Total int64         `json:"total"`
}

const listDefaultCacheKey = "catalog:items:list:default"

func listCacheKey(params ListParams, defaultLimit int) (string, bool) {
	if params.Page != 1 || params.Limit != defaultLimit {
		return "", false
	}
	if params.Query != "" || params.Brand != "" || params.Category != "" {
		return "", false
	}
	return listDefaultCacheKey, true
}

func itemCacheKey(itemID string) string {
	return "catalog:items:detail:" + itemID
}

// ParseOrigin reads optional lat/lng query values. Both must be present and
// valid for an origin to be returned.
func ParseOrigin(values url.Values) (*geo.Point, error) {
	latRaw := strings.TrimSpace(values.Get("lat"))
	lngRaw := strings.TrimSpace(values.Get("lng"))
	if latRaw == "" && lngRaw == "" {
		return nil, nil
	}
	if latRaw == "" || lngRaw == "" {
		return nil, badRequest("lat", "lat and lng must be provided together", nil)
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, badRequest("lat", "lat must be a valid latitude", err)
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, badRequest("lng", "lng must be a valid longitude", err)
	}
	return &geo.Point{Lat: lat, Lng: lng}, nil
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}

func notFound(message string, err error) *common.AppError {
	return &common.AppError{Code: "NOT_FOUND", Message: message, HTTPStatus: http.StatusNotFound, Err: err}
}
