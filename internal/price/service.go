// Package price accepts community price submissions and serves price history
// per item. Submissions replace the current offer for the (item, store) pair.
package price

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-grocery/internal/common"
	"github.com/noah-isme/backend-grocery/internal/db"
	"github.com/noah-isme/backend-grocery/internal/obs"
)

type queryProvider interface {
	GetItem(ctx context.Context, id string) (db.Item, error)
	GetStore(ctx context.Context, id string) (db.Store, error)
	UpsertPrice(ctx context.Context, arg db.UpsertPriceParams) (db.Price, error)
	ListPricesByItem(ctx context.Context, itemID string) ([]db.Price, error)
}

type cacheInvalidator interface {
	InvalidateItem(ctx context.Context, itemID string)
}

// Submission is a user-reported price for an item at a store.
type Submission struct {
	ItemID     string `json:"itemId" validate:"required"`
	StoreID    string `json:"storeId" validate:"required"`
	PriceCents int64  `json:"priceCents" validate:"required,gt=0"`
	Unit       string `json:"unit" validate:"omitempty,max=32"`
	IsDeal     bool   `json:"isDeal"`
}

// View is the public price payload.
type View struct {
	ItemID     string `json:"itemId"`
	StoreID    string `json:"storeId"`
	PriceCents int64  `json:"priceCents"`
	Unit       string `json:"unit,omitempty"`
	IsDeal     bool   `json:"isDeal"`
	Source     string `json:"source"`
	RecordedAt string `json:"recordedAt"`
}

// Service validates and records price submissions.
type Service struct {
	queries  queryProvider
	cache    cacheInvalidator
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(queries queryProvider, cache cacheInvalidator) (*Service, error) {
	if queries == nil {
		return nil, errors.New("price: queries provider is required")
	}
	return &Service{
		queries:  queries,
		cache:    cache,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Submit records a manual price submission. The referenced item and store
// must already exist in the catalog.
func (s *Service) Submit(ctx context.Context, sub Submission) (View, error) {
	sub.ItemID = strings.TrimSpace(sub.ItemID)
	sub.StoreID = strings.TrimSpace(sub.StoreID)
	if err := s.validate.Struct(sub); err != nil {
		return View{}, &common.AppError{
			Code:       "VALIDATION",
			Message:    "invalid price submission",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
		}
	}
	if _, err := s.queries.GetItem(ctx, sub.ItemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NewAppError("NOT_FOUND", "item not found", http.StatusNotFound, err)
		}
		return View{}, fmt.Errorf("get item: %w", err)
	}
	if _, err := s.queries.GetStore(ctx, sub.StoreID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NewAppError("NOT_FOUND", "store not found", http.StatusNotFound, err)
		}
		return View{}, fmt.Errorf("get store: %w", err)
	}
	row, err := s.queries.UpsertPrice(ctx, db.UpsertPriceParams{
		ItemID:     sub.ItemID,
		StoreID:    sub.StoreID,
		PriceCents: sub.PriceCents,
		Unit:       strings.TrimSpace(sub.Unit),
		IsDeal:     sub.IsDeal,
		Source:     "manual",
	})
	if err != nil {
		return View{}, fmt.Errorf("upsert price: %w", err)
	}
	if obs.PriceSubmissionsTotal != nil {
		obs.PriceSubmissionsTotal.WithLabelValues("manual").Inc()
	}
	if s.cache != nil {
		s.cache.InvalidateItem(ctx, sub.ItemID)
	}
	return toView(row), nil
}

// ListByItem returns current offers for one item, cheapest first.
func (s *Service) ListByItem(ctx context.Context, itemID string) ([]View, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, common.NewAppError("BAD_REQUEST", "item id is required", http.StatusBadRequest, nil)
	}
	if _, err := s.queries.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewAppError("NOT_FOUND", "item not found", http.StatusNotFound, err)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	rows, err := s.queries.ListPricesByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, toView(row))
	}
	return views, nil
}

func toView(p db.Price) View {
	return View{
		ItemID:     p.ItemID,
		StoreID:    p.StoreID,
		PriceCents: p.PriceCents,
		Unit:       p.Unit,
		IsDeal:     p.IsDeal,
		Source:     p.Source,
		RecordedAt: p.RecordedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
