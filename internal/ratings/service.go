// Package ratings lets users rate catalog items and exposes per-item rating
// aggregates. The average and count are denormalised onto the item row so
// list responses never join the ratings table.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-grocery/internal/common"
	"github.com/noah-isme/backend-grocery/internal/db"
)

type queryProvider interface {
	GetItem(ctx context.Context, id string) (db.Item, error)
	InsertRating(ctx context.Context, arg db.InsertRatingParams) (db.Rating, error)
	ListRatingsByItem(ctx context.Context, itemID string, limit, offset int32) ([]db.Rating, error)
	GetRatingStats(ctx context.Context, itemID string) (db.RatingStats, error)
	SetItemRatingStats(ctx context.Context, itemID string, avg float64, count int) error
}

// Service backs the rating endpoints.
type Service struct {
	queries queryProvider
}

// NewService constructs a Service.
func NewService(queries queryProvider) (*Service, error) {
	if queries == nil {
		return nil, errors.New("ratings: queries provider is required")
	}
	return &Service{queries: queries}, nil
}

// View is the public rating payload.
type View struct {
	ID        string `json:"id"`
	ItemID    string `json:"itemId"`
	Stars     int    `json:"stars"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Stats is the aggregate payload for one item.
type Stats struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Create records a rating and refreshes the item's denormalised aggregates.
// A second rating from the same user for the same item is a conflict.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, itemID string, stars int, comment string) (View, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return View{}, common.NewAppError("BAD_REQUEST", "item id is required", http.StatusBadRequest, nil)
	}
	if stars < 1 || stars > 5 {
		return View{}, common.NewAppError("BAD_REQUEST", "stars must be between 1 and 5", http.StatusBadRequest, nil)
	}
	if _, err := s.queries.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NewAppError("NOT_FOUND", "item not found", http.StatusNotFound, err)
		}
		return View{}, fmt.Errorf("get item: %w", err)
	}
	row, err := s.queries.InsertRating(ctx, db.InsertRatingParams{
		ItemID:  itemID,
		UserID:  userID,
		Stars:   stars,
		Comment: strings.TrimSpace(comment),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return View{}, common.NewAppError("CONFLICT", "you have already rated this item", http.StatusConflict, err)
		}
		return View{}, fmt.Errorf("insert rating: %w", err)
	}
	if stats, err := s.queries.GetRatingStats(ctx, itemID); err == nil {
		_ = s.queries.SetItemRatingStats(ctx, itemID, stats.Average, stats.Count)
	}
	return toView(row), nil
}

// List returns ratings for an item, newest first.
func (s *Service) List(ctx context.Context, itemID string, page, perPage int) ([]View, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, common.NewAppError("BAD_REQUEST", "item id is required", http.StatusBadRequest, nil)
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	rows, err := s.queries.ListRatingsByItem(ctx, itemID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, toView(row))
	}
	return views, nil
}

// ItemStats returns the rating aggregate for one item. An unrated item
// yields a zero average and count.
func (s *Service) ItemStats(ctx context.Context, itemID string) (Stats, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return Stats{}, common.NewAppError("BAD_REQUEST", "item id is required", http.StatusBadRequest, nil)
	}
	stats, err := s.queries.GetRatingStats(ctx, itemID)
	if err != nil {
		return Stats{}, fmt.Errorf("get rating stats: %w", err)
	}
	return Stats{Average: stats.Average, Count: stats.Count}, nil
}

func toView(r db.Rating) View {
	return View{
		ID:        r.ID.String(),
		ItemID:    r.ItemID,
		Stars:     r.Stars,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
