package db

import (
	"context"

	"github.com/google/uuid"
)

// InsertRatingParams carries the fields required to create a rating.
type InsertRatingParams struct {
	ItemID  string
	UserID  uuid.UUID
	Stars   int
	Comment string
}

// InsertRating inserts a rating; the (item, user) unique constraint enforces
// one rating per user per item.
func (q *Queries) InsertRating(ctx context.Context, arg InsertRatingParams) (Rating, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO ratings (item_id, user_id, stars, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, item_id, user_id, stars, comment, created_at`,
		arg.ItemID, arg.UserID, arg.Stars, arg.Comment)
	var r Rating
	err := row.Scan(&r.ID, &r.ItemID, &r.UserID, &r.Stars, &r.Comment, &r.CreatedAt)
	return r, err
}

// ListRatingsByItem returns ratings for an item, newest first.
func (q *Queries) ListRatingsByItem(ctx context.Context, itemID string, limit, offset int32) ([]Rating, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, item_id, user_id, stars, comment, created_at
		FROM ratings WHERE item_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, itemID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ratings []Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.ID, &r.ItemID, &r.UserID, &r.Stars, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// GetRatingStats aggregates the average and count of ratings for an item.
func (q *Queries) GetRatingStats(ctx context.Context, itemID string) (RatingStats, error) {
	row := q.db.QueryRow(ctx, `
		SELECT coalesce(avg(stars), 0), count(*) FROM ratings WHERE item_id = $1`, itemID)
	var stats RatingStats
	err := row.Scan(&stats.Average, &stats.Count)
	return stats, err
}
