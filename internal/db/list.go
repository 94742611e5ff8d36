package db

import (
	"context"

	"github.com/google/uuid"
)

// GetListItems returns the user's shopping list ordered by item id.
func (q *Queries) GetListItems(ctx context.Context, userID uuid.UUID) ([]ListItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT item_id, qty FROM shopping_list_items
		WHERE user_id = $1 ORDER BY item_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListItem
	for rows.Next() {
		var li ListItem
		if err := rows.Scan(&li.ItemID, &li.Qty); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// AddListItem increments the quantity for an item, inserting it when absent.
func (q *Queries) AddListItem(ctx context.Context, userID uuid.UUID, itemID string, qty int) (int, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO shopping_list_items (user_id, item_id, qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) DO UPDATE SET qty = shopping_list_items.qty + EXCLUDED.qty
		RETURNING qty`, userID, itemID, qty)
	var newQty int
	err := row.Scan(&newQty)
	return newQty, err
}

// SetListItemQty sets the quantity for an item outright.
func (q *Queries) SetListItemQty(ctx context.Context, userID uuid.UUID, itemID string, qty int) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO shopping_list_items (user_id, item_id, qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) DO UPDATE SET qty = EXCLUDED.qty`,
		userID, itemID, qty)
	return err
}

// DeleteListItem removes an item from the user's list.
func (q *Queries) DeleteListItem(ctx context.Context, userID uuid.UUID, itemID string) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM shopping_list_items WHERE user_id = $1 AND item_id = $2`,
		userID, itemID)
	return err
}
