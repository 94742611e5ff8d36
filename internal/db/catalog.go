package db

import (
	"context"
	"strings"
)

// ListItemsParams captures list/search filters for items.
type ListItemsParams struct {
	Query    string
	Brand    string
	Category string
	Limit    int32
	Offset   int32
}

// ListItems returns items matching the provided filters ordered by name.
// Empty filter values match everything.
func (q *Queries) ListItems(ctx context.Context, arg ListItemsParams) ([]Item, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, brand, barcode, image_url, category, avg_rating, ratings_count, created_at
		FROM items
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR brand ILIKE $2)
		  AND ($3 = '' OR category = $3)
		ORDER BY name, id
		LIMIT $4 OFFSET $5`,
		strings.TrimSpace(arg.Query), strings.TrimSpace(arg.Brand), strings.TrimSpace(arg.Category),
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// CountItems counts items matching the same filters as ListItems.
func (q *Queries) CountItems(ctx context.Context, arg ListItemsParams) (int64, error) {
	row := q.db.QueryRow(ctx, `
		SELECT count(*) FROM items
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR brand ILIKE $2)
		  AND ($3 = '' OR category = $3)`,
		strings.TrimSpace(arg.Query), strings.TrimSpace(arg.Brand), strings.TrimSpace(arg.Category))
	var total int64
	err := row.Scan(&total)
	return total, err
}

// GetItem fetches one item by id.
func (q *Queries) GetItem(ctx context.Context, id string) (Item, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, name, brand, barcode, image_url, category, avg_rating, ratings_count, created_at
		FROM items WHERE id = $1`, id)
	return scanItem(row)
}

// GetItemByBarcode fetches one item by barcode.
func (q *Queries) GetItemByBarcode(ctx context.Context, barcode string) (Item, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, name, brand, barcode, image_url, category, avg_rating, ratings_count, created_at
		FROM items WHERE barcode = $1`, barcode)
	return scanItem(row)
}

// GetItemByName fetches one item by exact (case-insensitive) name. Used when
// matching parsed receipt lines back to the catalog.
func (q *Queries) GetItemByName(ctx context.Context, name string) (Item, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, name, brand, barcode, image_url, category, avg_rating, ratings_count, created_at
		FROM items WHERE lower(name) = lower($1)`, name)
	return scanItem(row)
}

// GetItemsByIDs fetches items for the given ids; missing ids are simply absent.
func (q *Queries) GetItemsByIDs(ctx context.Context, ids []string) ([]Item, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, brand, barcode, image_url, category, avg_rating, ratings_count, created_at
		FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// UpsertItemParams carries the fields required to insert or replace an item.
type UpsertItemParams struct {
	ID       string
	Name     string
	Brand    string
	Barcode  string
	ImageURL string
	Category string
}

// UpsertItem inserts or updates an item row, preserving rating aggregates.
func (q *Queries) UpsertItem(ctx context.Context, arg UpsertItemParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO items (id, name, brand, barcode, image_url, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			barcode = EXCLUDED.barcode,
			image_url = EXCLUDED.image_url,
			category = EXCLUDED.category`,
		arg.ID, arg.Name, arg.Brand, arg.Barcode, arg.ImageURL, arg.Category)
	return err
}

// SetItemRatingStats writes the denormalised rating aggregates on an item.
func (q *Queries) SetItemRatingStats(ctx context.Context, itemID string, avg float64, count int) error {
	_, err := q.db.Exec(ctx, `
		UPDATE items SET avg_rating = $2, ratings_count = $3 WHERE id = $1`,
		itemID, avg, count)
	return err
}

// ListStores returns every store ordered by name.
func (q *Queries) ListStores(ctx context.Context) ([]Store, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, address, lat, lng FROM stores ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStores(rows)
}

// GetStore fetches one store by id.
func (q *Queries) GetStore(ctx context.Context, id string) (Store, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, name, address, lat, lng FROM stores WHERE id = $1`, id)
	var s Store
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Lat, &s.Lng)
	return s, err
}

// GetStoresByIDs fetches stores for the given ids; missing ids are absent.
func (q *Queries) GetStoresByIDs(ctx context.Context, ids []string) ([]Store, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, address, lat, lng FROM stores WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStores(rows)
}

// GetStoreByName fetches one store by exact (case-insensitive) name.
func (q *Queries) GetStoreByName(ctx context.Context, name string) (Store, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, name, address, lat, lng FROM stores WHERE lower(name) = lower($1)`, name)
	var s Store
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Lat, &s.Lng)
	return s, err
}

// UpsertStoreParams carries the fields required to insert or replace a store.
type UpsertStoreParams struct {
	ID      string
	Name    string
	Address string
	Lat     *float64
	Lng     *float64
}

// UpsertStore inserts or updates a store row.
func (q *Queries) UpsertStore(ctx context.Context, arg UpsertStoreParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO stores (id, name, address, lat, lng)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng`,
		arg.ID, arg.Name, arg.Address, arg.Lat, arg.Lng)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Brand, &it.Barcode, &it.ImageURL, &it.Category,
		&it.AvgRating, &it.RatingsCount, &it.CreatedAt)
	return it, err
}

func scanItems(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]Item, error) {
	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanStores(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]Store, error) {
	var stores []Store
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.Lat, &s.Lng); err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}
