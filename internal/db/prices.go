package db

import (
	"context"
)

// ListPricesByItem returns every observed offer for one item.
func (q *Queries) ListPricesByItem(ctx context.Context, itemID string) ([]Price, error) {
	rows, err := q.db.Query(ctx, `
		SELECT item_id, store_id, price_cents, unit, is_deal, source, recorded_at
		FROM prices WHERE item_id = $1
		ORDER BY price_cents, store_id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPrices(rows)
}

// ListPricesForItems returns offers for every listed item in one round trip.
// Ordering is stable so equal-price tie breaks stay deterministic.
func (q *Queries) ListPricesForItems(ctx context.Context, itemIDs []string) ([]Price, error) {
	rows, err := q.db.Query(ctx, `
		SELECT item_id, store_id, price_cents, unit, is_deal, source, recorded_at
		FROM prices WHERE item_id = ANY($1)
		ORDER BY item_id, price_cents, store_id`, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPrices(rows)
}

// UpsertPriceParams carries the fields for recording a price observation.
type UpsertPriceParams struct {
	ItemID     string
	StoreID    string
	PriceCents int64
	Unit       string
	IsDeal     bool
	Source     string
}

// UpsertPrice records the latest observed price for (item, store). The pair is
// the primary key, mirroring one current offer per store per item.
func (q *Queries) UpsertPrice(ctx context.Context, arg UpsertPriceParams) (Price, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO prices (item_id, store_id, price_cents, unit, is_deal, source, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (item_id, store_id) DO UPDATE SET
			price_cents = EXCLUDED.price_cents,
			unit = EXCLUDED.unit,
			is_deal = EXCLUDED.is_deal,
			source = EXCLUDED.source,
			recorded_at = now()
		RETURNING item_id, store_id, price_cents, unit, is_deal, source, recorded_at`,
		arg.ItemID, arg.StoreID, arg.PriceCents, arg.Unit, arg.IsDeal, arg.Source)
	var p Price
	err := row.Scan(&p.ItemID, &p.StoreID, &p.PriceCents, &p.Unit, &p.IsDeal, &p.Source, &p.RecordedAt)
	return p, err
}

func scanPrices(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]Price, error) {
	var prices []Price
	for rows.Next() {
		var p Price
		if err := rows.Scan(&p.ItemID, &p.StoreID, &p.PriceCents, &p.Unit, &p.IsDeal, &p.Source, &p.RecordedAt); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}
