package db

import (
	"context"

	"github.com/google/uuid"
)

// InsertReceipt creates a new receipt job in the pending state.
func (q *Queries) InsertReceipt(ctx context.Context, userID uuid.UUID, rawText string) (Receipt, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO receipts (user_id, status, raw_text)
		VALUES ($1, 'pending', $2)
		RETURNING id, user_id, status, raw_text, store_name, address, payload, error, created_at, updated_at`,
		userID, rawText)
	return scanReceipt(row)
}

// GetReceipt fetches a receipt owned by the given user.
func (q *Queries) GetReceipt(ctx context.Context, id, userID uuid.UUID) (Receipt, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, user_id, status, raw_text, store_name, address, payload, error, created_at, updated_at
		FROM receipts WHERE id = $1 AND user_id = $2`, id, userID)
	return scanReceipt(row)
}

// GetReceiptByID fetches a receipt regardless of owner, for worker use.
func (q *Queries) GetReceiptByID(ctx context.Context, id uuid.UUID) (Receipt, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, user_id, status, raw_text, store_name, address, payload, error, created_at, updated_at
		FROM receipts WHERE id = $1`, id)
	return scanReceipt(row)
}

// MarkReceiptProcessing flips a pending receipt to processing, returning
// pgx.ErrNoRows if it was already claimed or finished.
func (q *Queries) MarkReceiptProcessing(ctx context.Context, id uuid.UUID) error {
	row := q.db.QueryRow(ctx, `
		UPDATE receipts SET status = 'processing', updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING id`, id)
	var got uuid.UUID
	return row.Scan(&got)
}

// MarkReceiptDone records the parsed result.
func (q *Queries) MarkReceiptDone(ctx context.Context, id uuid.UUID, storeName, address string, payload []byte) error {
	_, err := q.db.Exec(ctx, `
		UPDATE receipts
		SET status = 'done', store_name = $2, address = $3, payload = $4, error = '', updated_at = now()
		WHERE id = $1`, id, storeName, address, payload)
	return err
}

// MarkReceiptFailed records a terminal failure.
func (q *Queries) MarkReceiptFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE receipts SET status = 'failed', error = $2, updated_at = now()
		WHERE id = $1`, id, errMsg)
	return err
}

func scanReceipt(row rowScanner) (Receipt, error) {
	var r Receipt
	err := row.Scan(&r.ID, &r.UserID, &r.Status, &r.RawText, &r.StoreName, &r.Address, &r.Payload, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
