package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-grocery/internal/db"
	"github.com/noah-isme/backend-grocery/internal/obs"
)

// TypeParse is the asynq task type for receipt parsing.
const TypeParse = "receipt:parse"

type parsePayload struct {
	ReceiptID uuid.UUID `json:"receipt_id"`
}

// NewParseTask builds the asynq task that parses one stored receipt.
func NewParseTask(receiptID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(parsePayload{ReceiptID: receiptID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeParse, payload, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute)), nil
}

type workerQueries interface {
	GetReceiptByID(ctx context.Context, id uuid.UUID) (db.Receipt, error)
	MarkReceiptProcessing(ctx context.Context, id uuid.UUID) error
	MarkReceiptDone(ctx context.Context, id uuid.UUID, storeName, address string, payload []byte) error
	MarkReceiptFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	GetStoreByName(ctx context.Context, name string) (db.Store, error)
	UpsertStore(ctx context.Context, arg db.UpsertStoreParams) error
	GetItemByName(ctx context.Context, name string) (db.Item, error)
	UpsertPrice(ctx context.Context, arg db.UpsertPriceParams) (db.Price, error)
}

type receiptParser interface {
	Parse(ctx context.Context, rawText string) (Parsed, error)
}

type storeLocker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Worker consumes parse tasks. Price writes for one store are serialized
// under a Redis lock so two receipts from the same store never interleave.
type Worker struct {
	Queries workerQueries
	Parser  receiptParser
	Locker  storeLocker
	LockTTL time.Duration
	Log     zerolog.Logger
}

// MatchResult summarises how one receipt line was applied.
type MatchResult struct {
	ItemName   string `json:"item_name"`
	ItemID     string `json:"item_id,omitempty"`
	PriceCents int64  `json:"price_cents"`
	Matched    bool   `json:"matched"`
}

type resultPayload struct {
	StoreID string        `json:"store_id"`
	Lines   []MatchResult `json:"lines"`
}

// ProcessTask handles one receipt:parse task.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload parsePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}
	err := w.process(ctx, payload.ReceiptID)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, asynq.SkipRetry) {
			outcome = "rejected"
		}
	}
	if obs.ReceiptTasksTotal != nil {
		obs.ReceiptTasksTotal.WithLabelValues(outcome).Inc()
	}
	return err
}

func (w *Worker) process(ctx context.Context, receiptID uuid.UUID) error {
	rec, err := w.Queries.GetReceiptByID(ctx, receiptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("receipt %s not found: %w", receiptID, asynq.SkipRetry)
		}
		return fmt.Errorf("get receipt: %w", err)
	}
	if err := w.Queries.MarkReceiptProcessing(ctx, receiptID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already claimed or finished by another worker.
			return nil
		}
		return fmt.Errorf("claim receipt: %w", err)
	}

	parsed, err := w.Parser.Parse(ctx, rec.RawText)
	if err != nil {
		if errors.Is(err, ErrParse) {
			if markErr := w.Queries.MarkReceiptFailed(ctx, receiptID, "receipt could not be parsed"); markErr != nil {
				return fmt.Errorf("mark failed: %w", markErr)
			}
			return fmt.Errorf("unparseable receipt: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("parse receipt: %w", err)
	}

	if strings.TrimSpace(parsed.StoreName) == "" {
		if markErr := w.Queries.MarkReceiptFailed(ctx, receiptID, "receipt has no store name"); markErr != nil {
			return fmt.Errorf("mark failed: %w", markErr)
		}
		return fmt.Errorf("receipt has no store name: %w", asynq.SkipRetry)
	}

	store, err := w.resolveStore(ctx, parsed)
	if err != nil {
		return err
	}

	result := resultPayload{StoreID: store.ID, Lines: make([]MatchResult, 0, len(parsed.Items))}
	applyPrices := func(ctx context.Context) error {
		for _, line := range parsed.Items {
			match := MatchResult{ItemName: line.ItemName, PriceCents: line.PriceCents()}
			item, err := w.Queries.GetItemByName(ctx, line.ItemName)
			switch {
			case err == nil:
				if _, err := w.Queries.UpsertPrice(ctx, db.UpsertPriceParams{
					ItemID:     item.ID,
					StoreID:    store.ID,
					PriceCents: match.PriceCents,
					Source:     "receipt",
				}); err != nil {
					return fmt.Errorf("upsert price: %w", err)
				}
				match.ItemID = item.ID
				match.Matched = true
				if obs.PriceSubmissionsTotal != nil {
					obs.PriceSubmissionsTotal.WithLabelValues("receipt").Inc()
				}
			case errors.Is(err, pgx.ErrNoRows):
				// Unrecognized lines are reported, never fatal.
			default:
				return fmt.Errorf("match item: %w", err)
			}
			result.Lines = append(result.Lines, match)
		}
		return nil
	}
	if w.Locker != nil {
		err = w.Locker.WithLock(ctx, "lock:receipt-prices:"+store.ID, w.LockTTL, applyPrices)
	} else {
		err = applyPrices(ctx)
	}
	if err != nil {
		return err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := w.Queries.MarkReceiptDone(ctx, receiptID, parsed.StoreName, parsed.Address, resultJSON); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	w.Log.Info().
		Str("receipt_id", receiptID.String()).
		Str("store_id", store.ID).
		Int("lines", len(result.Lines)).
		Msg("receipt processed")
	return nil
}

func (w *Worker) resolveStore(ctx context.Context, parsed Parsed) (db.Store, error) {
	name := strings.TrimSpace(parsed.StoreName)
	store, err := w.Queries.GetStoreByName(ctx, name)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return db.Store{}, fmt.Errorf("get store: %w", err)
	}
	id := slugify(name)
	if err := w.Queries.UpsertStore(ctx, db.UpsertStoreParams{
		ID:      id,
		Name:    name,
		Address: strings.TrimSpace(parsed.Address),
	}); err != nil {
		return db.Store{}, fmt.Errorf("create store: %w", err)
	}
	return db.Store{ID: id, Name: name, Address: strings.TrimSpace(parsed.Address)}, nil
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
