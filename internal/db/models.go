package db

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a refresh-token session row. RefreshToken stores the SHA-256
// digest, never the raw token.
type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	RefreshToken string
	UserAgent    string
	IP           string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Item is one product shared across stores; the ID doubles as the item key
// referenced by prices and shopping lists.
type Item struct {
	ID           string
	Name         string
	Brand        string
	Barcode      string
	ImageURL     string
	Category     string
	AvgRating    float64
	RatingsCount int
	CreatedAt    time.Time
}

// Store is one selling location. Lat/Lng are nil when the location is unknown.
type Store struct {
	ID      string
	Name    string
	Address string
	Lat     *float64
	Lng     *float64
}

// Price is one observed offer of an item at a store. Amounts are minor units.
type Price struct {
	ItemID     string
	StoreID    string
	PriceCents int64
	Unit       string
	IsDeal     bool
	Source     string
	RecordedAt time.Time
}

// ListItem is one shopping-list line for a user.
type ListItem struct {
	ItemID string
	Qty    int
}

// Rating is one user rating of an item.
type Rating struct {
	ID        uuid.UUID
	ItemID    string
	UserID    uuid.UUID
	Stars     int
	Comment   string
	CreatedAt time.Time
}

// RatingStats aggregates ratings for one item.
type RatingStats struct {
	Average float64
	Count   int
}

// Receipt tracks one receipt ingestion job.
type Receipt struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Status    string
	RawText   string
	StoreName string
	Address   string
	Payload   []byte
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
