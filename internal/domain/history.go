package domain

import (
	"context"
	"time"
)

// ViewRecord counts how often a user viewed a product and when they last did.
// ViewCount starts at 1 and never decreases.
type ViewRecord struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	ViewCount int       `json:"view_count"`
	ViewedAt  time.Time `json:"viewed_at"`
	Product   *Product  `json:"product,omitempty"`
}

// HistoryRepository persists browsing history.
type HistoryRepository interface {
	// Get returns the record for (userID, productID) or an error wrapping ErrNotFound.
	Get(ctx context.Context, userID, productID string) (*ViewRecord, error)

	// Insert creates a record. It fails with ErrAlreadyExists on a duplicate key.
	Insert(ctx context.Context, rec ViewRecord) error

	// Update overwrites the count and timestamp of an existing record.
	Update(ctx context.Context, userID, productID string, viewCount int, viewedAt time.Time) error

	// Increment creates the record with count 1 or adds 1 to the stored count,
	// in a single statement, and returns the stored result.
	Increment(ctx context.Context, userID, productID string, viewedAt time.Time) (*ViewRecord, error)

	// ListRecent returns records ordered by ViewedAt descending.
	ListRecent(ctx context.Context, userID string, limit int) ([]ViewRecord, error)

	// ListMostViewed returns records ordered by ViewCount descending.
	ListMostViewed(ctx context.Context, userID string, limit int) ([]ViewRecord, error)

	// ListCategories returns the joined product category of every record, most
	// recent view first. Records without a product or category yield "".
	ListCategories(ctx context.Context, userID string) ([]string, error)
}
