package domain

import (
	"context"
	"time"
)

// WishlistItem is one (user, product) membership row. Existence is membership.
type WishlistItem struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WishlistRepository persists wishlist membership.
type WishlistRepository interface {
	// ListProductIDs returns every product id wishlisted by the user.
	ListProductIDs(ctx context.Context, userID string) ([]string, error)

	// Add inserts the membership row. Adding an existing row is not an error.
	Add(ctx context.Context, userID, productID string) error

	// Remove deletes the membership row, returning ErrNotFound when absent.
	Remove(ctx context.Context, userID, productID string) error
}
