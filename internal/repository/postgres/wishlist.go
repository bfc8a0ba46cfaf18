package postgres

import (
	"context"
	"fmt"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/database"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
)

// WishlistRepository implements domain.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	db database.DBTX
}

var _ domain.WishlistRepository = (*WishlistRepository)(nil)

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db database.DBTX) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// ListProductIDs returns every product id in the user's wishlist, oldest first.
func (r *WishlistRepository) ListProductIDs(ctx context.Context, userID string) (ids []string, err error) {
	query := `
		SELECT product_id
		FROM wishlists
		WHERE user_id = $1
		ORDER BY created_at, product_id`

	ctx, end := database.TraceQuery(ctx, "ListWishlist", "wishlists", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	ids = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist rows: %w", err)
	}

	return ids, nil
}

// Add inserts a product into the user's wishlist.
// Uses ON CONFLICT DO NOTHING for idempotent behavior.
func (r *WishlistRepository) Add(ctx context.Context, userID, productID string) (err error) {
	query := `
		INSERT INTO wishlists (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`

	ctx, end := database.TraceQuery(ctx, "AddWishlist", "wishlists", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("add to wishlist: %w", err)
	}
	return nil
}

// Remove deletes a product from the user's wishlist.
func (r *WishlistRepository) Remove(ctx context.Context, userID, productID string) (err error) {
	query := `DELETE FROM wishlists WHERE user_id = $1 AND product_id = $2`

	ctx, end := database.TraceQuery(ctx, "RemoveWishlist", "wishlists", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, userID, productID)
	if err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist item", productID)
	}
	return nil
}
