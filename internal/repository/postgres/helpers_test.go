package postgres

import (
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/database"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func strPtr(s string) *string       { return &s }
func boolPtr(b bool) *bool          { return &b }
func intPtr(n int) *int             { return &n }
func int64Ptr(n int64) *int64       { return &n }
func float64Ptr(f float64) *float64 { return &f }

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var productCols = []string{
	"id", "name", "brand", "price", "original_price", "description",
	"image", "category", "in_stock", "rating", "reviews",
}

var historyCols = []string{
	"user_id", "product_id", "view_count", "viewed_at",
	"id", "name", "brand", "price", "original_price", "description",
	"image", "category", "in_stock", "rating", "reviews",
}

func sampleProduct(id, category string) domain.Product {
	return domain.Product{
		ID:            id,
		Name:          "Product " + id,
		Brand:         "Acme",
		Price:         2599,
		OriginalPrice: int64Ptr(3199),
		Description:   "A fine product",
		Image:         "https://cdn.example.com/" + id + ".jpg",
		Category:      category,
		InStock:       true,
		Rating:        4.5,
		Reviews:       12,
	}
}

func productRow(p domain.Product) []any {
	return []any{
		p.ID, p.Name, p.Brand, p.Price, p.OriginalPrice, p.Description,
		p.Image, strPtr(p.Category), p.InStock, p.Rating, p.Reviews,
	}
}

// historyRow builds a joined browsing_history row; a nil product yields the
// all-NULL columns of an unmatched LEFT JOIN.
func historyRow(userID, productID string, count int, at time.Time, p *domain.Product) []any {
	if p == nil {
		return []any{
			userID, productID, count, at,
			(*string)(nil), (*string)(nil), (*string)(nil), (*int64)(nil), (*int64)(nil), (*string)(nil),
			(*string)(nil), (*string)(nil), (*bool)(nil), (*float64)(nil), (*int)(nil),
		}
	}
	return []any{
		userID, productID, count, at,
		strPtr(p.ID), strPtr(p.Name), strPtr(p.Brand), int64Ptr(p.Price), p.OriginalPrice, strPtr(p.Description),
		strPtr(p.Image), strPtr(p.Category), boolPtr(p.InStock), float64Ptr(p.Rating), intPtr(p.Reviews),
	}
}
