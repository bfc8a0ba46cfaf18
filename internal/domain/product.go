package domain

import "context"

// Product is a catalog snapshot. The catalog owns products; the storefront
// only reads them to decorate wishlist, compare and history views.
type Product struct {
	ID            string  `json:"id" validate:"required,product_id"`
	Name          string  `json:"name" validate:"required,max=300"`
	Brand         string  `json:"brand" validate:"max=120"`
	Price         int64   `json:"price" validate:"gte=0"` // minor units
	OriginalPrice *int64  `json:"original_price,omitempty" validate:"omitempty,gte=0"`
	Description   string  `json:"description"`
	Image         string  `json:"image" validate:"omitempty,url"`
	Category      string  `json:"category" validate:"max=120"`
	InStock       bool    `json:"in_stock"`
	Rating        float64 `json:"rating" validate:"gte=0,lte=5"`
	Reviews       int     `json:"reviews" validate:"gte=0"`
}

// OnSale reports whether the product is discounted from its original price.
func (p Product) OnSale() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// ProductRepository reads product snapshots.
type ProductRepository interface {
	// GetByID returns the product or an error wrapping ErrNotFound.
	GetByID(ctx context.Context, id string) (*Product, error)

	// ListByIDs returns the products that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []string) ([]Product, error)
}
