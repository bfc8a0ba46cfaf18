package service

import (
	"context"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/validator"
)

// Catalog resolves product snapshots for the stores and the API.
type Catalog struct {
	products domain.ProductRepository
}

// NewCatalog creates a catalog over products.
func NewCatalog(products domain.ProductRepository) *Catalog {
	return &Catalog{products: products}
}

// Product returns the snapshot for id. Malformed ids fail with
// ErrInvalidInput without touching storage.
func (c *Catalog) Product(ctx context.Context, id string) (*domain.Product, error) {
	if err := validator.ValidateProductID(id); err != nil {
		return nil, apperrors.InvalidInput("invalid product id")
	}
	return c.products.GetByID(ctx, id)
}

// Products returns the snapshots for ids in the order given, skipping ids
// the catalog does not know.
func (c *Catalog) Products(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	found, err := c.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]domain.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
			delete(byID, id)
		}
	}
	return out, nil
}
