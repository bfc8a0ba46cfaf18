package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/database"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
)

const productColumns = `id, name, brand, price, original_price, description, image, category, in_stock, rating, reviews`

// ProductRepository reads catalog snapshots from the products table.
type ProductRepository struct {
	db database.DBTX
}

var _ domain.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID returns one product.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetProduct", "products", query)

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		end(nil)
		return nil, apperrors.NotFound("product", id)
	}
	end(err)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// ListByIDs returns the products among ids that exist.
func (r *ProductRepository) ListByIDs(ctx context.Context, ids []string) (products []domain.Product, err error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	ctx, end := database.TraceQuery(ctx, "ListProducts", "products", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = make([]domain.Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p        domain.Product
		category *string
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Brand, &p.Price, &p.OriginalPrice, &p.Description,
		&p.Image, &category, &p.InStock, &p.Rating, &p.Reviews,
	); err != nil {
		return nil, err
	}
	if category != nil {
		p.Category = *category
	}
	return &p, nil
}
