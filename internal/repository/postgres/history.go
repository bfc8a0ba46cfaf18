package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/database"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
)

const pgUniqueViolation = "23505"

// historyWithProduct selects a view record with its product, if the product
// still exists in the catalog.
const historyWithProduct = `
		SELECT h.user_id, h.product_id, h.view_count, h.viewed_at,
		       p.id, p.name, p.brand, p.price, p.original_price, p.description,
		       p.image, p.category, p.in_stock, p.rating, p.reviews
		FROM browsing_history h
		LEFT JOIN products p ON p.id = h.product_id
		WHERE h.user_id = $1`

// HistoryRepository implements domain.HistoryRepository using PostgreSQL.
type HistoryRepository struct {
	db database.DBTX
}

var _ domain.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new PostgreSQL-backed browsing history repository.
func NewHistoryRepository(db database.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Get returns the view record for (userID, productID).
func (r *HistoryRepository) Get(ctx context.Context, userID, productID string) (*domain.ViewRecord, error) {
	query := `
		SELECT user_id, product_id, view_count, viewed_at
		FROM browsing_history
		WHERE user_id = $1 AND product_id = $2`

	ctx, end := database.TraceQuery(ctx, "GetView", "browsing_history", query)

	var v domain.ViewRecord
	err := r.db.QueryRow(ctx, query, userID, productID).Scan(&v.UserID, &v.ProductID, &v.ViewCount, &v.ViewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		end(nil)
		return nil, apperrors.NotFound("view record", productID)
	}
	end(err)
	if err != nil {
		return nil, fmt.Errorf("get view record: %w", err)
	}
	return &v, nil
}

// Insert creates a view record.
func (r *HistoryRepository) Insert(ctx context.Context, v domain.ViewRecord) (err error) {
	if v.ViewCount < 1 {
		return apperrors.InvalidInput("view count must be at least 1")
	}

	query := `
		INSERT INTO browsing_history (user_id, product_id, view_count, viewed_at)
		VALUES ($1, $2, $3, $4)`

	ctx, end := database.TraceQuery(ctx, "InsertView", "browsing_history", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, v.UserID, v.ProductID, v.ViewCount, v.ViewedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("insert view record: %w", apperrors.ErrAlreadyExists)
		}
		return fmt.Errorf("insert view record: %w", err)
	}
	return nil
}

// Update overwrites the count and timestamp of an existing record.
func (r *HistoryRepository) Update(ctx context.Context, userID, productID string, viewCount int, viewedAt time.Time) (err error) {
	if viewCount < 1 {
		return apperrors.InvalidInput("view count must be at least 1")
	}

	query := `
		UPDATE browsing_history
		SET view_count = $3, viewed_at = $4
		WHERE user_id = $1 AND product_id = $2`

	ctx, end := database.TraceQuery(ctx, "UpdateView", "browsing_history", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, userID, productID, viewCount, viewedAt)
	if err != nil {
		return fmt.Errorf("update view record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("view record", productID)
	}
	return nil
}

// Increment records one view in a single statement: the row is created with
// a count of 1 or its count is bumped, so concurrent views never lose updates.
func (r *HistoryRepository) Increment(ctx context.Context, userID, productID string, viewedAt time.Time) (rec *domain.ViewRecord, err error) {
	query := `
		INSERT INTO browsing_history (user_id, product_id, view_count, viewed_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET view_count = browsing_history.view_count + 1,
		    viewed_at = GREATEST(browsing_history.viewed_at, EXCLUDED.viewed_at)
		RETURNING user_id, product_id, view_count, viewed_at`

	ctx, end := database.TraceQuery(ctx, "IncrementView", "browsing_history", query)
	defer func() { end(err) }()

	var v domain.ViewRecord
	if err = r.db.QueryRow(ctx, query, userID, productID, viewedAt).
		Scan(&v.UserID, &v.ProductID, &v.ViewCount, &v.ViewedAt); err != nil {
		return nil, fmt.Errorf("increment view record: %w", err)
	}
	return &v, nil
}

// ListRecent returns the user's records, most recently viewed first.
func (r *HistoryRepository) ListRecent(ctx context.Context, userID string, limit int) (recs []domain.ViewRecord, err error) {
	query := historyWithProduct + `
		ORDER BY h.viewed_at DESC, h.product_id
		LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "ListRecentViews", "browsing_history", query)
	defer func() { end(err) }()

	return r.list(ctx, query, userID, limit)
}

// ListMostViewed returns the user's records, highest view count first.
func (r *HistoryRepository) ListMostViewed(ctx context.Context, userID string, limit int) (recs []domain.ViewRecord, err error) {
	query := historyWithProduct + `
		ORDER BY h.view_count DESC, h.viewed_at DESC, h.product_id
		LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "ListMostViewed", "browsing_history", query)
	defer func() { end(err) }()

	return r.list(ctx, query, userID, limit)
}

// ListCategories returns the category of each viewed product, most recent
// view first. Missing products and categories yield "".
func (r *HistoryRepository) ListCategories(ctx context.Context, userID string) (categories []string, err error) {
	query := `
		SELECT p.category
		FROM browsing_history h
		LEFT JOIN products p ON p.id = h.product_id
		WHERE h.user_id = $1
		ORDER BY h.viewed_at DESC, h.product_id`

	ctx, end := database.TraceQuery(ctx, "ListViewedCategories", "browsing_history", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list viewed categories: %w", err)
	}
	defer rows.Close()

	categories = []string{}
	for rows.Next() {
		var category *string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan viewed category: %w", err)
		}
		if category == nil {
			categories = append(categories, "")
			continue
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate viewed categories: %w", err)
	}
	return categories, nil
}

func (r *HistoryRepository) list(ctx context.Context, query, userID string, limit int) ([]domain.ViewRecord, error) {
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list view records: %w", err)
	}
	defer rows.Close()

	recs := []domain.ViewRecord{}
	for rows.Next() {
		rec, err := scanViewWithProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan view record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate view records: %w", err)
	}
	return recs, nil
}

// scanViewWithProduct scans a historyWithProduct row. Product columns are
// all NULL when the catalog no longer has the product.
func scanViewWithProduct(row pgx.Row) (domain.ViewRecord, error) {
	var (
		v             domain.ViewRecord
		id, name      *string
		brand, desc   *string
		image, cat    *string
		price         *int64
		originalPrice *int64
		inStock       *bool
		rating        *float64
		reviews       *int
	)
	if err := row.Scan(
		&v.UserID, &v.ProductID, &v.ViewCount, &v.ViewedAt,
		&id, &name, &brand, &price, &originalPrice, &desc,
		&image, &cat, &inStock, &rating, &reviews,
	); err != nil {
		return domain.ViewRecord{}, err
	}
	if id == nil {
		return v, nil
	}

	v.Product = &domain.Product{
		ID:            *id,
		Name:          deref(name),
		Brand:         deref(brand),
		Price:         deref(price),
		OriginalPrice: originalPrice,
		Description:   deref(desc),
		Image:         deref(image),
		Category:      deref(cat),
		InStock:       deref(inStock),
		Rating:        deref(rating),
		Reviews:       deref(reviews),
	}
	return v, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
