package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
)

func newWishlistTestFixture(t *testing.T) (*WishlistRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := newMock(t)
	return NewWishlistRepository(mock), mock
}

// ---------------------------------------------------------------------------
// ListProductIDs
// ---------------------------------------------------------------------------

func TestWishlistRepository_ListProductIDs_Success(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"product_id"}).AddRow("prod-1").AddRow("prod-2")
	mock.ExpectQuery("SELECT product_id FROM wishlists WHERE user_id = \\$1").
		WithArgs("user-1").
		WillReturnRows(rows)

	ids, err := repo.ListProductIDs(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-1", "prod-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_ListProductIDs_EmptyIsNotNil(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT product_id FROM wishlists").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}))

	ids, err := repo.ListProductIDs(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_ListProductIDs_QueryError(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT product_id FROM wishlists").
		WithArgs("user-1").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.ListProductIDs(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list wishlist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_ListProductIDs_RowError(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"product_id"}).
		AddRow("prod-1").
		AddRow("prod-2").
		RowError(1, errors.New("stream reset"))
	mock.ExpectQuery("SELECT product_id FROM wishlists").
		WithArgs("user-1").
		WillReturnRows(rows)

	_, err := repo.ListProductIDs(context.Background(), "user-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Add
// ---------------------------------------------------------------------------

func TestWishlistRepository_Add_Success(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO wishlists .* ON CONFLICT \\(user_id, product_id\\) DO NOTHING").
		WithArgs("user-1", "prod-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Add(context.Background(), "user-1", "prod-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Add_Duplicate(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO wishlists").
		WithArgs("user-1", "prod-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	assert.NoError(t, repo.Add(context.Background(), "user-1", "prod-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Add_ExecError(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO wishlists").
		WithArgs("user-1", "prod-1").
		WillReturnError(errors.New("connection refused"))

	err := repo.Add(context.Background(), "user-1", "prod-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add to wishlist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Remove
// ---------------------------------------------------------------------------

func TestWishlistRepository_Remove_Success(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM wishlists WHERE user_id = \\$1 AND product_id = \\$2").
		WithArgs("user-1", "prod-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Remove(context.Background(), "user-1", "prod-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Remove_NotFound(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM wishlists").
		WithArgs("user-1", "prod-missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Remove(context.Background(), "user-1", "prod-missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Remove_ExecError(t *testing.T) {
	repo, mock := newWishlistTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM wishlists").
		WithArgs("user-1", "prod-1").
		WillReturnError(errors.New("database timeout"))

	err := repo.Remove(context.Background(), "user-1", "prod-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remove from wishlist")
	assert.NoError(t, mock.ExpectationsWereMet())
}
