package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/logger"
)

func newTestCompare(products domain.ProductRepository) (*CompareStore, *NoticeQueue) {
	notices := NewNoticeQueue(10, nil)
	return NewCompareStore(NewCatalog(products), notices, logger.Discard()), notices
}

func ids(items []domain.Product) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func TestCompareAdd_KeepsInsertionOrder(t *testing.T) {
	store, notices := newTestCompare(nil)

	for _, id := range []string{"c", "a", "b"} {
		require.True(t, store.Add(product(id, "tech")).OK())
	}

	assert.Equal(t, []string{"c", "a", "b"}, ids(store.Items()))
	assert.Len(t, notices.Drain(), 3)
}

func TestCompareAdd_FourthDistinctRejected(t *testing.T) {
	store, notices := newTestCompare(nil)
	for _, id := range []string{"a", "b", "c"} {
		require.True(t, store.Add(product(id, "tech")).OK())
	}
	notices.Drain()

	res := store.Add(product("d", "tech"))

	assert.False(t, res.OK())
	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, domain.NoticeCompareFull, res.Reason)
	assert.Equal(t, []string{"a", "b", "c"}, ids(store.Items()))
	assert.Equal(t, []domain.NoticeCode{domain.NoticeCompareFull}, noticeCodes(notices))
}

func TestCompareAdd_DuplicateRejected(t *testing.T) {
	store, _ := newTestCompare(nil)
	require.True(t, store.Add(product("a", "tech")).OK())

	res := store.Add(product("a", "home"))

	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, domain.NoticeAlreadyComparing, res.Reason)
	require.Len(t, store.Items(), 1)
	assert.Equal(t, "tech", store.Items()[0].Category)
}

func TestCompareAdd_ConcurrentNeverExceedsLimit(t *testing.T) {
	store, _ := newTestCompare(nil)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Add(product(fmt.Sprintf("p-%d", i%5), "tech"))
		}()
	}
	wg.Wait()

	items := store.Items()
	assert.Len(t, items, MaxCompareItems)
	seen := map[string]bool{}
	for _, p := range items {
		assert.False(t, seen[p.ID], "duplicate %s", p.ID)
		seen[p.ID] = true
	}
}

func TestCompareRemove(t *testing.T) {
	store, _ := newTestCompare(nil)
	store.Add(product("a", "tech"))
	store.Add(product("b", "tech"))

	var calls int
	store.Subscribe(func(CompareState) { calls++ })

	store.Remove("missing")
	assert.Zero(t, calls)
	assert.Len(t, store.Items(), 2)

	store.Remove("a")
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"b"}, ids(store.Items()))
	assert.False(t, store.Contains("a"))
	assert.True(t, store.Contains("b"))
}

func TestCompareClear_KeepsPanelFlag(t *testing.T) {
	store, _ := newTestCompare(nil)
	store.Add(product("a", "tech"))
	store.SetOpen(true)

	store.Clear()

	assert.Empty(t, store.Items())
	assert.True(t, store.IsOpen())
}

func TestComparePanel(t *testing.T) {
	store, _ := newTestCompare(nil)
	assert.False(t, store.IsOpen())

	assert.True(t, store.ToggleOpen())
	assert.False(t, store.ToggleOpen())

	store.SetOpen(true)
	snap := store.Snapshot()
	assert.True(t, snap.Open)
	assert.Empty(t, snap.Items)
}

func TestCompareItems_ReturnsCopy(t *testing.T) {
	store, _ := newTestCompare(nil)
	store.Add(product("a", "tech"))

	items := store.Items()
	items[0].ID = "mutated"

	assert.True(t, store.Contains("a"))
}

// --- AddByID ---

func TestCompareAddByID_ResolvesSnapshot(t *testing.T) {
	repo := new(mockProductRepository)
	store, _ := newTestCompare(repo)
	ctx := context.Background()

	p := product("laptop", "tech")
	repo.On("GetByID", ctx, "laptop").Return(&p, nil)

	require.True(t, store.AddByID(ctx, "laptop").OK())
	assert.Equal(t, []domain.Product{p}, store.Items())
	repo.AssertExpectations(t)
}

func TestCompareAddByID_NotFound(t *testing.T) {
	repo := new(mockProductRepository)
	store, notices := newTestCompare(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "ghost").Return(nil, apperrors.NotFound("product", "ghost"))

	res := store.AddByID(ctx, "ghost")

	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, domain.NoticeProductNotFound, res.Reason)
	assert.Empty(t, store.Items())
	assert.Equal(t, []domain.NoticeCode{domain.NoticeProductNotFound}, noticeCodes(notices))
}

func TestCompareAddByID_InvalidIDSkipsStorage(t *testing.T) {
	repo := new(mockProductRepository)
	store, _ := newTestCompare(repo)

	res := store.AddByID(context.Background(), "../etc/passwd")

	assert.Equal(t, StatusRejected, res.Status)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCompareAddByID_StorageFailure(t *testing.T) {
	repo := new(mockProductRepository)
	store, _ := newTestCompare(repo)
	ctx := context.Background()

	repo.On("GetByID", ctx, "laptop").Return(nil, errors.New("connection reset"))

	res := store.AddByID(ctx, "laptop")

	assert.Equal(t, StatusStorageFailure, res.Status)
	assert.Empty(t, store.Items())
}

func TestCompareAddByID_FullSkipsStorage(t *testing.T) {
	repo := new(mockProductRepository)
	store, _ := newTestCompare(repo)
	for _, id := range []string{"a", "b", "c"} {
		store.Add(product(id, "tech"))
	}

	res := store.AddByID(context.Background(), "d")

	assert.Equal(t, domain.NoticeCompareFull, res.Reason)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
