package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
)

// --- Mock Repositories ---

type mockWishlistRepository struct {
	mock.Mock
}

func (m *mockWishlistRepository) ListProductIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockWishlistRepository) Add(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *mockWishlistRepository) Remove(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

type mockHistoryRepository struct {
	mock.Mock
}

func (m *mockHistoryRepository) Get(ctx context.Context, userID, productID string) (*domain.ViewRecord, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ViewRecord), args.Error(1)
}

func (m *mockHistoryRepository) Insert(ctx context.Context, rec domain.ViewRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockHistoryRepository) Update(ctx context.Context, userID, productID string, viewCount int, viewedAt time.Time) error {
	args := m.Called(ctx, userID, productID, viewCount, viewedAt)
	return args.Error(0)
}

func (m *mockHistoryRepository) Increment(ctx context.Context, userID, productID string, viewedAt time.Time) (*domain.ViewRecord, error) {
	args := m.Called(ctx, userID, productID, viewedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ViewRecord), args.Error(1)
}

func (m *mockHistoryRepository) ListRecent(ctx context.Context, userID string, limit int) ([]domain.ViewRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ViewRecord), args.Error(1)
}

func (m *mockHistoryRepository) ListMostViewed(ctx context.Context, userID string, limit int) ([]domain.ViewRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ViewRecord), args.Error(1)
}

func (m *mockHistoryRepository) ListCategories(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishWishlistToggled(ctx context.Context, userID, productID string, added bool) error {
	args := m.Called(ctx, userID, productID, added)
	return args.Error(0)
}

func (m *mockPublisher) PublishProductViewed(ctx context.Context, userID, productID string, viewCount int) error {
	args := m.Called(ctx, userID, productID, viewCount)
	return args.Error(0)
}

// nopPublisher accepts every event.
type nopPublisher struct{}

func (nopPublisher) PublishWishlistToggled(context.Context, string, string, bool) error { return nil }
func (nopPublisher) PublishProductViewed(context.Context, string, string, int) error    { return nil }

// --- Fakes ---

// fakeIdentity is a settable IdentitySource.
type fakeIdentity struct {
	mu     sync.RWMutex
	userID string
}

func (f *fakeIdentity) UserID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.userID
}

func (f *fakeIdentity) Set(userID string) {
	f.mu.Lock()
	f.userID = userID
	f.mu.Unlock()
}

// switchingIdentity reports its user and then runs afterRead once, so a test
// can change identity right after a store has read it.
type switchingIdentity struct {
	fakeIdentity
	afterRead func()
}

func (f *switchingIdentity) UserID() string {
	uid := f.fakeIdentity.UserID()
	if fn := f.afterRead; fn != nil {
		f.afterRead = nil
		fn()
	}
	return uid
}

// fakeClock is a goroutine-safe settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memWishlist is an in-memory domain.WishlistRepository.
type memWishlist struct {
	mu   sync.Mutex
	rows map[string]map[string]bool
}

func newMemWishlist() *memWishlist {
	return &memWishlist{rows: make(map[string]map[string]bool)}
}

func (m *memWishlist) ListProductIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for id := range m.rows[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memWishlist) Add(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[userID] == nil {
		m.rows[userID] = make(map[string]bool)
	}
	m.rows[userID][productID] = true
	return nil
}

func (m *memWishlist) Remove(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.rows[userID][productID] {
		return apperrors.NotFound("wishlist item", productID)
	}
	delete(m.rows[userID], productID)
	return nil
}

// memHistory is an in-memory domain.HistoryRepository. Each method is
// individually atomic, like single SQL statements.
type memHistory struct {
	mu         sync.Mutex
	recs       map[string]*domain.ViewRecord // key user|product
	categories map[string]string             // product -> category
	// readDelay widens the gap between Get and the following write.
	readDelay time.Duration
}

func newMemHistory(categories map[string]string) *memHistory {
	return &memHistory{recs: make(map[string]*domain.ViewRecord), categories: categories}
}

func key(userID, productID string) string { return userID + "|" + productID }

func (m *memHistory) Get(_ context.Context, userID, productID string) (*domain.ViewRecord, error) {
	m.mu.Lock()
	rec, ok := m.recs[key(userID, productID)]
	var out domain.ViewRecord
	if ok {
		out = *rec
	}
	delay := m.readDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return nil, apperrors.NotFound("view record", productID)
	}
	return &out, nil
}

func (m *memHistory) Insert(_ context.Context, rec domain.ViewRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(rec.UserID, rec.ProductID)
	if _, ok := m.recs[k]; ok {
		return apperrors.ErrAlreadyExists
	}
	m.recs[k] = &rec
	return nil
}

func (m *memHistory) Update(_ context.Context, userID, productID string, viewCount int, viewedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key(userID, productID)]
	if !ok {
		return apperrors.NotFound("view record", productID)
	}
	rec.ViewCount = viewCount
	rec.ViewedAt = viewedAt
	return nil
}

func (m *memHistory) Increment(_ context.Context, userID, productID string, viewedAt time.Time) (*domain.ViewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(userID, productID)
	rec, ok := m.recs[k]
	if !ok {
		rec = &domain.ViewRecord{UserID: userID, ProductID: productID}
		m.recs[k] = rec
	}
	rec.ViewCount++
	if viewedAt.After(rec.ViewedAt) {
		rec.ViewedAt = viewedAt
	}
	out := *rec
	return &out, nil
}

func (m *memHistory) sorted(userID string, less func(a, b domain.ViewRecord) bool) []domain.ViewRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ViewRecord{}
	for _, rec := range m.recs {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

func limitTo(recs []domain.ViewRecord, limit int) []domain.ViewRecord {
	if len(recs) > limit {
		return recs[:limit]
	}
	return recs
}

func (m *memHistory) ListRecent(_ context.Context, userID string, limit int) ([]domain.ViewRecord, error) {
	return limitTo(m.sorted(userID, func(a, b domain.ViewRecord) bool { return a.ViewedAt.After(b.ViewedAt) }), limit), nil
}

func (m *memHistory) ListMostViewed(_ context.Context, userID string, limit int) ([]domain.ViewRecord, error) {
	return limitTo(m.sorted(userID, func(a, b domain.ViewRecord) bool {
		if a.ViewCount != b.ViewCount {
			return a.ViewCount > b.ViewCount
		}
		return a.ViewedAt.After(b.ViewedAt)
	}), limit), nil
}

func (m *memHistory) ListCategories(_ context.Context, userID string) ([]string, error) {
	recs := m.sorted(userID, func(a, b domain.ViewRecord) bool { return a.ViewedAt.After(b.ViewedAt) })
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, m.categories[rec.ProductID])
	}
	return out, nil
}

func product(id, category string) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, Price: 1000, Category: category, InStock: true}
}
