package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/identity"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Wishlists       domain.WishlistRepository
	History         domain.HistoryRepository
	Catalog         *Catalog
	Verifier        identity.TokenVerifier
	Events          EventPublisher
	WriteMode       WriteMode
	NoticeQueueSize int
	Now             func() time.Time
	Logger          *slog.Logger
}

// Session is one shopper's storefront state: identity, wishlist, compare
// selection, browsing history and pending notices.
type Session struct {
	ID        string
	CreatedAt time.Time

	Identity *identity.Provider
	Wishlist *WishlistStore
	Compare  *CompareStore
	History  *BrowsingHistoryTracker
	Notices  *NoticeQueue

	lastSeen    atomic.Int64 // unix nanoseconds
	unsubscribe func()
	closeOnce   sync.Once
	closed      atomic.Bool
	logger      *slog.Logger
}

// NewSession wires a signed-out session. The wishlist follows every
// identity change of the session's provider.
func NewSession(id string, deps Deps) *Session {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	log := deps.Logger

	provider := identity.NewProvider(deps.Verifier, now)
	notices := NewNoticeQueue(deps.NoticeQueueSize, now)

	s := &Session{
		ID:        id,
		CreatedAt: now().UTC(),
		Identity:  provider,
		Wishlist:  NewWishlistStore(deps.Wishlists, provider, deps.Events, notices, log),
		Compare:   NewCompareStore(deps.Catalog, notices, log),
		History:   NewBrowsingHistoryTracker(deps.History, provider, deps.Events, deps.WriteMode, now, log),
		Notices:   notices,
		logger:    log,
	}
	s.Touch(now())

	s.unsubscribe = provider.Subscribe(func(ctx context.Context, userID string) {
		s.logger.InfoContext(ctx, "session identity changed",
			slog.String("session_id", s.ID),
			slog.Bool("signed_in", userID != ""),
		)
		s.Wishlist.Resync(ctx, userID)
	})
	return s
}

// Touch records activity at t.
func (s *Session) Touch(t time.Time) {
	s.lastSeen.Store(t.UnixNano())
}

// LastSeen returns the time of the latest activity.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load()).UTC()
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Close tears the session down: identity changes are no longer followed,
// the wishlist and compare selection are emptied, and results of calls
// still in flight are ignored. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.unsubscribe()
		s.Wishlist.Close()
		s.Compare.Clear()
		s.Compare.SetOpen(false)
		s.logger.Debug("session closed", slog.String("session_id", s.ID))
	})
}
