package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/state"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/logger"
)

// IdentitySource reports the signed-in user, or "" when there is none.
type IdentitySource interface {
	UserID() string
}

// EventPublisher emits storefront domain events. Failures are logged by the
// caller and never change the outcome of an operation.
type EventPublisher interface {
	PublishWishlistToggled(ctx context.Context, userID, productID string, added bool) error
	PublishProductViewed(ctx context.Context, userID, productID string, viewCount int) error
}

// WishlistStore mirrors the current user's wishlist in memory.
//
// The local set only changes after storage accepts a write, and results
// that complete after an identity change or Close are dropped.
type WishlistStore struct {
	repo     domain.WishlistRepository
	identity IdentitySource
	events   EventPublisher
	notices  Notifier
	logger   *slog.Logger

	items      *state.Observable[[]string] // sorted product ids
	generation atomic.Uint64
	closed     atomic.Bool
}

// NewWishlistStore creates an empty store. notices may be nil.
func NewWishlistStore(repo domain.WishlistRepository, identity IdentitySource, events EventPublisher, notices Notifier, logger *slog.Logger) *WishlistStore {
	if notices == nil {
		notices = discardNotifier{}
	}
	return &WishlistStore{
		repo:     repo,
		identity: identity,
		events:   events,
		notices:  notices,
		logger:   logger,
		items:    state.New([]string{}),
	}
}

// FetchAll loads the current user's wishlist and replaces the local set.
// Without a user the set is emptied and StatusUnauthenticated returned.
func (s *WishlistStore) FetchAll(ctx context.Context) ([]string, Result) {
	if s.closed.Load() {
		return []string{}, discarded()
	}
	// The generation is taken before the user so that a sign-in landing in
	// between makes this load stale instead of tagging it as the new user's.
	gen := s.generation.Load()
	userID := s.identity.UserID()
	if userID == "" {
		s.items.Set([]string{})
		return []string{}, unauthenticated()
	}
	return s.load(ctx, userID, gen)
}

// Resync drops the local set and reloads it for userID. It is called on
// every identity change.
func (s *WishlistStore) Resync(ctx context.Context, userID string) Result {
	gen := s.generation.Add(1)
	s.items.Set([]string{})
	if s.closed.Load() {
		return discarded()
	}
	if userID == "" {
		return ok()
	}
	_, res := s.load(ctx, userID, gen)
	return res
}

func (s *WishlistStore) load(ctx context.Context, userID string, gen uint64) ([]string, Result) {
	ids, err := s.repo.ListProductIDs(ctx, userID)
	if err != nil {
		logger.WithContext(ctx, s.logger).ErrorContext(ctx, "failed to load wishlist",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return []string{}, storageFailure(err)
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	if _, applied := s.items.UpdateIf(func([]string) ([]string, bool) {
		return sorted, s.current(gen)
	}); !applied {
		return []string{}, discarded()
	}
	return slices.Clone(sorted), ok()
}

// Toggle flips membership of productID for the current user.
func (s *WishlistStore) Toggle(ctx context.Context, productID string) Result {
	log := logger.WithContext(ctx, s.logger)

	if s.closed.Load() {
		return discarded()
	}
	gen := s.generation.Load()
	userID := s.identity.UserID()
	if userID == "" {
		s.notices.Notify(domain.NoticeSignInRequired, domain.SeverityInfo, productID)
		wishlistToggles.WithLabelValues("none", string(StatusUnauthenticated)).Inc()
		return unauthenticated()
	}

	member := s.IsMember(productID)
	action := "add"

	var err error
	if member {
		action = "remove"
		err = s.repo.Remove(ctx, userID, productID)
		// Someone else already removed it; the desired state holds.
		if errors.Is(err, apperrors.ErrNotFound) {
			err = nil
		}
	} else {
		err = s.repo.Add(ctx, userID, productID)
	}
	if err != nil {
		log.ErrorContext(ctx, "failed to toggle wishlist item",
			slog.String("user_id", userID),
			slog.String("product_id", productID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		s.notices.Notify(domain.NoticeWishlistFailed, domain.SeverityError, productID)
		wishlistToggles.WithLabelValues(action, string(StatusStorageFailure)).Inc()
		return storageFailure(err)
	}

	_, applied := s.items.UpdateIf(func(cur []string) ([]string, bool) {
		if !s.current(gen) {
			return cur, false
		}
		if member {
			return without(cur, productID), true
		}
		return with(cur, productID), true
	})
	if !applied {
		log.DebugContext(ctx, "discarding wishlist toggle after identity change",
			slog.String("product_id", productID),
		)
		wishlistToggles.WithLabelValues(action, string(StatusDiscarded)).Inc()
		return discarded()
	}

	if member {
		s.notices.Notify(domain.NoticeWishlistRemoved, domain.SeveritySuccess, productID)
	} else {
		s.notices.Notify(domain.NoticeWishlistAdded, domain.SeveritySuccess, productID)
	}
	wishlistToggles.WithLabelValues(action, string(StatusOK)).Inc()

	if err := s.events.PublishWishlistToggled(ctx, userID, productID, !member); err != nil {
		log.ErrorContext(ctx, "failed to publish wishlist.toggled event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	log.InfoContext(ctx, "wishlist toggled",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.String("action", action),
	)
	return ok()
}

// IsMember reports whether productID is in the local set. It does no I/O.
// Nothing is a member once the identity has lapsed, even before the
// expiry has been processed.
func (s *WishlistStore) IsMember(productID string) bool {
	_, found := slices.BinarySearch(s.visible(), productID)
	return found
}

// Items returns the sorted local set, or an empty one without a user.
func (s *WishlistStore) Items() []string {
	return slices.Clone(s.visible())
}

func (s *WishlistStore) visible() []string {
	if s.identity.UserID() == "" {
		return []string{}
	}
	return s.items.Get()
}

// Subscribe registers fn to receive the sorted set after every change.
func (s *WishlistStore) Subscribe(fn func([]string)) (unsubscribe func()) {
	return s.items.Subscribe(fn)
}

// Version increases with every change of the local set.
func (s *WishlistStore) Version() uint64 {
	return s.items.Version()
}

// Close empties the set and ignores every result still in flight.
func (s *WishlistStore) Close() {
	s.closed.Store(true)
	s.generation.Add(1)
	s.items.Set([]string{})
}

func (s *WishlistStore) current(gen uint64) bool {
	return !s.closed.Load() && s.generation.Load() == gen
}

// with returns a sorted copy of ids including id.
func with(ids []string, id string) []string {
	i, found := slices.BinarySearch(ids, id)
	if found {
		return ids
	}
	return slices.Insert(slices.Clone(ids), i, id)
}

// without returns a copy of ids excluding id.
func without(ids []string, id string) []string {
	i, found := slices.BinarySearch(ids, id)
	if !found {
		return ids
	}
	return slices.Delete(slices.Clone(ids), i, i+1)
}
