package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/logger"
)

// WriteMode selects how RecordView stores a view.
type WriteMode string

const (
	// WriteAtomic uses one upsert-with-increment statement.
	WriteAtomic WriteMode = "atomic"
	// WriteReadThenWrite looks the record up, then inserts or updates it.
	// Overlapping views of one product can lose increments.
	WriteReadThenWrite WriteMode = "read_then_write"
)

// DefaultHistoryLimit is used when a caller passes a non-positive limit.
const DefaultHistoryLimit = 10

// BrowsingHistoryTracker records product views and derives recently viewed,
// most viewed and preferred category lists from them.
type BrowsingHistoryTracker struct {
	repo     domain.HistoryRepository
	identity IdentitySource
	events   EventPublisher
	mode     WriteMode
	now      func() time.Time
	logger   *slog.Logger
}

// NewBrowsingHistoryTracker creates a tracker. An empty mode means WriteAtomic.
func NewBrowsingHistoryTracker(repo domain.HistoryRepository, identity IdentitySource, events EventPublisher, mode WriteMode, now func() time.Time, logger *slog.Logger) *BrowsingHistoryTracker {
	if mode == "" {
		mode = WriteAtomic
	}
	if now == nil {
		now = time.Now
	}
	return &BrowsingHistoryTracker{
		repo:     repo,
		identity: identity,
		events:   events,
		mode:     mode,
		now:      now,
		logger:   logger,
	}
}

// RecordView counts one view of productID by the current user. Without a
// user it does nothing. Failures are logged and reported in the Result.
func (t *BrowsingHistoryTracker) RecordView(ctx context.Context, productID string) Result {
	userID := t.identity.UserID()
	if userID == "" {
		return unauthenticated()
	}

	at := t.now().UTC()
	var (
		count int
		err   error
	)
	switch t.mode {
	case WriteReadThenWrite:
		count, err = t.readThenWrite(ctx, userID, productID, at)
	default:
		var rec *domain.ViewRecord
		if rec, err = t.repo.Increment(ctx, userID, productID, at); err == nil {
			count = rec.ViewCount
		}
	}

	log := logger.WithContext(ctx, t.logger)
	if err != nil {
		log.WarnContext(ctx, "failed to record product view",
			slog.String("user_id", userID),
			slog.String("product_id", productID),
			slog.String("mode", string(t.mode)),
			slog.String("error", err.Error()),
		)
		viewsRecorded.WithLabelValues(string(t.mode), string(StatusStorageFailure)).Inc()
		return storageFailure(err)
	}
	viewsRecorded.WithLabelValues(string(t.mode), string(StatusOK)).Inc()

	if err := t.events.PublishProductViewed(ctx, userID, productID, count); err != nil {
		log.ErrorContext(ctx, "failed to publish product.viewed event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	return ok()
}

func (t *BrowsingHistoryTracker) readThenWrite(ctx context.Context, userID, productID string, at time.Time) (int, error) {
	rec, err := t.repo.Get(ctx, userID, productID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		err := t.repo.Insert(ctx, domain.ViewRecord{UserID: userID, ProductID: productID, ViewCount: 1, ViewedAt: at})
		if err != nil {
			return 0, err
		}
		return 1, nil
	case err != nil:
		return 0, fmt.Errorf("look up view record: %w", err)
	}

	count := rec.ViewCount + 1
	if err := t.repo.Update(ctx, userID, productID, count, at); err != nil {
		return 0, err
	}
	return count, nil
}

// RecentlyViewed returns up to limit records, most recent first.
func (t *BrowsingHistoryTracker) RecentlyViewed(ctx context.Context, limit int) ([]domain.ViewRecord, Result) {
	return t.list(ctx, "recently viewed", limit, t.repo.ListRecent)
}

// MostViewed returns up to limit records, highest view count first.
func (t *BrowsingHistoryTracker) MostViewed(ctx context.Context, limit int) ([]domain.ViewRecord, Result) {
	return t.list(ctx, "most viewed", limit, t.repo.ListMostViewed)
}

type listFunc func(ctx context.Context, userID string, limit int) ([]domain.ViewRecord, error)

func (t *BrowsingHistoryTracker) list(ctx context.Context, what string, limit int, fetch listFunc) ([]domain.ViewRecord, Result) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	userID := t.identity.UserID()
	if userID == "" {
		return []domain.ViewRecord{}, unauthenticated()
	}

	recs, err := fetch(ctx, userID, limit)
	if err != nil {
		logger.WithContext(ctx, t.logger).WarnContext(ctx, "failed to load "+what,
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return []domain.ViewRecord{}, storageFailure(err)
	}
	if t.identity.UserID() != userID {
		return []domain.ViewRecord{}, discarded()
	}
	return recs, ok()
}

// PreferredCategories ranks the categories of viewed products by how many
// records fall in each. Ties keep the order in which categories first
// appear in the most-recent-first history.
func (t *BrowsingHistoryTracker) PreferredCategories(ctx context.Context) ([]string, Result) {
	userID := t.identity.UserID()
	if userID == "" {
		return []string{}, unauthenticated()
	}

	categories, err := t.repo.ListCategories(ctx, userID)
	if err != nil {
		logger.WithContext(ctx, t.logger).WarnContext(ctx, "failed to load viewed categories",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return []string{}, storageFailure(err)
	}
	if t.identity.UserID() != userID {
		return []string{}, discarded()
	}
	return RankCategories(categories), ok()
}

// RankCategories tallies categories, ignoring empty ones, and orders them by
// count descending with first appearance breaking ties.
func RankCategories(categories []string) []string {
	counts := make(map[string]int)
	ranked := []string{}
	for _, c := range categories {
		if c == "" {
			continue
		}
		if counts[c] == 0 {
			ranked = append(ranked, c)
		}
		counts[c]++
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	return ranked
}
