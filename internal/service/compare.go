package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/state"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/logger"
)

// MaxCompareItems bounds the compare selection.
const MaxCompareItems = 3

// CompareState is the compare selection plus the panel visibility flag.
type CompareState struct {
	Items []domain.Product `json:"items"`
	Open  bool             `json:"open"`
}

// CompareStore holds up to MaxCompareItems distinct product snapshots for
// one session. It is never persisted.
type CompareStore struct {
	state   *state.Observable[CompareState]
	catalog *Catalog
	notices Notifier
	logger  *slog.Logger
}

// NewCompareStore creates an empty, closed selection. catalog is only
// needed by AddByID; notices may be nil.
func NewCompareStore(catalog *Catalog, notices Notifier, logger *slog.Logger) *CompareStore {
	if notices == nil {
		notices = discardNotifier{}
	}
	return &CompareStore{
		state:   state.New(CompareState{Items: []domain.Product{}}),
		catalog: catalog,
		notices: notices,
		logger:  logger,
	}
}

// Add appends p unless the selection is full or already holds p.ID.
func (c *CompareStore) Add(p domain.Product) Result {
	var reason domain.NoticeCode
	c.state.UpdateIf(func(cur CompareState) (CompareState, bool) {
		switch {
		case len(cur.Items) >= MaxCompareItems:
			reason = domain.NoticeCompareFull
			return cur, false
		case containsProduct(cur.Items, p.ID):
			reason = domain.NoticeAlreadyComparing
			return cur, false
		}
		cur.Items = append(slices.Clone(cur.Items), p)
		return cur, true
	})

	if reason != "" {
		return c.reject(reason, p.ID)
	}
	c.notices.Notify(domain.NoticeCompareAdded, domain.SeveritySuccess, p.ID)
	return ok()
}

func (c *CompareStore) reject(reason domain.NoticeCode, productID string) Result {
	c.notices.Notify(reason, domain.SeverityInfo, productID)
	compareRejections.WithLabelValues(string(reason)).Inc()
	return rejected(reason)
}

// AddByID resolves productID through the catalog and adds the snapshot.
func (c *CompareStore) AddByID(ctx context.Context, productID string) Result {
	// Reject locally first so a full or duplicate selection costs no I/O.
	cur := c.state.Get()
	switch {
	case len(cur.Items) >= MaxCompareItems:
		return c.reject(domain.NoticeCompareFull, productID)
	case containsProduct(cur.Items, productID):
		return c.reject(domain.NoticeAlreadyComparing, productID)
	}

	p, err := c.catalog.Product(ctx, productID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrInvalidInput):
		c.notices.Notify(domain.NoticeProductNotFound, domain.SeverityError, productID)
		return Result{Status: StatusRejected, Reason: domain.NoticeProductNotFound, Err: err}
	case err != nil:
		logger.WithContext(ctx, c.logger).ErrorContext(ctx, "failed to resolve product for compare",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return storageFailure(err)
	}
	return c.Add(*p)
}

// Remove drops productID from the selection if present.
func (c *CompareStore) Remove(productID string) {
	c.state.UpdateIf(func(cur CompareState) (CompareState, bool) {
		i := slices.IndexFunc(cur.Items, func(p domain.Product) bool { return p.ID == productID })
		if i < 0 {
			return cur, false
		}
		cur.Items = slices.Delete(slices.Clone(cur.Items), i, i+1)
		return cur, true
	})
}

// Clear empties the selection. The panel flag is kept.
func (c *CompareStore) Clear() {
	c.state.Update(func(cur CompareState) CompareState {
		cur.Items = []domain.Product{}
		return cur
	})
}

// Contains reports whether productID is selected.
func (c *CompareStore) Contains(productID string) bool {
	return containsProduct(c.state.Get().Items, productID)
}

// Items returns the selection in insertion order.
func (c *CompareStore) Items() []domain.Product {
	return slices.Clone(c.state.Get().Items)
}

// SetOpen shows or hides the compare panel.
func (c *CompareStore) SetOpen(open bool) {
	c.state.UpdateIf(func(cur CompareState) (CompareState, bool) {
		if cur.Open == open {
			return cur, false
		}
		cur.Open = open
		return cur, true
	})
}

// ToggleOpen flips the panel flag and returns the new value.
func (c *CompareStore) ToggleOpen() bool {
	return c.state.Update(func(cur CompareState) CompareState {
		cur.Open = !cur.Open
		return cur
	}).Open
}

// IsOpen reports whether the compare panel is shown.
func (c *CompareStore) IsOpen() bool {
	return c.state.Get().Open
}

// Snapshot returns a copy of the whole compare state.
func (c *CompareStore) Snapshot() CompareState {
	cur := c.state.Get()
	return CompareState{Items: slices.Clone(cur.Items), Open: cur.Open}
}

// Subscribe registers fn to receive the state after every change.
func (c *CompareStore) Subscribe(fn func(CompareState)) (unsubscribe func()) {
	return c.state.Subscribe(fn)
}

func containsProduct(items []domain.Product, id string) bool {
	return slices.ContainsFunc(items, func(p domain.Product) bool { return p.ID == id })
}
