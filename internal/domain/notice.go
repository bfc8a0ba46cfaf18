package domain

import "time"

// NoticeCode identifies a user-facing message. The presentation layer owns
// the wording.
type NoticeCode string

const (
	NoticeSignInRequired   NoticeCode = "sign_in_required"
	NoticeWishlistAdded    NoticeCode = "wishlist_added"
	NoticeWishlistRemoved  NoticeCode = "wishlist_removed"
	NoticeWishlistFailed   NoticeCode = "wishlist_failed"
	NoticeCompareFull      NoticeCode = "compare_full"
	NoticeAlreadyComparing NoticeCode = "already_comparing"
	NoticeCompareAdded     NoticeCode = "compare_added"
	NoticeProductNotFound  NoticeCode = "product_not_found"
)

// Severity grades a notice for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notice is a message for the shopper, queued per session until drained.
type Notice struct {
	Code      NoticeCode `json:"code"`
	Severity  Severity   `json:"severity"`
	ProductID string     `json:"product_id,omitempty"`
	At        time.Time  `json:"at"`
}
