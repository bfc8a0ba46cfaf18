package service

import "github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"

// Status classifies how a store operation ended. Store operations never
// return errors; callers branch on Status instead.
type Status string

const (
	StatusOK              Status = "ok"
	StatusUnauthenticated Status = "unauthenticated"
	StatusStorageFailure  Status = "storage_failure"
	StatusRejected        Status = "rejected"
	// StatusDiscarded means the operation finished after the session was
	// closed or the user changed, so its result was not applied.
	StatusDiscarded Status = "discarded"
)

// Result is the outcome of a store operation.
type Result struct {
	Status Status            `json:"status"`
	Reason domain.NoticeCode `json:"reason,omitempty"`
	Err    error             `json:"-"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Status == StatusOK }

func ok() Result { return Result{Status: StatusOK} }

func unauthenticated() Result {
	return Result{Status: StatusUnauthenticated, Reason: domain.NoticeSignInRequired}
}

func storageFailure(err error) Result {
	return Result{Status: StatusStorageFailure, Err: err}
}

func rejected(reason domain.NoticeCode) Result {
	return Result{Status: StatusRejected, Reason: reason}
}

func discarded() Result { return Result{Status: StatusDiscarded} }
