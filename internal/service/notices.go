package service

import (
	"sync"
	"time"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
)

// Notifier receives user-facing notices raised by the stores.
type Notifier interface {
	Notify(code domain.NoticeCode, severity domain.Severity, productID string)
}

type discardNotifier struct{}

func (discardNotifier) Notify(domain.NoticeCode, domain.Severity, string) {}

// NoticeQueue buffers notices for a session until the client drains them.
// When full, the oldest notice is dropped.
type NoticeQueue struct {
	mu       sync.Mutex
	items    []domain.Notice
	capacity int
	dropped  uint64
	now      func() time.Time
}

var _ Notifier = (*NoticeQueue)(nil)

// NewNoticeQueue creates a queue holding at most capacity notices.
func NewNoticeQueue(capacity int, now func() time.Time) *NoticeQueue {
	if capacity < 1 {
		capacity = 1
	}
	if now == nil {
		now = time.Now
	}
	return &NoticeQueue{capacity: capacity, now: now}
}

// Notify appends a notice.
func (q *NoticeQueue) Notify(code domain.NoticeCode, severity domain.Severity, productID string) {
	n := domain.Notice{Code: code, Severity: severity, ProductID: productID, At: q.now().UTC()}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.capacity {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		q.dropped++
	}
	q.items = append(q.items, n)
}

// Drain returns the queued notices, oldest first, and empties the queue.
func (q *NoticeQueue) Drain() []domain.Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		out = []domain.Notice{}
	}
	return out
}

// Len returns the number of queued notices.
func (q *NoticeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many notices were discarded because the queue was full.
func (q *NoticeQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
