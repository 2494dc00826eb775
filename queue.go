package zipkintracer

import (
	"time"
)

// queueItem is either a finished span or the stop sentinel.
type queueItem struct {
	span *Span
	stop bool
}

// spanQueue is a bounded FIFO of finished spans. Offers never block;
// only the stop sentinel may wait for room.
type spanQueue struct {
	items chan queueItem
}

func newSpanQueue(capacity int) *spanQueue {
	return &spanQueue{items: make(chan queueItem, capacity)}
}

// offer enqueues sp if there is room and reports whether it did.
func (q *spanQueue) offer(sp *Span) bool {
	select {
	case q.items <- queueItem{span: sp}:
		return true
	default:
		return false
	}
}

// stop enqueues the stop sentinel, waiting for room if the queue is full.
func (q *spanQueue) stop() {
	q.items <- queueItem{stop: true}
}

// next waits for the next item. A nil timeout channel waits forever. ok is
// false when timeout fired first.
func (q *spanQueue) next(timeout <-chan time.Time) (item queueItem, ok bool) {
	select {
	case item = <-q.items:
		return item, true
	case <-timeout:
		return queueItem{}, false
	}
}

// len returns the number of queued items.
func (q *spanQueue) len() int {
	return len(q.items)
}

func (q *spanQueue) capacity() int {
	return cap(q.items)
}
