package zipkintracer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpanQueue(t *testing.T) {
	q := newSpanQueue(2)
	assert.Equal(t, 2, q.capacity())

	a, b := testSpan(1), testSpan(2)
	assert.True(t, q.offer(a))
	assert.True(t, q.offer(b))
	assert.False(t, q.offer(testSpan(3)))
	assert.Equal(t, 2, q.len())

	item, ok := q.next(nil)
	assert.True(t, ok)
	assert.Same(t, a, item.span)

	q.stop()
	item, _ = q.next(nil)
	assert.Same(t, b, item.span)
	item, _ = q.next(nil)
	assert.True(t, item.stop)
}

func TestSpanQueueTimeout(t *testing.T) {
	q := newSpanQueue(1)
	_, ok := q.next(time.After(time.Millisecond))
	assert.False(t, ok)
}

func TestSpanQueueStopWaitsForRoom(t *testing.T) {
	q := newSpanQueue(1)
	q.offer(testSpan(1))

	stopped := make(chan struct{})
	go func() {
		q.stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}
	q.next(nil)
	<-stopped
	item, _ := q.next(nil)
	assert.True(t, item.stop)
}
