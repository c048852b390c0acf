// Package memory provides a bounded in-process job queue.
package memory

import (
	"context"
	"fmt"

	"github.com/newswire-hq/newswire/internal/news"
)

// Queue is a channel-backed FIFO with a fixed capacity. Enqueue fails fast
// once the buffer is full so callers can surface saturation instead of
// blocking API handlers.
type Queue struct {
	items chan news.QueueItem
}

// New creates a Queue holding at most capacity items.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 100
	}
	return &Queue{items: make(chan news.QueueItem, capacity)}
}

// Enqueue adds an item or returns an error when the queue is full or the
// context is done.
func (q *Queue) Enqueue(ctx context.Context, item news.QueueItem) error {
	select {
	case q.items <- item:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue job %s: %w", item.JobID, ctx.Err())
	default:
		return fmt.Errorf("enqueue job %s: queue is full", item.JobID)
	}
}

// Dequeue blocks until an item is available or ctx is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (news.QueueItem, error) {
	select {
	case item := <-q.items:
		return item, nil
	case <-ctx.Done():
		return news.QueueItem{}, ctx.Err()
	}
}

// Len reports the number of queued items.
func (q *Queue) Len() int {
	return len(q.items)
}
