// Package agentcore implements the endpoint Activity Agent: the four
// platform event source observers, the aggregator that enriches and
// transmits their output, the offline queue, and the circuit-breaker-backed
// transport to the ingest service (§4.1, §4.2).
package agentcore

import (
	"context"
	"sync"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// Observer is the uniform contract every platform event source implements
// (§4.1): start, stop, and a non-blocking drain that removes what it
// returns. Callers must tolerate zero events from Drain.
type Observer interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
	Drain(limit int) []model.Activity
}

// boundedQueue is a thread-safe FIFO with drop-oldest overflow, shared by
// every observer's ring buffer, the aggregator's send queue, and the
// offline queue — the same bounded-buffer shape appears in all three
// places in §4.1/§4.2, just at different capacities.
type boundedQueue struct {
	mu       sync.Mutex
	items    []model.Activity
	capacity int
}

func newBoundedQueue(capacity int) *boundedQueue {
	if capacity <= 0 {
		capacity = 1000
	}
	return &boundedQueue{capacity: capacity}
}

// push appends a, evicting the oldest entry first if at capacity.
func (q *boundedQueue) push(a model.Activity) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
	}
	q.items = append(q.items, a)
}

// drain removes and returns up to limit items (all items if limit <= 0).
func (q *boundedQueue) drain(limit int) []model.Activity {
	q.mu.Lock()
	defer q.mu.Unlock()
	if limit <= 0 || limit > len(q.items) {
		limit = len(q.items)
	}
	out := make([]model.Activity, limit)
	copy(out, q.items[:limit])
	q.items = q.items[limit:]
	return out
}

func (q *boundedQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
