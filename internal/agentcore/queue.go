package agentcore

import (
	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

// offlineQueue holds activities that failed to transmit, bounded at
// capacity with drop-oldest eviction (§4.2). Drained before new events on
// the next successful round.
type offlineQueue struct {
	q *boundedQueue
}

func newOfflineQueue(capacity int) *offlineQueue {
	return &offlineQueue{q: newBoundedQueue(capacity)}
}

func (o *offlineQueue) push(a model.Activity) {
	o.q.push(a)
	metrics.AgentQueueDepth.WithLabelValues("offline").Set(float64(o.q.len()))
}

// drainAll empties the queue, returning everything in FIFO order.
func (o *offlineQueue) drainAll() []model.Activity {
	all := o.q.drain(0)
	metrics.AgentQueueDepth.WithLabelValues("offline").Set(0)
	return all
}

func (o *offlineQueue) len() int {
	return o.q.len()
}
