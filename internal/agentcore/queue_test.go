package agentcore

import (
	"testing"

	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestBoundedQueueDropsOldestAtCapacity(t *testing.T) {
	q := newBoundedQueue(2)
	q.push(model.Activity{UserID: "U001"})
	q.push(model.Activity{UserID: "U002"})
	q.push(model.Activity{UserID: "U003"})

	assert.Equal(t, 2, q.len())
	drained := q.drain(0)
	assert.Equal(t, []string{"U002", "U003"}, []string{drained[0].UserID, drained[1].UserID})
}

func TestBoundedQueueDrainRespectsLimit(t *testing.T) {
	q := newBoundedQueue(10)
	for i := 0; i < 5; i++ {
		q.push(model.Activity{UserID: "U001"})
	}

	first := q.drain(2)
	assert.Len(t, first, 2)
	assert.Equal(t, 3, q.len())
}

func TestOfflineQueuePushAndDrainAll(t *testing.T) {
	oq := newOfflineQueue(10)
	oq.push(model.Activity{UserID: "U100"})
	oq.push(model.Activity{UserID: "U101"})

	assert.Equal(t, 2, oq.len())
	drained := oq.drainAll()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, oq.len())
}
