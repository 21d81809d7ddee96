package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())
	id := CorrelationIDFromContext(ctx)
	assert.Len(t, id, 8)

	ctx2 := ContextWithCorrelationID(context.Background(), "abc123")
	assert.Equal(t, "abc123", CorrelationIDFromContext(ctx2))
}

func TestCorrelationIDAbsent(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}
