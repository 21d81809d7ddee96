package cache

import (
	"testing"
	"time"

	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestGetPutRoundTrip(t *testing.T) {
	c := New(10, time.Minute)
	rec := &model.FingerprintRecord{Hash: "abc", UserID: "U001", ObservationCount: 1}
	c.Put("abc", rec)

	got, ok := c.Get("abc")
	assert.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestGetMissUnknownKey(t *testing.T) {
	c := New(10, time.Minute)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyUsedOverCapacity(t *testing.T) {
	c := New(2, time.Minute)
	c.Put("a", &model.FingerprintRecord{Hash: "a"})
	c.Put("b", &model.FingerprintRecord{Hash: "b"})
	c.Get("a") // touch a, making b the LRU
	c.Put("c", &model.FingerprintRecord{Hash: "c"})

	_, bOK := c.Get("b")
	_, aOK := c.Get("a")
	_, cOK := c.Get("c")
	assert.False(t, bOK)
	assert.True(t, aOK)
	assert.True(t, cOK)
	assert.Equal(t, 2, c.Len())
}

func TestExpiresAfterTTL(t *testing.T) {
	c := New(10, time.Millisecond)
	c.Put("a", &model.FingerprintRecord{Hash: "a"})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}
