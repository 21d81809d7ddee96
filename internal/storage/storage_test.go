package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashgrover/insiderwatch/internal/escalation"
	"github.com/ashgrover/insiderwatch/internal/model"
)

var _ escalation.Store = (*Store)(nil)

// testStoreSemaphore serializes DuckDB CGO connection creation across
// tests, matching the teacher's approach to avoiding concurrent-open hangs
// under CI resource pressure.
var testStoreSemaphore = make(chan struct{}, 1)
var testStoreMutex sync.Mutex

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	testStoreSemaphore <- struct{}{}
	t.Cleanup(func() { <-testStoreSemaphore })

	testStoreMutex.Lock()
	defer testStoreMutex.Unlock()

	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedUser(t *testing.T, s *Store, id string) model.User {
	t.Helper()
	u := model.User{ID: id, Username: id, Role: "engineer", Department: "R&D"}
	require.NoError(t, s.PutUser(context.Background(), u))
	return u
}
