package agentcore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ashgrover/insiderwatch/internal/config"
	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/stretchr/testify/assert"
)

type fakeObserver struct {
	mu     sync.Mutex
	queued []model.Activity
}

func (f *fakeObserver) Name() string                  { return "fake" }
func (f *fakeObserver) Start(ctx context.Context) error { return nil }
func (f *fakeObserver) Stop()                         {}
func (f *fakeObserver) Drain(limit int) []model.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.queued
	f.queued = nil
	return out
}

func testAgentConfig(serverURL string) config.AgentConfig {
	return config.AgentConfig{
		UserID:               "U001",
		ServerURL:            serverURL,
		ActivityPollInterval: 10 * time.Millisecond,
		UploadInterval:       20 * time.Millisecond,
		RetryBudget:          1,
		RetryBaseDelay:       time.Millisecond,
		SendBatchSize:        10,
		ConnectTimeout:       time.Second,
		OfflineQueueCapacity: 100,
	}
}

func TestAggregatorEnrichSetsIdentityAndOffHours(t *testing.T) {
	cfg := testAgentConfig("http://example.invalid")
	agg := NewAggregator(cfg, nil, NewTransport(cfg.ServerURL, cfg.ConnectTimeout, cfg.RetryBudget, cfg.RetryBaseDelay))

	enriched := agg.enrich(model.Activity{Timestamp: time.Date(2024, 6, 3, 23, 0, 0, 0, time.UTC)})
	assert.Equal(t, "U001", enriched.UserID)
	assert.NotEmpty(t, enriched.DeviceID)
	assert.Equal(t, 23, enriched.ActivityHour)
	assert.True(t, enriched.OffHours)
}

func TestAggregatorDrainObserversPushesToSendQueue(t *testing.T) {
	cfg := testAgentConfig("http://example.invalid")
	fo := &fakeObserver{queued: []model.Activity{{Timestamp: time.Now(), Kind: model.KindLogon}}}
	agg := NewAggregator(cfg, []Observer{fo}, NewTransport(cfg.ServerURL, cfg.ConnectTimeout, cfg.RetryBudget, cfg.RetryBaseDelay))

	agg.drainObservers()
	assert.Equal(t, 1, agg.send.len())
}

func TestAggregatorFlushSendsQueuedActivityAndClearsQueue(t *testing.T) {
	var received int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	cfg := testAgentConfig(srv.URL)
	agg := NewAggregator(cfg, nil, NewTransport(cfg.ServerURL, cfg.ConnectTimeout, cfg.RetryBudget, cfg.RetryBaseDelay))
	agg.send.push(model.Activity{Timestamp: time.Now(), Kind: model.KindLogon})

	agg.flush(context.Background())
	assert.Equal(t, 1, received)
	assert.Equal(t, 0, agg.send.len())
	assert.Equal(t, 0, agg.offline.len())
}

func TestAggregatorFlushRequeuesOfflineOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testAgentConfig(srv.URL)
	agg := NewAggregator(cfg, nil, NewTransport(cfg.ServerURL, cfg.ConnectTimeout, cfg.RetryBudget, cfg.RetryBaseDelay))
	agg.send.push(model.Activity{Timestamp: time.Now(), Kind: model.KindLogon})

	agg.flush(context.Background())
	assert.Equal(t, 0, agg.send.len())
	assert.Equal(t, 1, agg.offline.len())
}

func TestAggregatorFlushDrainsOfflineBacklogBeforeNewSends(t *testing.T) {
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "received")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	cfg := testAgentConfig(srv.URL)
	agg := NewAggregator(cfg, nil, NewTransport(cfg.ServerURL, cfg.ConnectTimeout, cfg.RetryBudget, cfg.RetryBaseDelay))
	agg.offline.push(model.Activity{Timestamp: time.Now(), Kind: model.KindLogon})
	agg.send.push(model.Activity{Timestamp: time.Now(), Kind: model.KindLogon})

	agg.flush(context.Background())
	assert.Len(t, order, 2)
	assert.Equal(t, 0, agg.offline.len())
	assert.Equal(t, 0, agg.send.len())
}
