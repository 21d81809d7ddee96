package agentcore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashgrover/insiderwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOnlyBuildsEnabledObservers(t *testing.T) {
	cfg := config.DefaultAgentConfig()
	cfg.UserID = "U001"
	cfg.FileMonitorEnabled = false
	cfg.ProcessMonitorEnabled = true
	cfg.NetworkMonitorEnabled = false
	cfg.LoginMonitorEnabled = true

	ag := New(cfg)
	assert.Len(t, ag.Observers(), 2)
}

func TestAgentHandshakeUsesConfiguredServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"U001"}}`))
	}))
	defer srv.Close()

	cfg := config.DefaultAgentConfig()
	cfg.UserID = "U001"
	cfg.ServerURL = srv.URL
	cfg.ConnectTimeout = time.Second

	ag := New(cfg)
	require.NoError(t, ag.Handshake(context.Background()))
}

func TestAgentStatsReflectsQueueDepths(t *testing.T) {
	cfg := config.DefaultAgentConfig()
	cfg.UserID = "U001"
	cfg.ServerURL = "http://example.invalid"

	ag := New(cfg)
	ag.agg.send.push(sampleActivity())

	stats := ag.Stats()
	assert.Equal(t, 1, stats.SendQueueDepth)
	assert.Equal(t, 0, stats.OfflineQueueDepth)
}
