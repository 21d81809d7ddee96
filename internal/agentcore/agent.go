// Package agentcore implements the endpoint Activity Agent (§4.1, §4.2):
// platform-event-source observers, a two-cadence aggregator that enriches
// and ships what they collect, and the retrying, circuit-broken transport
// that talks to the ingest service.
package agentcore

import (
	"context"
	"net/http"

	"github.com/ashgrover/insiderwatch/internal/config"
)

// Agent wires the observers, aggregator and transport into the components
// cmd/agent hands to the suture supervisor tree.
type Agent struct {
	cfg       config.AgentConfig
	observers []Observer
	transport *Transport
	agg       *Aggregator
}

// New builds an Agent from cfg, constructing only the observers their
// respective enable flags permit (§6).
func New(cfg config.AgentConfig) *Agent {
	var observers []Observer
	if cfg.FileMonitorEnabled {
		observers = append(observers, NewFileObserver(cfg.MonitoredPaths, cfg.SensitivePatterns))
	}
	if cfg.ProcessMonitorEnabled {
		observers = append(observers, NewProcessObserver())
	}
	if cfg.NetworkMonitorEnabled {
		observers = append(observers, NewNetworkObserver())
	}
	if cfg.LoginMonitorEnabled {
		observers = append(observers, NewLoginObserver())
	}

	transport := NewTransport(cfg.ServerURL, cfg.ConnectTimeout, cfg.RetryBudget, cfg.RetryBaseDelay)

	return &Agent{
		cfg:       cfg,
		observers: observers,
		transport: transport,
		agg:       NewAggregator(cfg, observers, transport),
	}
}

// Handshake verifies the configured user id against the server before the
// supervisor tree starts observing (§4.2). A server that's merely
// unreachable is not fatal; see Handshake's own doc comment.
func (a *Agent) Handshake(ctx context.Context) error {
	client := &http.Client{Timeout: a.cfg.ConnectTimeout}
	return Handshake(ctx, client, a.cfg.ServerURL, a.cfg.UserID)
}

// Observers returns the enabled observers, for the caller to add to the
// supervisor tree's collection layer.
func (a *Agent) Observers() []Observer {
	return a.observers
}

// Aggregator returns the aggregator, for the caller to add to the
// supervisor tree's transport layer.
func (a *Agent) Aggregator() *Aggregator {
	return a.agg
}

// Stats reports the agent's queue depths, e.g. for a shutdown summary.
func (a *Agent) Stats() Stats {
	return Stats{
		SendQueueDepth:    a.agg.send.len(),
		OfflineQueueDepth: a.agg.offline.len(),
	}
}

// Stats summarizes agent state, printed by cmd/agent at shutdown.
type Stats struct {
	SendQueueDepth    int
	OfflineQueueDepth int
}
