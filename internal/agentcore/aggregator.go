package agentcore

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/ashgrover/insiderwatch/internal/config"
	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

// Aggregator runs the agent's two cadences (§4.2): it drains every observer
// on ActivityPollInterval into an in-memory send queue, and flushes that
// queue to the server one event at a time on UploadInterval, enriching each
// activity with identifying fields the server needs to fingerprint and
// score it. A transport failure spills the event into an offline queue that
// is drained ahead of new events on the next successful round.
type Aggregator struct {
	cfg       config.AgentConfig
	observers []Observer
	transport *Transport
	deviceID  string

	send    *boundedQueue
	offline *offlineQueue

	stop chan struct{}
	done chan struct{}
}

func NewAggregator(cfg config.AgentConfig, observers []Observer, transport *Transport) *Aggregator {
	return &Aggregator{
		cfg:       cfg,
		observers: observers,
		transport: transport,
		deviceID:  deviceIdentity(),
		send:      newBoundedQueue(cfg.SendBatchSize * 4),
		offline:   newOfflineQueue(cfg.OfflineQueueCapacity),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// deviceIdentity composes a stable per-endpoint id from the host name and
// OS, standing in for a hardware serial the agent has no portable way to
// read (§4.1's "identifying fields" requirement).
func deviceIdentity() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return host + "-" + runtime.GOOS
}

func (a *Aggregator) Start(ctx context.Context) {
	go a.run(ctx)
}

func (a *Aggregator) Stop() {
	close(a.stop)
	<-a.done
}

func (a *Aggregator) run(ctx context.Context) {
	defer close(a.done)

	drainTicker := time.NewTicker(a.cfg.ActivityPollInterval)
	defer drainTicker.Stop()
	uploadTicker := time.NewTicker(a.cfg.UploadInterval)
	defer uploadTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stop:
			return
		case <-drainTicker.C:
			a.drainObservers()
		case <-uploadTicker.C:
			a.flush(ctx)
		}
	}
}

func (a *Aggregator) drainObservers() {
	for _, o := range a.observers {
		for _, act := range o.Drain(0) {
			a.send.push(a.enrich(act))
		}
	}
	metrics.AgentQueueDepth.WithLabelValues("send").Set(float64(a.send.len()))
}

func (a *Aggregator) enrich(act model.Activity) model.Activity {
	act.UserID = a.cfg.UserID
	act.DeviceID = a.deviceID
	if act.ActivityHour == 0 && act.Timestamp.IsZero() {
		act.Timestamp = time.Now()
	}
	act.ActivityHour = act.Timestamp.Hour()
	act.OffHours = model.IsOffHours(act.ActivityHour)
	return act
}

// flush drains the offline queue first, then the send queue, so events
// queued during a prior outage go out ahead of fresher ones (§4.2).
func (a *Aggregator) flush(ctx context.Context) {
	backlog := a.offline.drainAll()
	pending := append(backlog, a.send.drain(0)...)

	for i, act := range pending {
		if err := a.transport.SendActivity(ctx, act); err != nil {
			if ctx.Err() != nil {
				a.requeueRemaining(pending[i:])
				return
			}
			logging.Warn().Err(err).Str("activity_kind", string(act.Kind)).Msg("agent send failed, queuing offline")
			a.requeueRemaining(pending[i:])
			return
		}
	}
	metrics.AgentQueueDepth.WithLabelValues("send").Set(0)
}

func (a *Aggregator) requeueRemaining(remaining []model.Activity) {
	for _, act := range remaining {
		a.offline.push(act)
	}
	metrics.AgentQueueDepth.WithLabelValues("send").Set(0)
}
