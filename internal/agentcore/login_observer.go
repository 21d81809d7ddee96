package agentcore

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

const loginHeartbeatInterval = 5 * time.Minute

// LoginObserver emits a session heartbeat every 5 minutes and a new-login
// event when the host has been up less than an hour and no new-login has
// been reported in the prior hour (§4.1).
type LoginObserver struct {
	buf *boundedQueue

	lastNewLogin time.Time
	lastZoneName string

	stop chan struct{}
	done chan struct{}
}

func NewLoginObserver() *LoginObserver {
	return &LoginObserver{buf: newBoundedQueue(100), stop: make(chan struct{}), done: make(chan struct{})}
}

func (o *LoginObserver) Name() string { return "login" }

func (o *LoginObserver) Start(ctx context.Context) error {
	go o.run(ctx)
	return nil
}

func (o *LoginObserver) Stop() {
	close(o.stop)
	<-o.done
}

func (o *LoginObserver) Drain(limit int) []model.Activity {
	return o.buf.drain(limit)
}

func (o *LoginObserver) run(ctx context.Context) {
	defer close(o.done)
	ticker := time.NewTicker(loginHeartbeatInterval)
	defer ticker.Stop()
	o.tick(ctx) // emit an immediate heartbeat on startup rather than waiting a full interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stop:
			return
		case <-ticker.C:
			o.tick(ctx)
		}
	}
}

func (o *LoginObserver) tick(ctx context.Context) {
	uptimeSeconds, err := host.UptimeWithContext(ctx)
	if err != nil {
		return
	}
	uptime := time.Duration(uptimeSeconds) * time.Second
	now := time.Now()

	newLogin := uptime < time.Hour && now.Sub(o.lastNewLogin) > time.Hour
	if newLogin {
		o.lastNewLogin = now
	}

	// geoAnomaly proxies "apparent geographic relocation" off the host's
	// configured timezone, the one location signal available without a
	// GeoIP lookup: a new login reporting a different zone than the last
	// one this agent observed reads as the user logging in from elsewhere.
	zoneName, _ := now.Zone()
	geoAnomaly := newLogin && o.lastZoneName != "" && zoneName != o.lastZoneName
	o.lastZoneName = zoneName

	o.buf.push(model.Activity{
		Timestamp: now,
		Kind:      model.KindLogon,
		Details: model.ActivityDetails{
			Logon: &model.LogonDetails{
				NewLogin:      newLogin,
				UptimeSeconds: int64(uptimeSeconds),
				GeoAnomaly:    geoAnomaly,
			},
		},
	})
	metrics.AgentObserverEventsTotal.WithLabelValues("login").Inc()
}
