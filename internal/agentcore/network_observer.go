package agentcore

import (
	"context"
	"net"
	"time"

	gnet "github.com/shirou/gopsutil/v4/net"

	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

const (
	networkPollInterval = 15 * time.Second
	networkDeltaFloorMB = 1.0
	externalConnFloor   = 3
)

// suspiciousPorts names the remote ports the network observer treats as a
// threshold trigger on their own, even with no other meaningful delta
// (§4.1).
var suspiciousPorts = map[uint32]struct{}{
	22: {}, 23: {}, 3389: {}, 5900: {}, 8080: {}, 4444: {}, 5555: {},
}

// NetworkObserver polls NIC counters and the connection table via gopsutil,
// emitting an event only when a meaningful threshold fires (§4.1).
type NetworkObserver struct {
	buf *boundedQueue

	prevSent, prevRecv uint64
	haveBaseline       bool

	stop chan struct{}
	done chan struct{}
}

func NewNetworkObserver() *NetworkObserver {
	return &NetworkObserver{buf: newBoundedQueue(1000), stop: make(chan struct{}), done: make(chan struct{})}
}

func (o *NetworkObserver) Name() string { return "network" }

func (o *NetworkObserver) Start(ctx context.Context) error {
	go o.run(ctx)
	return nil
}

func (o *NetworkObserver) Stop() {
	close(o.stop)
	<-o.done
}

func (o *NetworkObserver) Drain(limit int) []model.Activity {
	return o.buf.drain(limit)
}

func (o *NetworkObserver) run(ctx context.Context) {
	defer close(o.done)
	ticker := time.NewTicker(networkPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stop:
			return
		case <-ticker.C:
			o.scan(ctx)
		}
	}
}

func (o *NetworkObserver) scan(ctx context.Context) {
	counters, err := gnet.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		return
	}
	total := counters[0]

	var sentDeltaMB, recvDeltaMB float64
	if o.haveBaseline {
		sentDeltaMB = float64(total.BytesSent-o.prevSent) / (1 << 20)
		recvDeltaMB = float64(total.BytesRecv-o.prevRecv) / (1 << 20)
	}
	o.prevSent, o.prevRecv = total.BytesSent, total.BytesRecv
	o.haveBaseline = true

	conns, err := gnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		conns = nil
	}

	externalCount := 0
	var suspiciousPort uint32
	for _, c := range conns {
		if isExternalAddr(c.Raddr.IP) {
			externalCount++
		}
		if _, bad := suspiciousPorts[c.Raddr.Port]; bad {
			suspiciousPort = c.Raddr.Port
		}
	}

	meaningfulDelta := sentDeltaMB >= networkDeltaFloorMB || recvDeltaMB >= networkDeltaFloorMB
	if !meaningfulDelta && externalCount < externalConnFloor && suspiciousPort == 0 {
		return
	}

	o.buf.push(model.Activity{
		Timestamp: time.Now(),
		Kind:      model.KindNetwork,
		Details: model.ActivityDetails{
			Network: &model.NetworkDetails{
				ExternalConnections: externalCount,
				Port:                int(suspiciousPort),
				SentMB:              sentDeltaMB,
				ReceivedMB:          recvDeltaMB,
			},
		},
	})
	metrics.AgentObserverEventsTotal.WithLabelValues("network").Inc()
}

// isExternalAddr reports whether ip is a remote address outside the
// private/loopback/link-local ranges (§4.1).
func isExternalAddr(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !(parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast())
}
