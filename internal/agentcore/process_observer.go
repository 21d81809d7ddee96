package agentcore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

const processPollInterval = 10 * time.Second

// suspiciousProcessKeywords names the process-name fragments that mark a
// process as suspicious regardless of novelty (§4.1).
var suspiciousProcessKeywords = []string{
	"tor", "vpn", "ssh", "ftp", "nmap", "wireshark", "metasploit", "burp", "sqlmap",
}

// ProcessObserver snapshots the running process table on a fixed cadence
// via gopsutil, the OS-native backend the spec prefers over a syscall
// table-walk (§4.1).
type ProcessObserver struct {
	buf *boundedQueue

	mu   sync.Mutex
	seen map[int32]struct{}

	stop chan struct{}
	done chan struct{}
}

func NewProcessObserver() *ProcessObserver {
	return &ProcessObserver{
		buf:  newBoundedQueue(1000),
		seen: make(map[int32]struct{}),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (o *ProcessObserver) Name() string { return "process" }

func (o *ProcessObserver) Start(ctx context.Context) error {
	go o.run(ctx)
	return nil
}

func (o *ProcessObserver) Stop() {
	close(o.stop)
	<-o.done
}

func (o *ProcessObserver) Drain(limit int) []model.Activity {
	return o.buf.drain(limit)
}

func (o *ProcessObserver) run(ctx context.Context) {
	defer close(o.done)
	ticker := time.NewTicker(processPollInterval)
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

func (o *ProcessObserver) scan(ctx context.Context) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		logging.Debug().Err(err).Msg("process observer listing failed")
		return // observer-fault: peers unaffected
	}

	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		suspicious := matchesSuspiciousKeyword(name)

		o.mu.Lock()
		_, known := o.seen[p.Pid]
		if !known {
			o.seen[p.Pid] = struct{}{}
		}
		o.mu.Unlock()

		if known && !suspicious {
			continue
		}

		o.buf.push(model.Activity{
			Timestamp: time.Now(),
			Kind:      model.KindProcess,
			Details: model.ActivityDetails{
				Process: &model.ProcessDetails{
					Name:       name,
					PID:        int(p.Pid),
					Suspicious: suspicious,
				},
			},
		})
		metrics.AgentObserverEventsTotal.WithLabelValues("process").Inc()
	}
}

func matchesSuspiciousKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range suspiciousProcessKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
