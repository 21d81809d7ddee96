package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeAggregator struct {
	startCount atomic.Int32
	stopCount  atomic.Int32
}

func (f *fakeAggregator) Start(ctx context.Context) { f.startCount.Add(1) }
func (f *fakeAggregator) Stop()                     { f.stopCount.Add(1) }

func TestAggregatorServiceStopsOnContextCancel(t *testing.T) {
	agg := &fakeAggregator{}
	svc := NewAggregatorService(agg)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}

	if agg.startCount.Load() != 1 {
		t.Errorf("expected 1 start, got %d", agg.startCount.Load())
	}
	if agg.stopCount.Load() != 1 {
		t.Errorf("expected 1 stop, got %d", agg.stopCount.Load())
	}
}

func TestAggregatorServiceString(t *testing.T) {
	svc := NewAggregatorService(&fakeAggregator{})
	if svc.String() != "aggregator" {
		t.Errorf("expected 'aggregator', got %q", svc.String())
	}
}
