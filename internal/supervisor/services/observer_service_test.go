package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeObserver struct {
	name       string
	startErr   error
	startCount atomic.Int32
	stopCount  atomic.Int32
}

func (f *fakeObserver) Name() string { return f.name }
func (f *fakeObserver) Start(ctx context.Context) error {
	f.startCount.Add(1)
	return f.startErr
}
func (f *fakeObserver) Stop() { f.stopCount.Add(1) }

func TestObserverServiceStopsOnContextCancel(t *testing.T) {
	obs := &fakeObserver{name: "file"}
	svc := NewObserverService(obs)

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

	if obs.startCount.Load() != 1 {
		t.Errorf("expected 1 start, got %d", obs.startCount.Load())
	}
	if obs.stopCount.Load() != 1 {
		t.Errorf("expected 1 stop, got %d", obs.stopCount.Load())
	}
}

func TestObserverServiceReturnsErrorOnStartFailure(t *testing.T) {
	startErr := errors.New("permission denied")
	obs := &fakeObserver{name: "process", startErr: startErr}
	svc := NewObserverService(obs)

	err := svc.Serve(context.Background())
	if !errors.Is(err, startErr) {
		t.Errorf("expected wrapped start error, got %v", err)
	}
}

func TestObserverServiceString(t *testing.T) {
	obs := &fakeObserver{name: "network"}
	svc := NewObserverService(obs)
	if svc.String() != "observer:network" {
		t.Errorf("expected 'observer:network', got %q", svc.String())
	}
}
