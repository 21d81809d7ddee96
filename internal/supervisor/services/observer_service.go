package services

import (
	"context"
	"fmt"
)

// observer matches agentcore.Observer's lifecycle methods without
// importing agentcore, keeping this package usable by any future observer
// implementation.
type observer interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
}

// ObserverService adapts an agentcore.Observer to suture.Service: Start is
// expected to launch its own goroutine and return immediately, so Serve's
// job is only to wait for cancellation and then call Stop.
type ObserverService struct {
	obs observer
}

func NewObserverService(obs observer) *ObserverService {
	return &ObserverService{obs: obs}
}

func (s *ObserverService) Serve(ctx context.Context) error {
	if err := s.obs.Start(ctx); err != nil {
		return fmt.Errorf("observer %s failed to start: %w", s.obs.Name(), err)
	}
	<-ctx.Done()
	s.obs.Stop()
	return ctx.Err()
}

func (s *ObserverService) String() string {
	return "observer:" + s.obs.Name()
}
