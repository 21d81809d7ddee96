package services

import "context"

// BackgroundService adapts any "Run(ctx) that blocks until ctx is
// canceled" component — e.g. trainer.WeightsRefresher — to suture.Service.
type BackgroundService struct {
	name string
	run  func(ctx context.Context)
}

// NewBackgroundService wraps run, labeling it name for supervisor logs.
func NewBackgroundService(name string, run func(ctx context.Context)) *BackgroundService {
	return &BackgroundService{name: name, run: run}
}

func (s *BackgroundService) Serve(ctx context.Context) error {
	s.run(ctx)
	return ctx.Err()
}

func (s *BackgroundService) String() string {
	return s.name
}
