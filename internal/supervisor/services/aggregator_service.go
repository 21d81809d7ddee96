package services

import "context"

// aggregator matches agentcore.Aggregator's lifecycle methods.
type aggregator interface {
	Start(ctx context.Context)
	Stop()
}

// AggregatorService adapts the agent's aggregator to suture.Service.
type AggregatorService struct {
	agg aggregator
}

func NewAggregatorService(agg aggregator) *AggregatorService {
	return &AggregatorService{agg: agg}
}

func (s *AggregatorService) Serve(ctx context.Context) error {
	s.agg.Start(ctx)
	<-ctx.Done()
	s.agg.Stop()
	return ctx.Err()
}

func (s *AggregatorService) String() string {
	return "aggregator"
}
