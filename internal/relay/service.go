package relay

import (
	"context"

	"hostingrelay/internal/ics"
)

// Service is the single entry point for front ends (HTTP, CLI). It turns a
// source key into serialized iCal text and carries no transport logic.
type Service struct {
	agg *Aggregator
}

// NewService wraps an Aggregator.
func NewService(agg *Aggregator) *Service {
	return &Service{agg: agg}
}

// GetRelay returns the relayed calendar for key as iCal text. Errors are
// *ConfigurationError, *AggregationError, *ics.TransportError or
// *ics.ParseError.
func (s *Service) GetRelay(ctx context.Context, key string) (string, error) {
	cal, err := s.agg.Relay(ctx, key)
	if err != nil {
		return "", err
	}
	return ics.Serialize(cal), nil
}

// Preview expands the relayed calendar for key into concrete occurrences
// within cfg's window.
func (s *Service) Preview(ctx context.Context, key string, cfg ics.ExpandConfig) (ics.ExpandResult, error) {
	cal, err := s.agg.Relay(ctx, key)
	if err != nil {
		return ics.ExpandResult{}, err
	}
	return ics.ExpandOccurrences(ics.ParseEvents(cal), cfg)
}

// Check loads key once and reports how many events survived normalization.
// Upstream probes use it; nothing is retained.
func (s *Service) Check(ctx context.Context, key string) (int, error) {
	cal, err := s.agg.Relay(ctx, key)
	if err != nil {
		return 0, err
	}
	return len(cal.Events()), nil
}

// Keys returns the configured source keys in registry order.
func (s *Service) Keys() []string {
	return s.agg.Keys()
}
