// Package relay drives the per-source fetch -> parse -> normalize pipeline
// and merges sources into the combined calendar.
package relay

import (
	"context"
	"time"

	ical "github.com/arran4/golang-ical"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"hostingrelay/internal/ics"
	appLog "hostingrelay/internal/log"
	"hostingrelay/internal/source"
)

// DefaultMaxConcurrency bounds the "all" fan-out when Options leaves it unset.
const DefaultMaxConcurrency = 8

// Fetcher downloads raw feed text. *ics.Transport is the production
// implementation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options tunes an Aggregator.
type Options struct {
	// Namespace prefixes the combined calendar's PRODID.
	Namespace string
	// MaxConcurrency caps simultaneous feed loads for "all".
	MaxConcurrency int
}

// Aggregator builds relayed calendars. It holds no per-request state and is
// safe for concurrent use.
type Aggregator struct {
	registry       *source.Registry
	fetcher        Fetcher
	namespace      string
	maxConcurrency int

	metrics *feedMetrics
	tracer  trace.Tracer
}

// NewAggregator creates an Aggregator over an immutable registry.
func NewAggregator(registry *source.Registry, fetcher Fetcher, opts Options) *Aggregator {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Aggregator{
		registry:       registry,
		fetcher:        fetcher,
		namespace:      opts.Namespace,
		maxConcurrency: opts.MaxConcurrency,
		metrics:        newFeedMetrics(),
		tracer:         otel.Tracer(instrumentationName),
	}
}

// Keys returns the configured source keys in registry order.
func (a *Aggregator) Keys() []string {
	return a.registry.Keys()
}

// Relay returns the normalized calendar for key, or the combined calendar of
// every source when key is "all".
//
// Unknown keys fail with *ConfigurationError before any network call. In
// "all" mode the first failing source cancels its siblings and the call
// fails with *AggregationError; a partial calendar is never returned.
func (a *Aggregator) Relay(ctx context.Context, key string) (*ical.Calendar, error) {
	if key == source.AllKey {
		return a.combineAll(ctx)
	}

	src, ok := a.registry.Get(key)
	if !ok {
		return nil, &ConfigurationError{Key: key}
	}

	feed, events, err := a.load(ctx, src)
	if err != nil {
		return nil, err
	}
	return ics.WithEvents(feed, events), nil
}

type loadedFeed struct {
	feed   *ical.Calendar
	events []*ical.VEvent
}

func (a *Aggregator) combineAll(ctx context.Context) (*ical.Calendar, error) {
	sources := a.registry.Sources()
	results := make([]loadedFeed, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrency)

	for i, src := range sources {
		g.Go(func() error {
			// A sibling already failed; the whole call is lost anyway.
			if err := gctx.Err(); err != nil {
				return &AggregationError{Key: src.Key, Err: err}
			}
			feed, events, err := a.load(gctx, src)
			if err != nil {
				return &AggregationError{Key: src.Key, Err: err}
			}
			results[i] = loadedFeed{feed: feed, events: events}
			return nil
		})
	}

	// Wait joins every task, so no fetch outlives this call.
	if err := g.Wait(); err != nil {
		appLog.ErrorContext(ctx, "combine calendars failed", err, "source_count", len(sources))
		return nil, err
	}

	keys := a.registry.Keys()
	combined := ics.NewCombined(ics.CombinedProductID(a.namespace, keys))
	for _, r := range results {
		combined.Add(r.feed, r.events)
	}

	appLog.InfoContext(ctx, "combined calendars", "sources", keys, "event_count", combined.Len())
	return combined.Calendar(), nil
}

// load runs fetch -> parse -> normalize for one source.
func (a *Aggregator) load(ctx context.Context, src source.Source) (*ical.Calendar, []*ical.VEvent, error) {
	ctx, span := a.tracer.Start(ctx, "relay.load",
		trace.WithAttributes(attribute.String("source", src.Key)),
	)
	defer span.End()

	started := time.Now()

	body, err := a.fetcher.Fetch(ctx, src.FeedURL)
	if err != nil {
		a.fail(ctx, span, src.Key, outcomeTransport, started, err)
		return nil, nil, err
	}

	feed, err := ics.Parse(body)
	if err != nil {
		a.fail(ctx, span, src.Key, outcomeParse, started, err)
		return nil, nil, err
	}

	raw := feed.Events()
	events := ics.Normalize(raw, src)

	a.metrics.record(ctx, src.Key, outcomeOK, started)
	span.SetAttributes(attribute.Int("events", len(events)))
	appLog.InfoContext(ctx, "feed loaded",
		"source", src.Key,
		"event_count", len(raw),
		"excluded", len(raw)-len(events),
	)
	return feed, events, nil
}

func (a *Aggregator) fail(ctx context.Context, span trace.Span, key, outcome string, started time.Time, err error) {
	a.metrics.record(ctx, key, outcome, started)
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	appLog.ErrorContext(ctx, "feed load failed", err, "source", key, "outcome", outcome)
}
