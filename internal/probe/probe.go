// Package probe periodically checks that every configured feed can still be
// fetched and parsed. Only the outcome is kept, never the feed content.
package probe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "hostingrelay/internal/log"
)

const defaultCheckTimeout = 30 * time.Second

// Checker loads one source and reports how many events it produced.
// *relay.Service satisfies it.
type Checker interface {
	Keys() []string
	Check(ctx context.Context, key string) (int, error)
}

// Status is the last known outcome for one source.
type Status struct {
	Key        string    `json:"key"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	EventCount int       `json:"event_count"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Prober runs checks on a cron schedule and remembers the latest Status per
// source.
type Prober struct {
	checker Checker
	timeout time.Duration
	now     func() time.Time

	mu   sync.RWMutex
	last map[string]Status

	cron *cron.Cron
}

// New creates a Prober. It does nothing until Start or RunOnce is called.
func New(checker Checker) *Prober {
	return &Prober{
		checker: checker,
		timeout: defaultCheckTimeout,
		now:     time.Now,
		last:    make(map[string]Status),
	}
}

// Start schedules RunOnce with a standard 5-field cron spec. Overlapping
// runs are skipped.
func (p *Prober) Start(spec string) error {
	if spec == "" {
		return errors.New("probe: empty schedule")
	}
	if p.cron != nil {
		return errors.New("probe: already started")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { p.RunOnce(context.Background()) }); err != nil {
		return err
	}
	p.cron = c
	c.Start()

	appLog.Info("upstream probe scheduled", "schedule", spec, "sources", len(p.checker.Keys()))
	return nil
}

// Stop halts the schedule and waits for a running check to finish or ctx
// to expire.
func (p *Prober) Stop(ctx context.Context) {
	if p.cron == nil {
		return
	}
	done := p.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce checks every source sequentially and records the outcomes.
func (p *Prober) RunOnce(ctx context.Context) {
	for _, key := range p.checker.Keys() {
		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		count, err := p.checker.Check(checkCtx, key)
		cancel()

		st := Status{Key: key, OK: err == nil, EventCount: count, CheckedAt: p.now()}
		if err != nil {
			st.Error = err.Error()
			appLog.Error("upstream probe failed", err, "source", key)
		}

		p.mu.Lock()
		p.last[key] = st
		p.mu.Unlock()
	}
}

// Statuses returns the latest outcome per source, in registry order.
// Sources not yet checked are omitted.
func (p *Prober) Statuses() []Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Status, 0, len(p.last))
	for _, key := range p.checker.Keys() {
		if st, ok := p.last[key]; ok {
			out = append(out, st)
		}
	}
	return out
}
