package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu     sync.Mutex
	keys   []string
	counts map[string]int
	errs   map[string]error
	calls  int
}

func (f *fakeChecker) Keys() []string { return f.keys }

func (f *fakeChecker) Check(ctx context.Context, key string) (int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("check ran without a deadline")
	}
	if err := f.errs[key]; err != nil {
		return 0, err
	}
	return f.counts[key], nil
}

func TestRunOnce(t *testing.T) {
	checker := &fakeChecker{
		keys:   []string{"air", "vrbo"},
		counts: map[string]int{"air": 4},
		errs:   map[string]error{"vrbo": errors.New("failed call to [https://vrbo.test/...(redacted)]: HTTP status 503")},
	}
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	p := New(checker)
	p.now = func() time.Time { return fixed }

	assert.Empty(t, p.Statuses(), "nothing checked yet")

	p.RunOnce(context.Background())

	want := []Status{
		{Key: "air", OK: true, EventCount: 4, CheckedAt: fixed},
		{Key: "vrbo", OK: false, Error: "failed call to [https://vrbo.test/...(redacted)]: HTTP status 503", CheckedAt: fixed},
	}
	assert.Equal(t, want, p.Statuses())
	assert.Equal(t, 2, checker.calls)
}

func TestStartValidatesSchedule(t *testing.T) {
	p := New(&fakeChecker{})

	assert.Error(t, p.Start(""))
	assert.Error(t, p.Start("every now and then"))

	require.NoError(t, p.Start("@every 1h"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		p.Stop(ctx)
	})
	assert.Error(t, p.Start("@every 1h"), "second start must fail")
}

func TestStopWithoutStart(t *testing.T) {
	assert.NotPanics(t, func() { New(&fakeChecker{}).Stop(context.Background()) })
}
