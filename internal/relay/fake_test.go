package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"hostingrelay/internal/source"
)

// fakeFetcher serves canned responses keyed by URL and counts calls.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]func(ctx context.Context) ([]byte, error)
	calls     map[string]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]func(ctx context.Context) ([]byte, error)),
		calls:     make(map[string]int),
	}
}

func (f *fakeFetcher) serve(url, body string) {
	f.handle(url, func(context.Context) ([]byte, error) { return []byte(body), nil })
}

func (f *fakeFetcher) handle(url string, fn func(ctx context.Context) ([]byte, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = fn
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[url]++
	fn, ok := f.responses[url]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no fake response for %s", url)
	}
	return fn(ctx)
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// feedText builds a small feed whose events carry the given summaries.
func feedText(prodID string, summaries ...string) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + prodID + "\r\n")
	for i, s := range summaries {
		fmt.Fprintf(&b, "BEGIN:VEVENT\r\nUID:%s-%d@test\r\nDTSTAMP:20250101T000000Z\r\n", prodID, i)
		fmt.Fprintf(&b, "DTSTART;VALUE=DATE:202501%02d\r\nDTEND;VALUE=DATE:202501%02d\r\n", 10+i, 11+i)
		b.WriteString("SUMMARY:" + s + "\r\nEND:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func feedURL(key string) string {
	return "https://feeds.test/" + key + ".ics"
}

func mustRegistry(t *testing.T, specs ...source.Spec) *source.Registry {
	t.Helper()
	reg, err := source.NewRegistry(specs)
	require.NoError(t, err)
	return reg
}
