package ics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	appLog "hostingrelay/internal/log"
)

const (
	acceptCalendar = "text/calendar"
	userAgent      = "hostingrelay/1 (+ical relay)"
)

// Transport downloads raw feed text. It keeps no state between calls: no
// conditional requests, no on-disk cache, no retries.
type Transport struct {
	client *http.Client
}

// NewTransport creates a Transport. A zero timeout keeps the platform default
// of the underlying http.Client (no deadline beyond the request context).
func NewTransport(timeout time.Duration) *Transport {
	return &Transport{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewTransportWithClient wraps an existing client, e.g. one from httptest.
func NewTransportWithClient(client *http.Client) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{client: client}
}

// Fetch performs a single GET of url and returns the response body. Any
// failure is a *TransportError.
func (t *Transport) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, &TransportError{URL: url, Err: errors.New("source URL is empty")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("Accept", acceptCalendar)
	req.Header.Set("User-Agent", userAgent)

	appLog.Debug("ics fetch start", "url", redactURL(url))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain so the connection can be reused; the body itself is discarded.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	appLog.Debug("ics fetch success", "url", redactURL(url), "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// redactURL hides sensitive parts of an ICS URL for logging purposes.
// Booking platforms put access tokens in the path or query, so only the
// scheme and host are kept:
//
//	https://www.airbnb.com/calendar/ical/123.ics?s=abcd
//	-> https://www.airbnb.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	// Find scheme separator.
	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "ics://...(redacted)"
	}

	// Find next slash (or query) after host.
	j := i
	for j < len(u) && u[j] != '/' && u[j] != '?' {
		j++
	}

	return u[:j] + redactedSuffix
}
