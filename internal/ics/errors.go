package ics

import (
	"fmt"
)

// TransportError reports a failed feed download: either a non-2xx response
// (StatusCode set) or a network-level failure (Err set).
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed call to [%s]: HTTP status %d", redactURL(e.URL), e.StatusCode)
	}
	return fmt.Sprintf("failed call to [%s]: %v", redactURL(e.URL), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports feed text that is not a well-formed calendar.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parse calendar: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }
