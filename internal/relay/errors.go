package relay

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a request for a source key that is not
// configured. It is the only client-input failure the relay produces.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown source type: %q", e.Key)
}

// AggregationError wraps the first source failure seen while building the
// combined calendar. The underlying *ics.TransportError or *ics.ParseError
// stays reachable through errors.As.
type AggregationError struct {
	Key string
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("combine calendars: source %q: %v", e.Key, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// IsClientError reports whether err was caused by the caller's input rather
// than by an upstream feed.
func IsClientError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
