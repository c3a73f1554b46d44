package ics

import (
	"bytes"
	"errors"
	"strings"

	ical "github.com/arran4/golang-ical"
)

const (
	// Version is the only iCalendar version this relay emits.
	Version = "2.0"

	// fallbackProductID is written when an upstream feed declares no PRODID.
	fallbackProductID = "-//hostingrelay//Relayed Calendar//EN"
)

// Parse parses a raw feed into a calendar. Empty or malformed input yields a
// *ParseError.
func Parse(body []byte) (*ical.Calendar, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ParseError{Err: errors.New("empty ICS body")}
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	// The parser tolerates a missing END:VCALENDAR when no component is left
	// open, so a download cut between two events would pass as a shorter feed.
	if !endsWithCalendarEnd(body) {
		return nil, &ParseError{Err: errors.New("truncated calendar: missing END:VCALENDAR")}
	}
	return cal, nil
}

// endsWithCalendarEnd reports whether the last non-blank line of body is
// END:VCALENDAR, ignoring case and trailing whitespace.
func endsWithCalendarEnd(body []byte) bool {
	trimmed := bytes.TrimRight(body, " \t\r\n")
	if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.EqualFold(strings.TrimSpace(string(trimmed)), "END:VCALENDAR")
}

// Serialize renders cal as iCalendar text. VERSION is forced to 2.0 and a
// missing PRODID gets a fallback, since both are required properties. The
// BEGIN/END:VCALENDAR framing is written even when cal holds no events.
func Serialize(cal *ical.Calendar) string {
	if cal == nil {
		cal = ical.NewCalendarFor("hostingrelay")
	}
	cal.SetVersion(Version)
	if ProductID(cal) == "" {
		cal.SetProductId(fallbackProductID)
	}
	return cal.Serialize()
}

// ProductID returns the PRODID of cal, or "" when the feed did not declare one.
func ProductID(cal *ical.Calendar) string {
	for _, p := range cal.CalendarProperties {
		if p.IANAToken == string(ical.PropertyProductId) {
			return p.Value
		}
	}
	return ""
}

// CombinedProductID builds the PRODID of a merged calendar.
func CombinedProductID(namespace string, keys []string) string {
	return namespace + "//Combined Calendars from " + strings.Join(keys, "-") + "//EN"
}

// WithEvents returns a copy of cal whose VEVENTs are replaced by events.
// Calendar properties and non-event components (VTIMEZONE etc.) are kept in
// their original order, followed by events in the given order.
func WithEvents(cal *ical.Calendar, events []*ical.VEvent) *ical.Calendar {
	out := &ical.Calendar{
		CalendarProperties: append([]ical.CalendarProperty(nil), cal.CalendarProperties...),
		Components:         make([]ical.Component, 0, len(cal.Components)),
	}
	for _, comp := range cal.Components {
		if _, isEvent := comp.(*ical.VEvent); isEvent {
			continue
		}
		out.Components = append(out.Components, comp)
	}
	for _, ev := range events {
		out.Components = append(out.Components, ev)
	}
	return out
}

// Combined accumulates events from several feeds into one calendar.
// VTIMEZONE components are deduplicated by TZID (first one wins) so merged
// events keep resolvable TZID references.
type Combined struct {
	productID string
	timezones []ical.Component
	tzids     map[string]struct{}
	events    []*ical.VEvent
}

// NewCombined creates an empty merge target with the given PRODID.
func NewCombined(productID string) *Combined {
	return &Combined{
		productID: productID,
		tzids:     make(map[string]struct{}),
	}
}

// Add appends events after everything added so far and collects feed's
// timezone definitions. feed may be nil when only events are merged.
func (c *Combined) Add(feed *ical.Calendar, events []*ical.VEvent) {
	if feed != nil {
		for _, comp := range feed.Components {
			tz, ok := comp.(*ical.VTimezone)
			if !ok {
				continue
			}
			id := ""
			if p := tz.GetProperty(ical.ComponentPropertyTzid); p != nil {
				id = p.Value
			}
			if _, seen := c.tzids[id]; seen {
				continue
			}
			c.tzids[id] = struct{}{}
			c.timezones = append(c.timezones, tz)
		}
	}
	c.events = append(c.events, events...)
}

// Len reports the number of merged events.
func (c *Combined) Len() int { return len(c.events) }

// Calendar builds the merged calendar: timezones first, then events in the
// order they were added.
func (c *Combined) Calendar() *ical.Calendar {
	cal := ical.NewCalendarFor("hostingrelay")
	cal.SetVersion(Version)
	cal.SetProductId(c.productID)
	cal.Components = append(cal.Components, c.timezones...)
	for _, ev := range c.events {
		cal.AddVEvent(ev)
	}
	return cal
}
