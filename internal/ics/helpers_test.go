package ics

import (
	"fmt"
	"strings"
	"testing"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/require"
)

// feedText builds a minimal booking-style feed. An empty summary omits the
// SUMMARY property entirely.
func feedText(prodID string, summaries ...string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
	}
	for i, s := range summaries {
		lines = append(lines,
			"BEGIN:VEVENT",
			fmt.Sprintf("UID:event-%d@test", i),
			"DTSTAMP:20250101T000000Z",
			fmt.Sprintf("DTSTART;VALUE=DATE:202501%02d", 10+i),
			fmt.Sprintf("DTEND;VALUE=DATE:202501%02d", 11+i),
		)
		if s != "" {
			lines = append(lines, "SUMMARY:"+s)
		}
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

func mustParse(t *testing.T, text string) *ical.Calendar {
	t.Helper()
	cal, err := Parse([]byte(text))
	require.NoError(t, err)
	return cal
}

// summaries lists SUMMARY values in order; events without one yield "<none>".
func summaries(events []*ical.VEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		s, ok := Summary(ev)
		if !ok {
			s = "<none>"
		}
		out = append(out, s)
	}
	return out
}
