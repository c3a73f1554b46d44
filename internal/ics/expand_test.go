package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarOf(events ...string) string {
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//x//EN\r\n" +
		strings.Join(events, "") +
		"END:VCALENDAR\r\n"
}

func vevent(lines ...string) string {
	return "BEGIN:VEVENT\r\n" + strings.Join(lines, "\r\n") + "\r\nEND:VEVENT\r\n"
}

var january = ExpandConfig{
	DisplayLocation: time.UTC,
	RangeStart:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	RangeEnd:        time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
}

func TestParseEvents(t *testing.T) {
	cal := mustParse(t, calendarOf(
		vevent("UID:stay-1", "DTSTAMP:20250101T000000Z", "DTSTART;VALUE=DATE:20250110", "DTEND;VALUE=DATE:20250112", "SUMMARY:Jeff Jones"),
		vevent("DTSTAMP:20250101T000000Z", "DTSTART;VALUE=DATE:20250115", "SUMMARY:no uid"),
		vevent("UID:stay-2", "DTSTAMP:20250101T000000Z", "DTSTART;VALUE=DATE:20250120", "SUMMARY:single day"),
	))

	events := ParseEvents(cal)
	require.Len(t, events, 2)

	assert.Equal(t, "stay-1", events[0].UID)
	assert.Equal(t, "Jeff Jones", events[0].Summary)
	assert.True(t, events[0].AllDay)
	assert.Equal(t, 48*time.Hour, events[0].End.Sub(events[0].Start))

	// Missing DTEND on an all-day block covers one day.
	assert.Equal(t, "stay-2", events[1].UID)
	assert.Equal(t, 24*time.Hour, events[1].End.Sub(events[1].Start))
}

func TestExpandOccurrences(t *testing.T) {
	t.Run("single events inside and outside the window", func(t *testing.T) {
		cal := mustParse(t, calendarOf(
			vevent("UID:late", "DTSTAMP:20250101T000000Z", "DTSTART:20250120T150000Z", "DTEND:20250120T160000Z", "SUMMARY:late"),
			vevent("UID:early", "DTSTAMP:20250101T000000Z", "DTSTART:20250105T150000Z", "DTEND:20250105T160000Z", "SUMMARY:early"),
			vevent("UID:march", "DTSTAMP:20250101T000000Z", "DTSTART:20250305T150000Z", "DTEND:20250305T160000Z", "SUMMARY:march"),
		))

		res, err := ExpandOccurrences(ParseEvents(cal), january)
		require.NoError(t, err)
		require.Len(t, res.Occurrences, 2)
		assert.Equal(t, "early", res.Occurrences[0].Summary)
		assert.Equal(t, "late", res.Occurrences[1].Summary)
		assert.Empty(t, res.TruncatedEvents)
	})

	t.Run("rrule with exdate", func(t *testing.T) {
		cal := mustParse(t, calendarOf(
			vevent("UID:weekly", "DTSTAMP:20250101T000000Z",
				"DTSTART:20250106T100000Z", "DTEND:20250106T110000Z",
				"RRULE:FREQ=WEEKLY;COUNT=3", "EXDATE:20250113T100000Z", "SUMMARY:cleaning"),
		))

		res, err := ExpandOccurrences(ParseEvents(cal), january)
		require.NoError(t, err)
		require.Len(t, res.Occurrences, 2)
		assert.True(t, res.Occurrences[0].Start.Equal(time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)))
		assert.True(t, res.Occurrences[1].Start.Equal(time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)))
		assert.Equal(t, time.Hour, res.Occurrences[1].End.Sub(res.Occurrences[1].Start))
	})

	t.Run("override replaces one instance", func(t *testing.T) {
		cal := mustParse(t, calendarOf(
			vevent("UID:weekly", "DTSTAMP:20250101T000000Z",
				"DTSTART:20250106T100000Z", "DTEND:20250106T110000Z",
				"RRULE:FREQ=WEEKLY;COUNT=2", "SUMMARY:cleaning"),
			vevent("UID:weekly", "DTSTAMP:20250101T000000Z", "RECURRENCE-ID:20250113T100000Z",
				"DTSTART:20250113T140000Z", "DTEND:20250113T150000Z", "SUMMARY:late cleaning"),
		))

		res, err := ExpandOccurrences(ParseEvents(cal), january)
		require.NoError(t, err)
		require.Len(t, res.Occurrences, 2)
		assert.Equal(t, "cleaning", res.Occurrences[0].Summary)
		assert.Equal(t, "late cleaning", res.Occurrences[1].Summary)
		assert.Equal(t, 14, res.Occurrences[1].Start.Hour())
	})

	t.Run("cap truncates runaway rules", func(t *testing.T) {
		cal := mustParse(t, calendarOf(
			vevent("UID:daily", "DTSTAMP:20250101T000000Z",
				"DTSTART:20250101T080000Z", "DTEND:20250101T090000Z",
				"RRULE:FREQ=DAILY", "SUMMARY:daily"),
		))

		cfg := january
		cfg.MaxOccurrencesPerEvent = 5
		res, err := ExpandOccurrences(ParseEvents(cal), cfg)
		require.NoError(t, err)
		assert.Len(t, res.Occurrences, 5)
		assert.Equal(t, []string{"daily"}, res.TruncatedEvents)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := ExpandOccurrences(nil, ExpandConfig{
			RangeStart: january.RangeEnd,
			RangeEnd:   january.RangeStart,
		})
		assert.Error(t, err)
	})
}
