package ics

import (
	"strings"

	ical "github.com/arran4/golang-ical"

	"hostingrelay/internal/source"
)

// Normalize applies src's rules to events in the fixed order
// exclude -> strip -> prefix and returns a new slice. Neither the input slice
// nor the input events are modified; an event whose summary changes is
// replaced by a clone. Events without a SUMMARY pass through untouched.
func Normalize(events []*ical.VEvent, src source.Source) []*ical.VEvent {
	out := make([]*ical.VEvent, 0, len(events))

	for _, ev := range events {
		summary, ok := Summary(ev)
		if !ok {
			out = append(out, ev)
			continue
		}

		// Some platforms copy "Not available" blocks in from other bookings.
		if src.ExcludeSummary != "" && strings.EqualFold(summary, src.ExcludeSummary) {
			continue
		}

		rewritten := summary
		if src.StripPattern != nil {
			rewritten = src.StripPattern.ReplaceAllLiteralString(rewritten, "")
		}
		if src.AddPrefix != "" {
			// "<prefix>- " is what existing subscribers see; keep it literal.
			rewritten = src.AddPrefix + "- " + rewritten
		}

		if rewritten == summary {
			out = append(out, ev)
			continue
		}
		out = append(out, withSummary(ev, rewritten))
	}

	return out
}

// Summary returns the SUMMARY value of ev and whether the property exists.
func Summary(ev *ical.VEvent) (string, bool) {
	p := ev.GetProperty(ical.ComponentPropertySummary)
	if p == nil {
		return "", false
	}
	return p.Value, true
}

// withSummary clones ev with its own property slice and rewrites SUMMARY,
// keeping the property's parameters (LANGUAGE etc.).
func withSummary(ev *ical.VEvent, summary string) *ical.VEvent {
	clone := *ev
	clone.Properties = append([]ical.IANAProperty(nil), ev.Properties...)
	for i := range clone.Properties {
		if clone.Properties[i].IANAToken == string(ical.ComponentPropertySummary) {
			clone.Properties[i].Value = summary
			break
		}
	}
	return &clone
}
