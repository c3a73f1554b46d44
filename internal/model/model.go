package model

import "time"

// Occurrence is a single concrete instance of a relayed event, after
// recurrence expansion and conversion to the preview timezone.
type Occurrence struct {
	UID string

	// InstanceKey uniquely identifies one occurrence of a recurring event,
	// derived from its local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string
	Status      string

	AllDay bool

	Start time.Time
	End   time.Time
}
