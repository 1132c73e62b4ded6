package availability

import (
	"sort"
	"time"
)

// DateAvailability is one row of a scan: the date, its bookable slots and
// how the probe for it ended.
type DateAvailability struct {
	Date    CalendarDate
	Slots   []TimeSlot
	Outcome ProbeOutcome
}

// TimedOut reports whether the probe gave up before the provider answered.
// Such a date is displayed as having no availability.
func (d DateAvailability) TimedOut() bool { return d.Outcome.Kind == OutcomeTimedOut }

// ScanResult is the snapshot produced by one scan. Failure is set when the
// provider's active-date list could not be fetched; Dates is empty then,
// which must not be read as "no availability".
type ScanResult struct {
	ID          string
	Year        int
	Month       time.Month
	Weekdays    WeekdaySet
	StartedAt   time.Time
	Duration    time.Duration
	ActiveDates int
	RawDateList string

	Dates   []DateAvailability
	Failure error
}

func (r ScanResult) Failed() bool { return r.Failure != nil }

// Slots maps every scanned date to its slots (empty when none).
func (r ScanResult) Slots() map[CalendarDate][]TimeSlot {
	out := make(map[CalendarDate][]TimeSlot, len(r.Dates))
	for _, d := range r.Dates {
		slots := d.Slots
		if slots == nil {
			slots = []TimeSlot{}
		}
		out[d.Date] = slots
	}
	return out
}

func (r ScanResult) TimedOut() []CalendarDate {
	var out []CalendarDate
	for _, d := range r.Dates {
		if d.TimedOut() {
			out = append(out, d.Date)
		}
	}
	return out
}

// Available lists dates with at least one slot.
func (r ScanResult) Available() []CalendarDate {
	var out []CalendarDate
	for _, d := range r.Dates {
		if len(d.Slots) > 0 {
			out = append(out, d.Date)
		}
	}
	return out
}

// SortDates orders rows by date so the result does not depend on probe
// completion order.
func SortDates(rows []DateAvailability) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
}
