package availability

import (
	"errors"
	"sort"
	"time"
)

// ScanConfig identifies the bookable product on the provider side. It is
// shared read-only by every probe of a scan.
type ScanConfig struct {
	EventCode     string
	PerformanceID string
	PerformanceAK string
	PriceTableID  string
}

func (c ScanConfig) Validate() error {
	if c.EventCode == "" {
		return errors.New("event code required")
	}
	if c.PerformanceID == "" {
		return errors.New("performance id required")
	}
	if c.PerformanceAK == "" {
		return errors.New("performance access key required")
	}
	if c.PriceTableID == "" {
		return errors.New("price table id required")
	}
	return nil
}

// MaskedAK shortens the access key for display: "LVR.EV...6669".
func (c ScanConfig) MaskedAK() string {
	ak := c.PerformanceAK
	if len(ak) > 10 {
		return ak[:6] + "..." + ak[len(ak)-4:]
	}
	return ak
}

// TimeSlot is a time-of-day label reported by the provider, e.g. "09:30".
type TimeSlot string

// SortSlots returns the slots ascending with duplicates and blanks removed.
func SortSlots(in []TimeSlot) []TimeSlot {
	seen := make(map[TimeSlot]struct{}, len(in))
	out := make([]TimeSlot, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeTransientFailure
	OutcomeTimedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "ok"
	case OutcomeTransientFailure:
		return "transient failure"
	case OutcomeTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// ProbeOutcome is the result of probing one date. Slots is only meaningful
// for OutcomeSuccess; Reason carries the last transport error otherwise.
type ProbeOutcome struct {
	Kind     OutcomeKind
	Slots    []TimeSlot
	Reason   string
	Attempts int
	Elapsed  time.Duration
}

func Success(slots []TimeSlot) ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeSuccess, Slots: SortSlots(slots)}
}

func TransientFailure(reason string) ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeTransientFailure, Reason: reason}
}

func TimedOut(reason string) ProbeOutcome {
	if reason == "" {
		reason = "timeout"
	}
	return ProbeOutcome{Kind: OutcomeTimedOut, Reason: reason}
}
