package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/example/ddv-scanner/internal/domain/availability"
)

// result returns the api.result object of a response envelope, or nil.
func result(body map[string]any) map[string]any {
	api, _ := body["api"].(map[string]any)
	res, _ := api["result"].(map[string]any)
	return res
}

func lookup(m map[string]any, names []string) (any, bool) {
	for _, n := range names {
		if v, ok := m[n]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ActiveDates reads the active-date list of a date.list.nt answer. Both the
// object form ([{"date": "2025-03-03"}]) and the bare form (["2025-03-03"])
// are accepted. Items without a parseable date are skipped. found is false
// when the answer carries no date list at all, which is not the same as an
// empty one.
func (a Aliases) ActiveDates(body map[string]any) (dates []availability.CalendarDate, found bool) {
	raw, ok := lookup(result(body), a.DateList)
	if !ok {
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]availability.CalendarDate, 0, len(items))
	for _, it := range items {
		var s string
		switch v := it.(type) {
		case string:
			s = v
		case map[string]any:
			dv, ok := lookup(v, a.DateValue)
			if !ok {
				continue
			}
			s, _ = dv.(string)
		}
		d, err := availability.ParseDate(s)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, true
}

// ErrNoDateList means a date-list answer had no recognizable list of dates.
var ErrNoDateList = errors.New("answer carries no active-date list")

// UnspecifiedSlot stands for availability reported without any time label.
const UnspecifiedSlot availability.TimeSlot = "any time"

// AvailableSlots reads the bookable time slots of a ticket.list answer,
// sorted ascending. A missing slot list yields no slots. In listing mode a
// non-empty list whose items carry no time yields UnspecifiedSlot.
func (a Aliases) AvailableSlots(body map[string]any) []availability.TimeSlot {
	raw, ok := lookup(result(body), a.SlotList)
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []availability.TimeSlot
	for _, it := range items {
		p, ok := it.(map[string]any)
		if !ok {
			continue
		}
		tv, _ := lookup(p, a.SlotTime)
		label := scalarString(tv)
		if label == "" {
			continue
		}
		if a.CapacityMode != CapacityListing {
			cv, _ := lookup(p, a.Capacity)
			if Capacity(cv) <= 0 {
				continue
			}
		}
		out = append(out, availability.TimeSlot(label))
	}
	if a.CapacityMode == CapacityListing && len(out) == 0 && len(items) > 0 {
		return []availability.TimeSlot{UnspecifiedSlot}
	}
	return availability.SortSlots(out)
}

// Capacity interprets a capacity field. Only whole positive numbers count;
// anything else, including a missing field, is zero. Huge values are
// clamped to math.MaxInt32.
func Capacity(v any) int {
	switch n := v.(type) {
	case float64:
		return wholeCapacity(n)
	case int:
		return wholeCapacity(float64(n))
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return wholeCapacity(f)
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return wholeCapacity(f)
		}
	}
	return 0
}

func wholeCapacity(f float64) int {
	if f <= 0 || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case nil, bool, map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
