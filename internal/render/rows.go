// Package render turns a scan result into a table, JSON or CSV.
package render

import (
	"fmt"
	"strings"

	"github.com/example/ddv-scanner/internal/domain/availability"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or csv)", s)
	}
}

// Row is the display form of one scanned date. Timed out dates show as
// "none", like dates the provider reported without slots; Outcome keeps the
// distinction for diagnostics.
type Row struct {
	Date      string
	Weekday   string
	Status    string
	Slots     string
	Outcome   string
	Attempts  int
	LastError string
}

const (
	StatusAvailable = "available"
	StatusNone      = "none"
)

func Rows(res availability.ScanResult) []Row {
	out := make([]Row, 0, len(res.Dates))
	for _, d := range res.Dates {
		r := Row{
			Date:      d.Date.String(),
			Weekday:   d.Date.Weekday().Short(),
			Status:    StatusNone,
			Slots:     "-",
			Outcome:   d.Outcome.Kind.String(),
			Attempts:  d.Outcome.Attempts,
			LastError: d.Outcome.Reason,
		}
		if len(d.Slots) > 0 {
			r.Status = StatusAvailable
			r.Slots = joinSlots(d.Slots)
		}
		out = append(out, r)
	}
	return out
}

func joinSlots(slots []availability.TimeSlot) string {
	s := make([]string, len(slots))
	for i, t := range slots {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}
