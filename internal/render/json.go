package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/example/ddv-scanner/internal/domain/availability"
)

// Document is the JSON shape of a scan result, also served by the web API.
type Document struct {
	ID          string      `json:"id"`
	Month       string      `json:"month"`
	Weekdays    string      `json:"weekdays"`
	StartedAt   time.Time   `json:"started_at"`
	DurationMS  int64       `json:"duration_ms"`
	ActiveDates int         `json:"active_dates"`
	Error       string      `json:"error,omitempty"`
	Dates       []DateEntry `json:"dates"`
}

type DateEntry struct {
	Date      string   `json:"date"`
	Weekday   string   `json:"weekday"`
	Slots     []string `json:"slots"`
	Outcome   string   `json:"outcome"`
	Attempts  int      `json:"attempts"`
	LastError string   `json:"last_error,omitempty"`
}

func NewDocument(res availability.ScanResult) Document {
	doc := Document{
		ID:          res.ID,
		Month:       time.Date(res.Year, res.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		Weekdays:    res.Weekdays.String(),
		StartedAt:   res.StartedAt.UTC(),
		DurationMS:  res.Duration.Milliseconds(),
		ActiveDates: res.ActiveDates,
		Dates:       make([]DateEntry, 0, len(res.Dates)),
	}
	if res.Failure != nil {
		doc.Error = res.Failure.Error()
	}
	for _, d := range res.Dates {
		slots := make([]string, len(d.Slots))
		for i, s := range d.Slots {
			slots[i] = string(s)
		}
		doc.Dates = append(doc.Dates, DateEntry{
			Date:      d.Date.String(),
			Weekday:   d.Date.Weekday().Short(),
			Slots:     slots,
			Outcome:   d.Outcome.Kind.String(),
			Attempts:  d.Outcome.Attempts,
			LastError: d.Outcome.Reason,
		})
	}
	return doc
}

func JSON(w io.Writer, res availability.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(res))
}
