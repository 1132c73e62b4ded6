package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/example/ddv-scanner/internal/domain/availability"
)

type Options struct {
	// Diagnostics adds probe outcome, attempt count and last error columns,
	// plus a summary footer.
	Diagnostics bool
}

// Write renders res in the given format.
func Write(w io.Writer, f Format, res availability.ScanResult, opts Options) error {
	switch f {
	case FormatJSON:
		return JSON(w, res)
	case FormatCSV:
		return CSV(w, res)
	default:
		return Table(w, res, opts)
	}
}

func Table(w io.Writer, res availability.ScanResult, opts Options) error {
	if res.Failed() {
		_, err := fmt.Fprintf(w, "Could not list active dates for %04d-%02d: %v\n", res.Year, int(res.Month), res.Failure)
		return err
	}
	rows := Rows(res)
	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "No bookable dates for %04d-%02d on %s (%d active dates listed).\n",
			res.Year, int(res.Month), res.Weekdays, res.ActiveDates)
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	header := table.Row{"Date", "Status", "Slots"}
	if opts.Diagnostics {
		header = append(header, "Probe", "Attempts", "Last error")
	}
	t.AppendHeader(header)
	for _, r := range rows {
		row := table.Row{r.Date + " (" + r.Weekday + ")", r.Status, r.Slots}
		if opts.Diagnostics {
			row = append(row, r.Outcome, r.Attempts, r.LastError)
		}
		t.AppendRow(row)
	}
	if opts.Diagnostics {
		t.AppendFooter(table.Row{
			fmt.Sprintf("%d dates", len(rows)),
			fmt.Sprintf("%d available", len(res.Available())),
			fmt.Sprintf("%d timed out", len(res.TimedOut())),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
