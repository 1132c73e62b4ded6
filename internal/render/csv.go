package render

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/example/ddv-scanner/internal/domain/availability"
)

var csvHeader = []string{"date", "weekday", "status", "slots", "outcome", "attempts", "last_error"}

// CSV writes one line per date; slots are space separated.
func CSV(w io.Writer, res availability.ScanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range Rows(res) {
		slots := ""
		if r.Status == StatusAvailable {
			slots = strings.ReplaceAll(r.Slots, ", ", " ")
		}
		rec := []string{r.Date, r.Weekday, r.Status, slots, r.Outcome, strconv.Itoa(r.Attempts), r.LastError}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
