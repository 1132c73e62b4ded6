// Package provider describes the ticketing API wire contract: the two form
// requests the scanner sends and how their JSON answers are read.
package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/ddv-scanner/internal/domain/availability"
)

const (
	EventDateList   = "date.list.nt"
	EventTicketList = "ticket.list"
)

// EventAccessKey cuts a performance-level access key down to its event-level
// prefix: "LVR.EVN21.PRF116669" becomes "LVR.EVN21".
func EventAccessKey(performanceAK string) string {
	parts := strings.Split(performanceAK, ".")
	for i, p := range parts {
		if i > 0 && strings.HasPrefix(p, "PRF") {
			return strings.Join(parts[:i], ".")
		}
	}
	return performanceAK
}

func baseForm(cfg availability.ScanConfig, event, dateFrom string) map[string]string {
	return map[string]string{
		"eventName":     event,
		"dateFrom":      dateFrom,
		"eventCode":     cfg.EventCode,
		"performanceId": cfg.PerformanceID,
		"performanceAk": cfg.PerformanceAK,
		"priceTableId":  cfg.PriceTableID,
	}
}

// DateListForm asks for the active dates of one month.
func DateListForm(cfg availability.ScanConfig, year int, month time.Month) map[string]string {
	form := baseForm(cfg, EventDateList, fmt.Sprintf("%04d-%02d-01", year, int(month)))
	form["eventAk"] = EventAccessKey(cfg.PerformanceAK)
	return form
}

// TicketListForm asks for the products (time slots) of one date.
func TicketListForm(cfg availability.ScanConfig, date availability.CalendarDate) map[string]string {
	return baseForm(cfg, EventTicketList, date.String())
}
