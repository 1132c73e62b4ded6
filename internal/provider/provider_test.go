package provider

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ddv-scanner/internal/domain/availability"
)

var ddv = availability.ScanConfig{
	EventCode:     "GA",
	PerformanceID: "720553",
	PerformanceAK: "LVR.EVN21.PRF116669",
	PriceTableID:  "1",
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestEventAccessKey(t *testing.T) {
	testCases := []struct {
		in, expect string
	}{
		{in: "LVR.EVN21.PRF116669", expect: "LVR.EVN21"},
		{in: "LVR.EVN21.PRF1.X", expect: "LVR.EVN21"},
		{in: "LVR.EVN21", expect: "LVR.EVN21"},
		{in: "PRF1", expect: "PRF1"},
		{in: "", expect: ""},
	}
	for _, test := range testCases {
		assert.Equal(t, test.expect, EventAccessKey(test.in), test.in)
	}
}

func TestForms(t *testing.T) {
	dl := DateListForm(ddv, 2025, time.March)
	assert.Equal(t, map[string]string{
		"eventName":     "date.list.nt",
		"dateFrom":      "2025-03-01",
		"eventCode":     "GA",
		"performanceId": "720553",
		"performanceAk": "LVR.EVN21.PRF116669",
		"priceTableId":  "1",
		"eventAk":       "LVR.EVN21",
	}, dl)

	tl := TicketListForm(ddv, availability.CalendarDate{Year: 2025, Month: time.March, Day: 3})
	assert.Equal(t, "ticket.list", tl["eventName"])
	assert.Equal(t, "2025-03-03", tl["dateFrom"])
	assert.NotContains(t, tl, "eventAk")
}

func TestActiveDatesShapes(t *testing.T) {
	a := DefaultAliases()
	want := []availability.CalendarDate{
		{Year: 2025, Month: time.March, Day: 3},
		{Year: 2025, Month: time.March, Day: 4},
	}

	testCases := []struct {
		name  string
		body  string
		want  []availability.CalendarDate
		found bool
	}{
		{
			name:  "objects",
			body:  `{"api":{"result":{"date":[{"date":"2025-03-03"},{"date":"2025-03-04"},{"nope":1}]}}}`,
			want:  want,
			found: true,
		},
		{
			name:  "bare strings",
			body:  `{"api":{"result":{"dates":["2025-03-03","2025-03-04","garbage"]}}}`,
			want:  want,
			found: true,
		},
		{
			name:  "day field",
			body:  `{"api":{"result":{"date":[{"day":"2025-03-03T00:00:00"}]}}}`,
			want:  want[:1],
			found: true,
		},
		{name: "empty list", body: `{"api":{"result":{"date":[]}}}`, found: true},
		{name: "no list", body: `{"api":{"result":{}}}`},
		{name: "list is not an array", body: `{"api":{"result":{"date":"2025-03-03"}}}`},
		{name: "error envelope", body: `{"api":{"error":{"message":"session expired"}}}`},
		{name: "unexpected", body: `{"unexpected":true}`},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			got, found := a.ActiveDates(decode(t, test.body))
			assert.Equal(t, test.found, found)
			if test.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, test.want, got)
		})
	}
}

func TestAvailableSlotsPerSlot(t *testing.T) {
	a := DefaultAliases()
	body := decode(t, `{"api":{"result":{"product":[
		{"time":"09:00","available":2},
		{"time":"10:00","available":0}
	]}}}`)
	assert.Equal(t, []availability.TimeSlot{"09:00"}, a.AvailableSlots(body))

	quirky := decode(t, `{"api":{"result":{"products":[
		{"startTime":"11:00","remaining":"3"},
		{"start_time":"09:30","available":1},
		{"time":"12:00"},
		{"time":"13:00","available":"lots"},
		{"time":"14:00","available":1.5},
		{"time":"15:00","available":-4},
		{"available":5}
	]}}}`)
	assert.Equal(t, []availability.TimeSlot{"09:30", "11:00"}, a.AvailableSlots(quirky))

	assert.Empty(t, a.AvailableSlots(decode(t, `{"api":{"result":{"product":[]}}}`)))
}

func TestAvailableSlotsListing(t *testing.T) {
	a := DefaultAliases()
	a.CapacityMode = CapacityListing
	body := decode(t, `{"api":{"result":{"product":[{"time":"10:00"},{"time":"09:00","available":0}]}}}`)
	assert.Equal(t, []availability.TimeSlot{"09:00", "10:00"}, a.AvailableSlots(body))

	untimed := decode(t, `{"api":{"result":{"product":[{"ticketType":"DDV","price":0}]}}}`)
	assert.Equal(t, []availability.TimeSlot{UnspecifiedSlot}, a.AvailableSlots(untimed))

	mixed := decode(t, `{"api":{"result":{"product":[{"ticketType":"DDV"},{"time":"11:00"}]}}}`)
	assert.Equal(t, []availability.TimeSlot{"11:00"}, a.AvailableSlots(mixed))

	assert.Empty(t, a.AvailableSlots(decode(t, `{"api":{"result":{"product":[]}}}`)))
}

func TestAvailableSlotsPerSlotIgnoresUntimed(t *testing.T) {
	a := DefaultAliases()
	body := decode(t, `{"api":{"result":{"product":[{"ticketType":"DDV","available":3}]}}}`)
	assert.Empty(t, a.AvailableSlots(body))
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, 2, Capacity(float64(2)))
	assert.Equal(t, 0, Capacity(float64(0)))
	assert.Equal(t, 0, Capacity(nil))
	assert.Equal(t, 0, Capacity(true))
	assert.Equal(t, 7, Capacity(json.Number("7")))
	assert.Equal(t, 4, Capacity(" 4 "))
	assert.Equal(t, 3, Capacity(3))
	assert.Equal(t, 0, Capacity("1.5"))
	assert.Equal(t, 0, Capacity("NaN"))

	assert.Equal(t, math.MaxInt32, Capacity(float64(1e12)))
	assert.Equal(t, math.MaxInt32, Capacity(json.Number("99999999999")))
	assert.Equal(t, math.MaxInt32, Capacity("99999999999"))
	assert.Equal(t, math.MaxInt32, Capacity(math.MaxInt32))
}

func TestLoadAliases(t *testing.T) {
	a, err := LoadAliases("")
	require.NoError(t, err)
	require.Equal(t, DefaultAliases(), a)

	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("slot_list: [offers]\ncapacity_mode: listing\n"), 0o600))
	a, err = LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"offers"}, a.SlotList)
	assert.Equal(t, CapacityListing, a.CapacityMode)
	assert.Equal(t, DefaultAliases().SlotTime, a.SlotTime)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("capacity_mode: sometimes\n"), 0o600))
	_, err = LoadAliases(bad)
	require.Error(t, err)

	_, err = LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
