package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Weekday numbers days Monday=0 .. Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

func WeekdayOf(w time.Weekday) Weekday {
	return Weekday((int(w) + 6) % 7)
}

func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

func (w Weekday) String() string {
	if !w.Valid() {
		return "Weekday(" + strconv.Itoa(int(w)) + ")"
	}
	return weekdayNames[w]
}

// Short returns "Mon".."Sun".
func (w Weekday) Short() string {
	s := w.String()
	if !w.Valid() {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func parseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		w := Weekday(n)
		if !w.Valid() {
			return 0, fmt.Errorf("weekday %d out of range 0..6", n)
		}
		return w, nil
	}
	if len(s) >= 3 {
		for i, name := range weekdayNames {
			if strings.HasPrefix(s, name) {
				return Weekday(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// WeekdaySet is an immutable set of weekdays.
type WeekdaySet uint8

func NewWeekdaySet(days ...Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		if d.Valid() {
			s |= 1 << uint(d)
		}
	}
	return s
}

// ParseWeekdays accepts a comma separated list of numbers (0=Monday) or
// English day names, e.g. "0,2,4,6" or "mon,wed,fri,sun".
func ParseWeekdays(s string) (WeekdaySet, error) {
	var out WeekdaySet
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		w, err := parseWeekday(part)
		if err != nil {
			return 0, err
		}
		out |= 1 << uint(w)
	}
	return out, nil
}

func (s WeekdaySet) Has(w Weekday) bool {
	return w.Valid() && s&(1<<uint(w)) != 0
}

func (s WeekdaySet) Empty() bool { return s == 0 }

func (s WeekdaySet) Days() []Weekday {
	var out []Weekday
	for w := Monday; w <= Sunday; w++ {
		if s.Has(w) {
			out = append(out, w)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return strings.Join(names, ",")
}

// Set and Type let a *WeekdaySet be used as a command line flag value.
func (s *WeekdaySet) Set(v string) error {
	parsed, err := ParseWeekdays(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *WeekdaySet) Type() string { return "weekdays" }

// CalendarDate is a day without time or zone. Its weekday is always derived.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// ParseDate reads YYYY-MM-DD. A longer timestamp is accepted as long as it
// starts with a date ("2025-03-03T00:00:00").
func ParseDate(s string) (CalendarDate, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d CalendarDate) Weekday() Weekday { return WeekdayOf(d.Time().Weekday()) }

func (d CalendarDate) IsZero() bool { return d == CalendarDate{} }

func (d CalendarDate) Before(o CalendarDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CalendarDate) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *CalendarDate) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// CandidateMonths lists the months a scan is usually pointed at: the
// current month and the next three, plus a fourth once the current month
// is half over. Months are in chronological order starting at now.
func CandidateMonths(now time.Time) []time.Month {
	n := 4
	if now.Day() >= 15 {
		n = 5
	}
	out := make([]time.Month, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, time.Month((int(now.Month())-1+i)%12+1))
	}
	return out
}

// InferYear picks the year of the next occurrence of month, counting the
// current month as this year.
func InferYear(month time.Month, now time.Time) int {
	if month >= now.Month() {
		return now.Year()
	}
	return now.Year() + 1
}
