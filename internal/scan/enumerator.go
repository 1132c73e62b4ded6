package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/example/ddv-scanner/internal/domain/availability"
	"github.com/example/ddv-scanner/internal/internaltypes"
	"github.com/example/ddv-scanner/internal/provider"
	"github.com/example/ddv-scanner/internal/transport"
)

const maxRawDateList = 1000

// Poster sends one form request to the provider.
type Poster interface {
	Post(ctx context.Context, form map[string]string) (transport.Response, error)
}

// EnumerationError means the active-date list could not be fetched, which
// is different from a month without qualifying dates.
type EnumerationError struct {
	Year  int
	Month time.Month
	Err   error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("list active dates for %04d-%02d: %v", e.Year, int(e.Month), e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

func (e *EnumerationError) Is(target error) bool { return target == internaltypes.ErrEnumeration }

// Enumeration is the outcome of asking the provider for a month's dates.
type Enumeration struct {
	Candidates []availability.CalendarDate
	// Active counts the dates the provider listed before filtering.
	Active int
	// Raw is the provider answer, truncated, for debugging.
	Raw string
}

type Enumerator struct {
	Transport Poster
	Aliases   provider.Aliases
	Log       *zap.Logger
}

// ListCandidateDates returns the provider's active dates of the month that
// fall on one of weekdays, ascending and without duplicates.
func (e *Enumerator) ListCandidateDates(ctx context.Context, cfg availability.ScanConfig, year int, month time.Month, weekdays availability.WeekdaySet) (Enumeration, error) {
	res, err := e.Transport.Post(ctx, provider.DateListForm(cfg, year, month))
	if err != nil {
		return Enumeration{}, &EnumerationError{Year: year, Month: month, Err: err}
	}

	active, found := e.Aliases.ActiveDates(res.Body)
	if !found {
		return Enumeration{}, &EnumerationError{Year: year, Month: month, Err: provider.ErrNoDateList}
	}
	out := Enumeration{Active: len(active), Raw: rawSnippet(res.Body)}

	seen := make(map[availability.CalendarDate]struct{}, len(active))
	for _, d := range active {
		if d.Year != year || d.Month != month {
			continue
		}
		if !weekdays.Has(d.Weekday()) {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out.Candidates = append(out.Candidates, d)
	}
	sortCalendarDates(out.Candidates)

	if e.Log != nil {
		e.Log.Debug("active dates listed",
			zap.Int("active", out.Active),
			zap.Int("candidates", len(out.Candidates)),
			zap.Stringer("weekdays", weekdays))
	}
	return out, nil
}

func rawSnippet(body map[string]any) string {
	b, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return transport.Truncate(string(b), maxRawDateList)
}

func sortCalendarDates(ds []availability.CalendarDate) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}
