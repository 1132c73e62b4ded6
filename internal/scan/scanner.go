// Package scan runs availability scans: list a month's active dates, then
// probe each qualifying date under a concurrency cap.
package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/example/ddv-scanner/internal/domain/availability"
	"github.com/example/ddv-scanner/internal/internaltypes"
	"github.com/example/ddv-scanner/internal/provider"
)

const (
	MaxConcurrency = 100
	MaxRetryWindow = 10 * time.Minute
)

// Session is a provider connection pool that lives for one scan.
type Session interface {
	Poster
	Close()
}

// Request holds everything one scan needs.
type Request struct {
	Product     availability.ScanConfig
	Year        int
	Month       time.Month
	Weekdays    availability.WeekdaySet
	Concurrency int
	RetryWindow time.Duration
}

func (r Request) Validate() error {
	if err := r.Product.Validate(); err != nil {
		return fmt.Errorf("%w: %v", internaltypes.ErrInvalidRequest, err)
	}
	if r.Month < time.January || r.Month > time.December {
		return fmt.Errorf("%w: month must be 1..12", internaltypes.ErrInvalidRequest)
	}
	if r.Year < 1 {
		return fmt.Errorf("%w: year required", internaltypes.ErrInvalidRequest)
	}
	if r.Weekdays.Empty() {
		return fmt.Errorf("%w: at least one weekday required", internaltypes.ErrInvalidRequest)
	}
	if r.Concurrency < 1 || r.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: concurrency must be 1..%d", internaltypes.ErrInvalidRequest, MaxConcurrency)
	}
	if r.RetryWindow <= 0 || r.RetryWindow > MaxRetryWindow {
		return fmt.Errorf("%w: retry window must be within (0, %s]", internaltypes.ErrInvalidRequest, MaxRetryWindow)
	}
	return nil
}

// Scanner is safe for concurrent use: every Run opens its own Session.
type Scanner struct {
	// Open returns a fresh session for one scan. It is closed when Run
	// returns.
	Open    func() Session
	Aliases provider.Aliases
	Log     *zap.Logger

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

func (s *Scanner) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Run performs one scan and blocks until every probe has finished.
//
// If the active-date list cannot be fetched, Run returns an empty result
// whose Failure is an *EnumerationError, together with that same error.
// Individual probe failures never fail the scan: such dates show up with an
// empty slot list and their outcome recorded.
func (s *Scanner) Run(ctx context.Context, req Request) (availability.ScanResult, error) {
	if err := req.Validate(); err != nil {
		return availability.ScanResult{}, err
	}

	result := availability.ScanResult{
		ID:        uuid.NewString(),
		Year:      req.Year,
		Month:     req.Month,
		Weekdays:  req.Weekdays,
		StartedAt: time.Now(),
	}
	log := s.logger().With(
		zap.String("scan_id", result.ID),
		zap.String("month", fmt.Sprintf("%04d-%02d", req.Year, int(req.Month))),
	)

	ctx, span := tracer.Start(ctx, "scan.run", trace.WithAttributes(
		attribute.String("ddv.scan_id", result.ID),
		attribute.Int("ddv.year", req.Year),
		attribute.Int("ddv.month", int(req.Month)),
		attribute.Int("ddv.concurrency", req.Concurrency),
	))
	defer span.End()
	defer func() {
		scanDuration.Record(ctx, time.Since(result.StartedAt).Seconds())
	}()

	session := s.Open()
	defer session.Close()

	enum := &Enumerator{Transport: session, Aliases: s.Aliases, Log: log}
	en, err := enum.ListCandidateDates(ctx, req.Product, req.Year, req.Month, req.Weekdays)
	if err != nil {
		log.Warn("enumeration failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "enumeration failed")
		result.Failure = err
		result.Duration = time.Since(result.StartedAt)
		return result, err
	}
	result.ActiveDates = en.Active
	result.RawDateList = en.Raw

	log.Info("scan started",
		zap.Int("active_dates", en.Active),
		zap.Int("candidates", len(en.Candidates)),
		zap.Int("concurrency", req.Concurrency),
		zap.Duration("retry_window", req.RetryWindow))

	prober := &Prober{
		Transport:  session,
		Aliases:    s.Aliases,
		Log:        log,
		MinBackoff: s.MinBackoff,
		MaxBackoff: s.MaxBackoff,
	}
	result.Dates = probeAll(ctx, prober, req, en.Candidates)
	result.Duration = time.Since(result.StartedAt)

	log.Info("scan finished",
		zap.Int("available", len(result.Available())),
		zap.Int("timed_out", len(result.TimedOut())),
		zap.Duration("took", result.Duration))
	return result, nil
}

// probeAll probes every date, admitting at most req.Concurrency probes at a
// time. A probe holds its slot from start to finish, whatever the outcome.
func probeAll(ctx context.Context, p *Prober, req Request, dates []availability.CalendarDate) []availability.DateAvailability {
	gate := semaphore.NewWeighted(int64(req.Concurrency))
	rows := make([]availability.DateAvailability, len(dates))

	var wg sync.WaitGroup
	for i, d := range dates {
		rows[i].Date = d
		if err := gate.Acquire(ctx, 1); err != nil {
			rows[i].Outcome = availability.TimedOut(err.Error())
			continue
		}
		wg.Add(1)
		go func(i int, d availability.CalendarDate) {
			defer wg.Done()
			defer gate.Release(1)
			out := p.Probe(ctx, req.Product, d, req.RetryWindow)
			recordOutcome(ctx, out.Kind)
			rows[i].Outcome = out
			if out.Kind == availability.OutcomeSuccess {
				rows[i].Slots = out.Slots
			}
		}(i, d)
	}
	wg.Wait()

	for i := range rows {
		if rows[i].Slots == nil {
			rows[i].Slots = []availability.TimeSlot{}
		}
	}
	availability.SortDates(rows)
	return rows
}
