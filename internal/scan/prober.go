package scan

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/example/ddv-scanner/internal/domain/availability"
	"github.com/example/ddv-scanner/internal/provider"
)

const (
	DefaultMinBackoff = 500 * time.Millisecond
	DefaultMaxBackoff = time.Second
)

// Prober asks the provider for one date's time slots until it gets an
// answer or the retry window closes.
type Prober struct {
	Transport Poster
	Aliases   provider.Aliases
	Log       *zap.Logger

	// MinBackoff and MaxBackoff bound the random pause between attempts.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// jitter returns a backoff that yields uniformly random pauses in
// [lo, hi] and never gives up on its own; the retry window is enforced by
// Probe.
func jitter(lo, hi time.Duration) backoff.BackOff {
	if lo <= 0 {
		lo = DefaultMinBackoff
	}
	if hi <= 0 {
		hi = DefaultMaxBackoff
	}
	if hi < lo {
		hi = lo
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = (lo + hi) / 2
	b.RandomizationFactor = float64(hi-lo) / float64(lo+hi)
	b.Multiplier = 1
	b.MaxInterval = hi
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Probe runs the retry loop for date. A successful answer ends it at once,
// even when it lists no bookable slot: that is the provider saying "none".
// Transport failures are retried after a random pause until window has
// elapsed; the probe then reports TimedOut with the last failure reason.
func (p *Prober) Probe(ctx context.Context, cfg availability.ScanConfig, date availability.CalendarDate, window time.Duration) availability.ProbeOutcome {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Stringer("date", date))

	start := time.Now()
	deadline := start.Add(window)
	pause := jitter(p.MinBackoff, p.MaxBackoff)

	var (
		attempts int
		reason   string
	)
	for time.Now().Before(deadline) {
		attempts++
		out := p.attempt(ctx, cfg, date)
		recordAttempt(ctx, out.Kind)
		if out.Kind == availability.OutcomeSuccess {
			out.Attempts = attempts
			out.Elapsed = time.Since(start)
			log.Debug("probe answered", zap.Int("attempts", attempts), zap.Int("slots", len(out.Slots)))
			return out
		}
		reason = out.Reason
		log.Debug("probe attempt failed", zap.Int("attempt", attempts), zap.String("reason", reason))

		if err := sleep(ctx, pause.NextBackOff()); err != nil {
			reason = err.Error()
			break
		}
	}

	out := availability.TimedOut(reason)
	out.Attempts = attempts
	out.Elapsed = time.Since(start)
	log.Info("probe timed out", zap.Int("attempts", attempts), zap.String("last_error", out.Reason))
	return out
}

// attempt performs one fresh ticket.list request.
func (p *Prober) attempt(ctx context.Context, cfg availability.ScanConfig, date availability.CalendarDate) availability.ProbeOutcome {
	res, err := p.Transport.Post(ctx, provider.TicketListForm(cfg, date))
	if err != nil {
		return availability.TransientFailure(err.Error())
	}
	return availability.Success(p.Aliases.AvailableSlots(res.Body))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
