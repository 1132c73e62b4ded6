package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/example/ddv-scanner/internal/domain/availability"
	"github.com/example/ddv-scanner/internal/render"
	"github.com/example/ddv-scanner/internal/scan"
)

type scanFlags struct {
	month       int
	year        int
	weekdays    availability.WeekdaySet
	concurrency int
	retryWindow time.Duration
	output      string
	diagnostics bool
	watch       time.Duration

	product availability.ScanConfig
}

func newScanCmd() *cobra.Command {
	return scanCmd(&scanFlags{})
}

func scanCmd(f *scanFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan one month for bookable time slots",
		Example: `  ddvscan scan --month 3 --weekdays mon,wed,fri,sun
  ddvscan scan --month 3 --output json --retry-window 60s
  ddvscan scan --watch 5m --diagnostics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(f.output)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := f.request(cmd, a)
			if err != nil {
				return err
			}
			s, err := a.scanner()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.watch <= 0 {
				return runOnce(ctx, s, req, out, format, f.diagnostics)
			}
			return watch(ctx, s, req, out, format, *f, a.log)
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func (f *scanFlags) register(flags *pflag.FlagSet) {
	flags.IntVar(&f.month, "month", 0, "month to scan, 1-12 (default: current month)")
	flags.IntVar(&f.year, "year", 0, "year to scan (default: inferred from the month)")
	flags.Var(&f.weekdays, "weekdays", "weekdays to scan, e.g. 0,2,4,6 or mon,wed (default: DDV_WEEKDAYS)")
	flags.IntVar(&f.concurrency, "concurrency", 0, "probes in flight at once, 1-100 (default: DDV_CONCURRENCY)")
	flags.DurationVar(&f.retryWindow, "retry-window", 0, "how long each date is retried (default: DDV_RETRY_WINDOW_SECONDS)")
	flags.StringVarP(&f.output, "output", "o", "table", "output format: table, json or csv")
	flags.BoolVar(&f.diagnostics, "diagnostics", false, "show probe outcome, attempts and last error per date")
	flags.DurationVar(&f.watch, "watch", 0, "rescan at this interval until interrupted")

	flags.StringVar(&f.product.EventCode, "event-code", "", "event code (default: DDV_EVENT_CODE)")
	flags.StringVar(&f.product.PerformanceID, "performance-id", "", "performance id (default: DDV_PERFORMANCE_ID)")
	flags.StringVar(&f.product.PerformanceAK, "performance-ak", "", "performance access key (default: DDV_PERFORMANCE_AK)")
	flags.StringVar(&f.product.PriceTableID, "price-table-id", "", "price table id (default: DDV_PRICE_TABLE_ID)")
}

// request fills unset flags from configuration.
func (f *scanFlags) request(cmd *cobra.Command, a *app) (scan.Request, error) {
	now := time.Now()
	changed := cmd.Flags().Changed

	month := time.Month(f.month)
	if !changed("month") {
		month = now.Month()
	}
	year := f.year
	if year == 0 {
		year = availability.InferYear(month, now)
	}
	days := f.weekdays
	if !changed("weekdays") {
		days = a.cfg.DefaultWeekdays()
	}
	concurrency := f.concurrency
	if !changed("concurrency") {
		concurrency = a.cfg.Concurrency
	}
	window := f.retryWindow
	if !changed("retry-window") {
		window = a.cfg.RetryWindow()
	}

	product := a.cfg.ScanConfig()
	if f.product.EventCode != "" {
		product.EventCode = f.product.EventCode
	}
	if f.product.PerformanceID != "" {
		product.PerformanceID = f.product.PerformanceID
	}
	if f.product.PerformanceAK != "" {
		product.PerformanceAK = f.product.PerformanceAK
	}
	if f.product.PriceTableID != "" {
		product.PriceTableID = f.product.PriceTableID
	}

	req := scan.Request{
		Product:     product,
		Year:        year,
		Month:       month,
		Weekdays:    days,
		Concurrency: concurrency,
		RetryWindow: window,
	}
	return req, req.Validate()
}

func runOnce(ctx context.Context, s *scan.Scanner, req scan.Request, out io.Writer, format render.Format, diagnostics bool) error {
	res, err := s.Run(ctx, req)
	if err != nil && !res.Failed() {
		return err
	}
	if rerr := render.Write(out, format, res, render.Options{Diagnostics: diagnostics}); rerr != nil {
		return rerr
	}
	return err
}

func watch(ctx context.Context, s *scan.Scanner, req scan.Request, out io.Writer, format render.Format, f scanFlags, log *zap.Logger) error {
	ticker := time.NewTicker(f.watch)
	defer ticker.Stop()

	for {
		if format == render.FormatTable {
			fmt.Fprintf(out, "\n%s\n", time.Now().Format(time.DateTime))
		}
		if err := runOnce(ctx, s, req, out, format, f.diagnostics); err != nil {
			log.Warn("scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
