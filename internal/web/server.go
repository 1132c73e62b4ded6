// Package web serves the scan form and result pages.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/ddv-scanner/internal/domain/availability"
	"github.com/example/ddv-scanner/internal/internaltypes"
	"github.com/example/ddv-scanner/internal/render"
	"github.com/example/ddv-scanner/internal/scan"
)

//go:embed templates/*.html
var fs embed.FS

// Runner runs one scan; *scan.Scanner implements it.
type Runner interface {
	Run(ctx context.Context, req scan.Request) (availability.ScanResult, error)
}

// Defaults pre-fill the form for visitors without saved preferences.
type Defaults struct {
	Product     availability.ScanConfig
	Weekdays    availability.WeekdaySet
	Concurrency int
	RetryWindow time.Duration
}

type Server struct {
	Scanner  Runner
	Defaults Defaults
	Prefs    *PrefStore
	Log      *zap.Logger

	// AutoRefresh makes result pages reload after this long. 0 disables it.
	AutoRefresh time.Duration
	// ScansPerMinute caps the scans one client may start. 0 disables it.
	ScansPerMinute float64

	Now func() time.Time
}

type tmplData struct {
	Title   string
	Flash   string
	Product string

	Months []monthOption
	Days   []dayOption
	Form   formView
	Result *resultView
}

type monthOption struct {
	Value    int
	Year     int
	Label    string
	Selected bool
}

type dayOption struct {
	Value   int
	Label   string
	Checked bool
}

type formView struct {
	Month       int
	Year        int
	Concurrency int
	RetryWindow int
}

type resultView struct {
	ID          string
	Month       string
	Weekdays    string
	Rows        []render.Row
	Available   int
	TimedOut    int
	ActiveDates int
	Took        string
	Raw         string
	Failure     string
}

// scanForm is shared by the HTML form and the JSON API query string.
type scanForm struct {
	Month       int      `form:"month" binding:"required,min=1,max=12"`
	Year        int      `form:"year" binding:"omitempty,min=2000,max=9999"`
	Weekdays    []string `form:"weekday" binding:"required,min=1"`
	Concurrency int      `form:"concurrency" binding:"required,min=1,max=100"`
	RetryWindow int      `form:"retry_window" binding:"required,min=10,max=600"`
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger()))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok\n")
	})
	r.GET("/", s.handleIndex)

	scans := r.Group("/")
	if s.ScansPerMinute > 0 {
		scans.Use(limitScans(newClientLimiters(s.ScansPerMinute), s.logger()))
	}
	scans.GET("/scan", s.handleScan)
	scans.POST("/scan", s.handleScan)
	scans.GET("/api/scan", s.handleAPIScan)

	return r
}

func (s *Server) handleIndex(c *gin.Context) {
	form := formView{
		Concurrency: s.Defaults.Concurrency,
		RetryWindow: int(s.Defaults.RetryWindow / time.Second),
	}
	days := s.Defaults.Weekdays
	if s.Prefs != nil {
		if p, ok := s.Prefs.Load(c.Request); ok {
			form.Month = p.Month
			form.Concurrency = p.Concurrency
			form.RetryWindow = p.RetryWindow
			if set, err := availability.ParseWeekdays(p.Weekdays); err == nil && !set.Empty() {
				days = set
			}
		}
	}
	s.render(c.Writer, http.StatusOK, "templates/index.html", s.page("Scan", form, days))
}

func (s *Server) handleScan(c *gin.Context) {
	var f scanForm
	if err := c.ShouldBind(&f); err != nil {
		s.formError(c, f, "Invalid form: "+err.Error())
		return
	}
	req, err := s.request(f)
	if err != nil {
		s.formError(c, f, err.Error())
		return
	}

	res, err := s.Scanner.Run(c.Request.Context(), req)
	if err != nil && !errors.Is(err, internaltypes.ErrEnumeration) {
		s.formError(c, f, err.Error())
		return
	}

	if s.Prefs != nil {
		p := Prefs{Month: f.Month, Weekdays: req.Weekdays.String(), Concurrency: f.Concurrency, RetryWindow: f.RetryWindow}
		if err := s.Prefs.Save(c.Writer, p); err != nil {
			s.logger().Warn("save preferences", zap.Error(err))
		}
	}
	if s.AutoRefresh > 0 {
		c.Header("Refresh", fmt.Sprintf("%d; url=/scan?%s", int(s.AutoRefresh/time.Second), refreshQuery(f, req)))
	}

	data := s.page("Results", formView{Month: f.Month, Year: req.Year, Concurrency: f.Concurrency, RetryWindow: f.RetryWindow}, req.Weekdays)
	data.Result = newResultView(res)
	status := http.StatusOK
	if res.Failed() {
		status = http.StatusBadGateway
	}
	s.render(c.Writer, status, "templates/results.html", data)
}

func (s *Server) handleAPIScan(c *gin.Context) {
	var f scanForm
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := s.request(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.Scanner.Run(c.Request.Context(), req)
	switch {
	case errors.Is(err, internaltypes.ErrEnumeration):
		c.JSON(http.StatusBadGateway, render.NewDocument(res))
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, render.NewDocument(res))
	}
}

func (s *Server) request(f scanForm) (scan.Request, error) {
	days, err := availability.ParseWeekdays(strings.Join(f.Weekdays, ","))
	if err != nil {
		return scan.Request{}, fmt.Errorf("%w: %v", internaltypes.ErrInvalidRequest, err)
	}
	month := time.Month(f.Month)
	year := f.Year
	if year == 0 {
		year = availability.InferYear(month, s.now())
	}
	return scan.Request{
		Product:     s.Defaults.Product,
		Year:        year,
		Month:       month,
		Weekdays:    days,
		Concurrency: f.Concurrency,
		RetryWindow: time.Duration(f.RetryWindow) * time.Second,
	}, nil
}

func (s *Server) formError(c *gin.Context, f scanForm, msg string) {
	days, _ := availability.ParseWeekdays(strings.Join(f.Weekdays, ","))
	data := s.page("Scan", formView{Month: f.Month, Year: f.Year, Concurrency: f.Concurrency, RetryWindow: f.RetryWindow}, days)
	data.Flash = msg
	s.render(c.Writer, http.StatusBadRequest, "templates/index.html", data)
}

func (s *Server) page(title string, form formView, days availability.WeekdaySet) tmplData {
	now := s.now()
	data := tmplData{
		Title: title,
		Product: fmt.Sprintf("eventCode=%s · performanceId=%s · priceTableId=%s · performanceAk=%s",
			s.Defaults.Product.EventCode, s.Defaults.Product.PerformanceID,
			s.Defaults.Product.PriceTableID, s.Defaults.Product.MaskedAK()),
		Form: form,
	}
	for i, m := range availability.CandidateMonths(now) {
		year := availability.InferYear(m, now)
		selected := int(m) == form.Month || (form.Month == 0 && i == 0)
		data.Months = append(data.Months, monthOption{
			Value:    int(m),
			Year:     year,
			Label:    fmt.Sprintf("%s %d", m, year),
			Selected: selected,
		})
	}
	for w := availability.Monday; w <= availability.Sunday; w++ {
		data.Days = append(data.Days, dayOption{Value: int(w), Label: w.Short(), Checked: days.Has(w)})
	}
	return data
}

func newResultView(res availability.ScanResult) *resultView {
	v := &resultView{
		ID:          res.ID,
		Month:       fmt.Sprintf("%04d-%02d", res.Year, int(res.Month)),
		Weekdays:    res.Weekdays.String(),
		Rows:        render.Rows(res),
		Available:   len(res.Available()),
		TimedOut:    len(res.TimedOut()),
		ActiveDates: res.ActiveDates,
		Took:        res.Duration.Round(time.Millisecond).String(),
		Raw:         res.RawDateList,
	}
	if res.Failure != nil {
		v.Failure = res.Failure.Error()
	}
	return v
}

func refreshQuery(f scanForm, req scan.Request) string {
	q := url.Values{}
	q.Set("month", strconv.Itoa(f.Month))
	q.Set("year", strconv.Itoa(req.Year))
	for _, d := range req.Weekdays.Days() {
		q.Add("weekday", strconv.Itoa(int(d)))
	}
	q.Set("concurrency", strconv.Itoa(f.Concurrency))
	q.Set("retry_window", strconv.Itoa(f.RetryWindow))
	return q.Encode()
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data tmplData) {
	t, err := template.ParseFS(fs,
		"templates/base.html",
		name,
	)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		s.logger().Error("render template", zap.String("template", name), zap.Error(err))
	}
}

// Start serves h on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
