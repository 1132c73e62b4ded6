// Package transport posts form requests to the ticketing API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/titanous/json5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint  = "https://www.ticketlouvre.fr/louvre/api/RemotingService.cfc?method=doJson"
	DefaultOrigin    = "https://www.ticketlouvre.fr"
	DefaultReferer   = "https://www.ticketlouvre.fr/"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultLanguage  = "fr-FR,fr;q=0.9,en;q=0.8"

	maxErrorBody = 500
)

type Options struct {
	Endpoint       string
	Origin         string
	Referer        string
	UserAgent      string
	AcceptLanguage string

	Timeout  time.Duration
	MaxConns int
	// RateLimit caps requests per second across the client. 0 disables it.
	RateLimit float64

	Logger *zap.Logger
}

// Response is a decoded provider answer.
type Response struct {
	Status int
	Body   map[string]any
}

// Error is returned for every failed Post: a network failure (Status 0),
// a rejected request (Status >= 400) or an undecodable body.
type Error struct {
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status >= 400:
		return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("provider request failed: %v", e.Err)
	default:
		return fmt.Sprintf("provider request failed (status=%d)", e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Client owns one connection pool. Probes of a scan share a Client; it is
// safe for concurrent use and must be closed when the scan ends.
type Client struct {
	rc      *resty.Client
	opts    Options
	limiter *rate.Limiter
	log     *zap.Logger
	tracer  trace.Tracer
}

func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 100
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rc := resty.New().
		SetTransport(&http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          opts.MaxConns,
			MaxIdleConnsPerHost:   opts.MaxConns,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}).
		SetTimeout(opts.Timeout)

	c := &Client{
		rc:     rc,
		opts:   opts,
		log:    log,
		tracer: otel.Tracer("github.com/example/ddv-scanner/internal/transport"),
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// Close releases the pooled connections.
func (c *Client) Close() {
	c.rc.GetClient().CloseIdleConnections()
}

func (c *Client) fullHeaders() map[string]string {
	h := c.bareHeaders()
	if c.opts.Origin != "" {
		h["Origin"] = c.opts.Origin
	}
	if c.opts.Referer != "" {
		h["Referer"] = c.opts.Referer
	}
	if c.opts.AcceptLanguage != "" {
		h["Accept-Language"] = c.opts.AcceptLanguage
	}
	return h
}

// bareHeaders is the reduced set some deployments insist on.
func (c *Client) bareHeaders() map[string]string {
	return map[string]string{
		"User-Agent":   c.opts.UserAgent,
		"Accept":       "application/json, text/plain, */*",
		"Content-Type": "application/x-www-form-urlencoded; charset=UTF-8",
	}
}

// Post sends one form request. A rejected request (status >= 400) is
// retried once without Origin, Referer and Accept-Language; there is no
// other retry.
func (c *Client) Post(ctx context.Context, form map[string]string) (Response, error) {
	ctx, span := c.tracer.Start(ctx, "provider.post",
		trace.WithAttributes(attribute.String("ddv.event_name", form["eventName"])))
	defer span.End()

	resp, err := c.post(ctx, form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider request failed")
		return resp, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	return resp, nil
}

func (c *Client) post(ctx context.Context, form map[string]string) (Response, error) {
	res, err := c.send(ctx, form, c.fullHeaders())
	if err != nil {
		return Response{}, &Error{Err: err}
	}
	if res.StatusCode() >= 400 {
		c.log.Debug("provider rejected request, retrying with bare headers",
			zap.String("event", form["eventName"]),
			zap.String("date_from", form["dateFrom"]),
			zap.Int("status", res.StatusCode()))
		res, err = c.send(ctx, form, c.bareHeaders())
		if err != nil {
			return Response{}, &Error{Err: err}
		}
		if res.StatusCode() >= 400 {
			return Response{Status: res.StatusCode()}, &Error{
				Status: res.StatusCode(),
				Body:   Truncate(res.String(), maxErrorBody),
			}
		}
	}

	body, err := decodeBody(res.Header().Get("Content-Type"), res.Body())
	if err != nil {
		return Response{Status: res.StatusCode()}, &Error{
			Status: res.StatusCode(),
			Body:   Truncate(res.String(), maxErrorBody),
			Err:    err,
		}
	}
	return Response{Status: res.StatusCode(), Body: body}, nil
}

func (c *Client) send(ctx context.Context, form map[string]string, headers map[string]string) (*resty.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return c.rc.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetFormData(form).
		Post(c.opts.Endpoint)
}

// decodeBody parses a JSON object. Some deployments label JSON as text/html
// or prefix it with a BOM, so when the declared type is not JSON, or strict
// decoding fails, the raw text is parsed again leniently.
func decodeBody(contentType string, raw []byte) (map[string]any, error) {
	var out map[string]any
	if resty.IsJSONType(contentType) {
		if err := json.Unmarshal(raw, &out); err == nil && out != nil {
			return out, nil
		}
		out = nil
	}
	text := bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	if err := json5.Unmarshal(text, &out); err != nil {
		return nil, fmt.Errorf("decode response (content-type %q): %w", contentType, err)
	}
	if out == nil {
		return nil, fmt.Errorf("decode response: not a JSON object")
	}
	return out, nil
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
