package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-records/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
	"github.com/jwalitptl/patient-records/pkg/metrics"
)

const (
	HeaderXRequestID = "X-Request-ID"
	mimeJSON         = "application/json"
)

// Config configures the store client
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   int
	BreakerTimeout    time.Duration
}

// Option customises a Client
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock replaces the time source used for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client talks to the remote patient collection over HTTP
type Client struct {
	base    *url.URL
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid store base url %q: scheme and host are required", cfg.BaseURL)
	}

	c := &Client{
		base:    base,
		timeout: cfg.Timeout,
		http:    &http.Client{},
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(limit, burst)

	c.breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "patient-store",
		MaxFailures: cfg.BreakerFailures,
		Timeout:     cfg.BreakerTimeout,
		IsFailure: func(err error) bool {
			kind := apperrors.KindOf(err)
			return kind == apperrors.KindUnreachable || kind == apperrors.KindServer
		},
		OnStateChange: func(name, from, to string) {
			c.log.Warn().Str("breaker", name).Str("from", from).Str("to", to).Msg("store circuit breaker state changed")
			c.metrics.SetBreakerOpen(name, to == "open")
		},
	})

	return c, nil
}

type request struct {
	operation string
	method    string
	id        string
	query     url.Values
	body      interface{}
}

func (c *Client) endpoint(id string, query url.Values) string {
	u := *c.base
	if id != "" {
		u = *u.JoinPath(id)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request and decodes a 2xx body into out. Every failure comes
// back as an *errors.AppError.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	target := c.endpoint(req.id, req.query)
	status := 0

	err := c.breaker.Execute(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.Unreachable(err)
		}

		var body io.Reader
		if req.body != nil {
			payload, err := json.Marshal(req.body)
			if err != nil {
				return &apperrors.AppError{Kind: apperrors.KindInvalidArgument, Message: "failed to encode request", Err: err}
			}
			body = bytes.NewReader(payload)
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
		if err != nil {
			return &apperrors.AppError{Kind: apperrors.KindUnknown, Message: "failed to create request", Err: err}
		}
		httpReq.Header.Set("Accept", mimeJSON)
		if body != nil {
			httpReq.Header.Set("Content-Type", mimeJSON)
		}
		httpReq.Header.Set(HeaderXRequestID, uuid.New().String())

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return apperrors.Unreachable(err)
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return apperrors.FromStatus(resp.StatusCode, http.StatusText(resp.StatusCode))
		}

		if out == nil {
			return nil
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.Unreachable(err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &apperrors.AppError{Kind: apperrors.KindUnknown, Status: status, Message: "Invalid response from server", Err: err}
		}
		return nil
	})
	if err == circuitbreaker.ErrOpen {
		err = apperrors.Unreachable(err)
	}

	took := time.Since(start)
	outcome := "ok"
	if err != nil {
		outcome = apperrors.KindOf(err).String()
	}
	c.metrics.Observe(req.operation, outcome, took)

	ev := c.log.Debug()
	if err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Str("operation", req.operation).
		Str("method", req.method).
		Str("url", target).
		Int("status", status).
		Dur("took", took).
		Msg("store request")

	return err
}
