// Package apiclient sends outbound API calls with a bounded retry on HTTP 429.
//
// A 429 waits a fixed delay and retries, up to MaxAttempts attempts in total.
// Any other non-2xx status fails at once with a *TransportError. Running out of
// attempts on 429 fails with ErrRateLimitExceeded.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"forum-quiz-bot/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// ErrRateLimitExceeded is returned when every attempt was answered with HTTP 429.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

var errRateLimited = errors.New("rate limited")

// TransportError reports a non-2xx response other than 429.
type TransportError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Doer is the transport capability; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy is three attempts two seconds apart.
var DefaultPolicy = Policy{MaxAttempts: 3, Delay: 2 * time.Second}

// Request is one outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client applies Policy to every call made through it.
type Client struct {
	doer     Doer
	policy   Policy
	newTimer func() backoff.Timer
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

type Option func(*Client)

// WithTimer replaces the wall-clock wait between attempts.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(c *Client) { c.newTimer = newTimer }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(doer Doer, policy Policy, opts ...Option) *Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	c := &Client{
		doer:    doer,
		policy:  policy,
		log:     logrus.StandardLogger(),
		metrics: metrics.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send performs req under the retry policy.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	host := hostOf(req.URL)
	var (
		resp     *Response
		attempts int
	)

	operation := func() error {
		attempts++
		r, err := c.do(ctx, req)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.metrics.APIRequests.WithLabelValues(host, strconv.Itoa(r.StatusCode)).Inc()
		switch {
		case r.StatusCode == http.StatusTooManyRequests:
			return errRateLimited
		case r.StatusCode < 200 || r.StatusCode > 299:
			return backoff.Permanent(&TransportError{StatusCode: r.StatusCode, URL: req.URL, Body: string(r.Body)})
		}
		resp = r
		return nil
	}

	notify := func(_ error, wait time.Duration) {
		c.metrics.APIRetries.WithLabelValues(host).Inc()
		c.log.WithFields(logrus.Fields{"host": host, "attempt": attempts, "wait": wait}).
			Warn("rate limit exceeded, retrying")
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.policy.Delay), uint64(c.policy.MaxAttempts-1)),
		ctx,
	)
	var timer backoff.Timer
	if c.newTimer != nil {
		timer = c.newTimer()
	}

	err := backoff.RetryNotifyWithTimer(operation, b, notify, timer)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		if errors.Is(err, errRateLimited) {
			return nil, fmt.Errorf("%w: %s %s after %d attempts", ErrRateLimitExceeded, req.Method, req.URL, attempts)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

// GetJSON sends a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, header http.Header, out any) error {
	resp, err := c.Send(ctx, Request{Method: http.MethodGet, URL: endpoint, Header: header})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// PostJSON encodes payload as JSON, sends it and decodes the reply into out (if non-nil).
func (c *Client) PostJSON(ctx context.Context, endpoint string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")
	resp, err := c.Send(ctx, Request{Method: http.MethodPost, URL: endpoint, Header: h, Body: body})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// PostForm sends form-encoded values and decodes the reply into out (if non-nil).
func (c *Client) PostForm(ctx context.Context, endpoint string, header http.Header, form url.Values, out any) error {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.Send(ctx, Request{Method: http.MethodPost, URL: endpoint, Header: h, Body: []byte(form.Encode())})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *Response, out any) error {
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.SplitN(raw, "/", 2)[0]
	}
	return u.Host
}
