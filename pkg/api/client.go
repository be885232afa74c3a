// Package api speaks the vendor's private REST API as the Android app does.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pan123/pkg/auth"
	"pan123/pkg/device"
	"pan123/pkg/metrics"
)

const (
	DefaultBaseURL         = "https://www.123pan.com"
	DefaultMetadataTimeout = 30 * time.Second
	DefaultPartTimeout     = 60 * time.Second

	appVersion  = "61"
	xAppVersion = "2.4.0"
	platform    = "android"

	maxResponseSize = 16 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL         string
	Identity        device.Identity
	Authorization   string
	LoginUUID       string
	MetadataTimeout time.Duration
	PartTimeout     time.Duration
	HTTPClient      *http.Client
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

// Client is a vendor API client bound to one device identity and session.
type Client struct {
	baseURL     string
	identity    device.Identity
	loginUUID   string
	metaTimeout time.Duration
	partTimeout time.Duration
	http        *http.Client
	noRedirect  *http.Client
	metrics     *metrics.Metrics
	logger      *zap.Logger

	mu            sync.RWMutex
	authorization string
}

// New builds a client. Zero options fall back to the defaults.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.LoginUUID == "" {
		opts.LoginUUID = device.NewLoginUUID()
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = DefaultMetadataTimeout
	}
	if opts.PartTimeout <= 0 {
		opts.PartTimeout = DefaultPartTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	noRedirect := *opts.HTTPClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		identity:      opts.Identity,
		loginUUID:     opts.LoginUUID,
		metaTimeout:   opts.MetadataTimeout,
		partTimeout:   opts.PartTimeout,
		http:          opts.HTTPClient,
		noRedirect:    &noRedirect,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		authorization: auth.BearerValue(opts.Authorization),
	}
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Identity returns the device identity sent with every call.
func (c *Client) Identity() device.Identity { return c.identity }

// HTTPClient returns the underlying client for data-plane transfers.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Authorization returns the current "Bearer ..." header value.
func (c *Client) Authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorization
}

// SetAuthorization replaces the bearer token used by subsequent calls.
func (c *Client) SetAuthorization(token string) {
	c.mu.Lock()
	c.authorization = auth.BearerValue(token)
	c.mu.Unlock()
}

func (c *Client) setHeaders(h http.Header) {
	h.Set("User-Agent", c.identity.UserAgent())
	if a := c.Authorization(); a != "" {
		h.Set("Authorization", a)
	}
	h.Set("Content-Type", "application/json")
	h.Set("osversion", c.identity.OSVersion)
	h.Set("loginuuid", c.loginUUID)
	h.Set("platform", platform)
	h.Set("devicetype", c.identity.Model)
	h.Set("devicename", device.Name)
	h.Set("app-version", appVersion)
	h.Set("x-app-version", xAppVersion)
}

// request describes one metadata call.
type request struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	json     interface{}
	form     url.Values
	success  int
}

// call performs req and returns the envelope data. A code other than
// req.success becomes a ServiceError carrying the raw payload.
func call[T any](ctx context.Context, c *Client, req request) (T, error) {
	var zero T
	start := time.Now()

	raw, err := c.roundTrip(ctx, req)
	if err != nil {
		c.observe(req.endpoint, metrics.OutcomeTransport, start)
		return zero, err
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		c.observe(req.endpoint, metrics.OutcomeTransport, start)
		return zero, &TransportError{Op: req.endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}

	if env.Code != req.success {
		c.observe(req.endpoint, metrics.OutcomeService, start)
		c.logger.Debug("Service error",
			zap.String("endpoint", req.endpoint),
			zap.Int("code", env.Code),
			zap.String("message", env.Message))
		return zero, &ServiceError{
			Endpoint: req.endpoint,
			Code:     env.Code,
			Message:  env.Message,
			Raw:      json.RawMessage(raw),
		}
	}

	var data T
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			c.observe(req.endpoint, metrics.OutcomeTransport, start)
			return zero, &TransportError{Op: req.endpoint, Err: fmt.Errorf("decode data: %w", err)}
		}
	}

	c.observe(req.endpoint, metrics.OutcomeOK, start)
	return data, nil
}

func (c *Client) roundTrip(ctx context.Context, req request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.metaTimeout)
	defer cancel()

	var body io.Reader
	switch {
	case req.json != nil:
		data, err := json.Marshal(req.json)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", req.endpoint, err)
		}
		body = bytes.NewReader(data)
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, &TransportError{Op: req.endpoint, Err: err}
	}
	c.setHeaders(httpReq.Header)
	if req.form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: req.endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &TransportError{Op: req.endpoint, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &TransportError{Op: req.endpoint, Err: fmt.Errorf("empty response (HTTP %d)", resp.StatusCode)}
	}
	return raw, nil
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	c.metrics.ObserveAPICall(endpoint, outcome, time.Since(start))
}

// PutPart uploads one part body to a pre-signed storage URL. Storage URLs
// carry their own credentials, so no vendor headers are sent.
func (c *Client) PutPart(ctx context.Context, target string, body io.Reader, size int64) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.partTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, body)
	if err != nil {
		return &TransportError{Op: "put part", Err: err}
	}
	req.ContentLength = size

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("put_part", metrics.OutcomeTransport, start)
		return &TransportError{Op: "put part", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe("put_part", metrics.OutcomeTransport, start)
		return &TransportError{Op: "put part", Err: fmt.Errorf("unexpected HTTP status %s", resp.Status)}
	}
	c.observe("put_part", metrics.OutcomeOK, start)
	return nil
}

// IsTimeout reports whether err came from a deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
