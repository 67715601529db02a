package fal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Client talks to the fal.ai queue API. It is the authenticated transport the
// lifecycle core is handed: every request carries the "Authorization: Key"
// header and goes through a shared rate limiter.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	http      *http.Client
	stream    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// Options configure a Client.
type Options struct {
	APIKey     string
	BaseURL    string       // empty uses DefaultBaseURL
	HTTPClient *http.Client // nil builds an instrumented client
	Timeout    time.Duration
	RateLimit  rate.Limit // requests per second; zero uses the default, rate.Inf disables
	Burst      int
	UserAgent  string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusText returns the reason phrase, e.g. "Bad Request".
func (r *Response) StatusText() string {
	if r == nil {
		return ""
	}
	if text := strings.TrimSpace(strings.TrimPrefix(r.Status, strconv.Itoa(r.StatusCode))); text != "" {
		return text
	}
	if text := http.StatusText(r.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", r.StatusCode)
}

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("fal: api key is required")

const (
	DefaultBaseURL   = "https://queue.fal.run"
	defaultUserAgent = "reel/0.1"
	requestTimeout   = 30 * time.Second
	defaultRateLimit = 5
	defaultBurst     = 10
	maxBodyBytes     = 8 << 20
)

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = requestTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(newTransport()),
		}
	}
	// Streams live as long as their context allows, so they use a copy of the
	// client without the per-request timeout.
	streamClient := *httpClient
	streamClient.Timeout = 0

	limit := opts.RateLimit
	if limit == 0 {
		limit = defaultRateLimit
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		baseURL:   base,
		apiKey:    key,
		http:      httpClient,
		stream:    &streamClient,
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: userAgent,
	}, nil
}

// BaseURL returns the queue base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL.String(), "/")
}

// Post sends body as JSON to rawURL.
func (c *Client) Post(ctx context.Context, rawURL string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, rawURL, body)
}

// Get fetches rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil)
}

// Cancel asks the queue to drop a request that has not finished yet.
func (c *Client) Cancel(ctx context.Context, cancelURL string) error {
	resp, err := c.do(ctx, http.MethodPut, cancelURL, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("cancel returned status %d: %s", resp.StatusCode, resp.StatusText())
	}
	return nil
}

// GetStream opens a server-sent-event stream at rawURL. The caller owns the
// returned body and must close it.
func (c *Client) GetStream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.stream.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	recordRequestMetrics(http.MethodGet, endpointLabel(http.MethodGet, req.URL), status, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if status < 200 || status >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream %s returned status %d: %s", req.URL.Path, status, strings.TrimSpace(string(snippet)))
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	req, err := c.newRequest(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	recordRequestMetrics(method, endpointLabel(method, req.URL), status, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Status: resp.Status, Body: data}, nil
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body []byte) (*http.Request, error) {
	target, err := c.resolve(rawURL)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// resolve accepts absolute URLs handed back by the queue as well as paths
// relative to the base URL.
func (c *Client) resolve(rawURL string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	joined := *c.baseURL
	joined.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	joined.RawQuery = ref.RawQuery
	return joined.String(), nil
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url %q: unsupported scheme %q", raw, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
