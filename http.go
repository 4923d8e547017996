package tracker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultBaseURL is the ingestion endpoint used when none is configured.
	DefaultBaseURL = "https://api.mixpanel.com"

	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 64 << 10
)

// HTTPConfig defines how HTTPTransport reaches the backend.
type HTTPConfig struct {
	// BaseURL is the endpoint root, e.g. the EU endpoint or a proxy.
	BaseURL string
	// Verbose asks the backend for a JSON status body.
	Verbose bool
	// UseIP lets the backend derive geolocation from the request address.
	UseIP bool
	// Headers are added to every request.
	Headers map[string]string
	// ProxyURL routes requests through an HTTP proxy. Ignored when Client is set.
	ProxyURL string
	// Client overrides the HTTP client.
	Client *http.Client
}

// HTTPOption configures HTTPTransport.
type HTTPOption func(*HTTPConfig)

// WithBaseURL sets the endpoint root.
func WithBaseURL(baseURL string) HTTPOption {
	return func(c *HTTPConfig) {
		c.BaseURL = baseURL
	}
}

// WithVerbose toggles verbose backend responses.
func WithVerbose(enabled bool) HTTPOption {
	return func(c *HTTPConfig) {
		c.Verbose = enabled
	}
}

// WithUseIP toggles ip-based geolocation.
func WithUseIP(enabled bool) HTTPOption {
	return func(c *HTTPConfig) {
		c.UseIP = enabled
	}
}

// WithHeaders sets outbound headers.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(c *HTTPConfig) {
		c.Headers = headers
	}
}

// WithProxy routes requests through the given proxy URL.
func WithProxy(proxyURL string) HTTPOption {
	return func(c *HTTPConfig) {
		c.ProxyURL = proxyURL
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPConfig) {
		c.Client = client
	}
}

// HTTPTransport implements Transport over the backend HTTP API.
type HTTPTransport struct {
	cfg     HTTPConfig
	baseURL string
	client  *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport builds an HTTPTransport. The default client is instrumented with otelhttp.
func NewHTTPTransport(opts ...HTTPOption) (*HTTPTransport, error) {
	var cfg HTTPConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("tracker: invalid base url %q", cfg.BaseURL)
	}

	client := cfg.Client
	if client == nil {
		rt := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.ProxyURL != "" {
			proxy, err := url.Parse(cfg.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("tracker: invalid proxy url %q: %w", cfg.ProxyURL, err)
			}
			rt.Proxy = http.ProxyURL(proxy)
		}
		client = &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: otelhttp.NewTransport(rt),
		}
	}

	return &HTTPTransport{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}, nil
}

// SendEvent issues GET {base}/{kind}/?data=...&verbose=...&ip=...
func (t *HTTPTransport) SendEvent(ctx context.Context, event Event) error {
	data, err := EncodePayload(event)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/%s/?data=%s&%s", t.baseURL, event.Kind, url.QueryEscape(data), t.flags())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}

	return t.do(req, event.Kind)
}

// SendBatch issues POST {base}/{kind}/?verbose=...&ip=... with form body data=...
func (t *HTTPTransport) SendBatch(ctx context.Context, kind Kind, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	if len(events) > MaxBatchSize {
		return fmt.Errorf("%w: %d events exceed the batch limit", ErrTransport, len(events))
	}

	data, err := EncodePayload(events)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/%s/?%s", t.baseURL, kind, t.flags())
	body := url.Values{"data": {data}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return t.do(req, kind)
}

func (t *HTTPTransport) flags() string {
	return "verbose=" + flag(t.cfg.Verbose) + "&ip=" + flag(t.cfg.UseIP)
}

func (t *HTTPTransport) do(req *http.Request, kind Kind) error {
	for name, value := range t.cfg.Headers {
		req.Header.Set(name, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request: %v", ErrTransport, kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s response: %v", ErrTransport, kind, err)
	}

	return CheckResponse(resp.StatusCode, body, t.cfg.Verbose)
}

// CheckResponse applies the backend success rule: HTTP 200 and, in verbose mode, a non-zero
// "status" field, otherwise a body other than "0".
func CheckResponse(status int, body []byte, verbose bool) error {
	if status != http.StatusOK {
		return fmt.Errorf("%w: http status %d", ErrTransport, status)
	}

	if verbose {
		res := gjson.ParseBytes(body)
		if res.Get("status").Int() != 0 {
			return nil
		}
		if msg := res.Get("error").String(); msg != "" {
			return fmt.Errorf("%w: rejected: %s", ErrTransport, msg)
		}

		return fmt.Errorf("%w: rejected", ErrTransport)
	}

	if strings.TrimSpace(string(body)) == "0" {
		return fmt.Errorf("%w: rejected", ErrTransport)
	}

	return nil
}

func flag(v bool) string {
	if v {
		return "1"
	}

	return "0"
}
