// Package vprest implements the client for the external vprest wallet API.
//
// The API is a GET-style endpoint selected by a "q" query parameter, acting
// on behalf of a user identified by an (id, apikey) pair. Responses are
// loosely-typed JSON; interpretation of the status, balance, and message
// fields is isolated here so the dialogue engine never touches raw payloads.
package vprest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds every provider call. The upstream endpoint is slow
// on purchase operations, so the bound is generous but finite.
const DefaultTimeout = 120 * time.Second

// Opts holds configuration options for the vprest client.
type Opts struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport, used by tests.
	HTTPClient *http.Client
}

// Option defines a configuration option for the vprest client.
type Option func(*Opts)

// WithBaseURL sets the provider API base URL.
func WithBaseURL(base string) Option {
	return func(o *Opts) { o.BaseURL = base }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithHTTPClient overrides the HTTP client used for calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client calls the vprest provider API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a vprest client from the given options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("vprest base URL not set")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	slog.Debug("vprest client created", "base_url", cfg.BaseURL, "timeout", timeout)
	return &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/", client: httpClient}, nil
}

// Call performs a GET against the provider with the given query arguments
// and decodes the JSON object response. A reference id is attached to every
// call for provider-side tracing. Transport failures and unparseable bodies
// are returned as errors; the caller reports them as transient, unretried.
func (c *Client) Call(ctx context.Context, args url.Values) (map[string]interface{}, error) {
	ref := uuid.NewString()
	args.Set("reference", ref)

	reqURL := c.baseURL + "?" + args.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build vprest request: %w", err)
	}

	slog.Debug("vprest call", "q", args.Get("q"), "reference", ref)
	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("vprest call failed", "error", err, "q", args.Get("q"), "reference", ref)
		return nil, fmt.Errorf("vprest request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vprest response: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Error("vprest response not parseable", "error", err, "status", resp.StatusCode, "reference", ref)
		return nil, fmt.Errorf("invalid vprest response: %w", err)
	}
	slog.Debug("vprest call completed", "q", args.Get("q"), "status", resp.StatusCode, "reference", ref)
	return payload, nil
}

// CallAny performs a GET like Call but tolerates any JSON top-level shape.
// Catalog listing endpoints return objects or bare arrays depending on the
// provider version; purchase endpoints always return objects.
func (c *Client) CallAny(ctx context.Context, args url.Values) (interface{}, error) {
	reqURL := c.baseURL + "?" + args.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build vprest request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("vprest call failed", "error", err, "q", args.Get("q"))
		return nil, fmt.Errorf("vprest request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vprest response: %w", err)
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid vprest response: %w", err)
	}
	return payload, nil
}
