// Package hubspot is a small client for the CRM endpoints the enrichment stage reads:
// call search, call associations and contact/company batch reads.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/johnquangdev/call-coach/pkg/config"
	"github.com/johnquangdev/call-coach/pkg/jobcontext"
)

// ErrNotConfigured is returned when no access token is set
var ErrNotConfigured = errors.New("hubspot access token is not configured")

// maxBatchInputs is the batch endpoints' per-request input ceiling
const maxBatchInputs = 100

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetryPolicy overrides the retry policy for each request
func WithRetryPolicy(p jobcontext.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithRateLimit overrides the request rate. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// Client talks to the HubSpot CRM REST API
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   jobcontext.RetryPolicy
}

// NewClient creates a client from config
func NewClient(cfg *config.HubSpotConfig, opts ...Option) (*Client, error) {
	if cfg == nil || cfg.AccessToken == "" {
		return nil, ErrNotConfigured
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.hubapi.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	c := &Client{
		token:   cfg.AccessToken,
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		retry:   jobcontext.DefaultRetryPolicy,
	}
	WithRateLimit(cfg.RateLimit)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// postJSON sends body to path and decodes the response into out, retrying transient failures
func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("hubspot: encode %s: %w", path, err)
	}

	return jobcontext.Retry(ctx, c.retry, func() error {
		if err := c.wait(ctx); err != nil {
			return fmt.Errorf("hubspot: rate limit: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("hubspot: %s: %w", path, err)
		}
		defer resp.Body.Close()

		// Batch endpoints answer 207 when some inputs were not found
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &jobcontext.StatusError{Service: "hubspot", StatusCode: resp.StatusCode, Body: string(msg)}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("hubspot: decode %s: %w", path, err)
		}
		return nil
	})
}

type idInput struct {
	ID string `json:"id"`
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
