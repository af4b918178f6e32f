// Package gophish is a client for the parts of the Gophish REST API used to
// back up and restore an instance: sending profiles, templates and landing
// pages.
package gophish

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/randalmurphal/gophish-backup/internal/model"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "gophish-backup/1.0"

	// maxErrorBody bounds how much of an error response is kept for messages.
	maxErrorBody = 4096
)

// ClientConfig holds the configuration for connecting to a Gophish instance.
type ClientConfig struct {
	// BaseURL is the admin server address, e.g. "https://gophish.local:3333/".
	BaseURL string
	// APIKey is sent with every request.
	APIKey string
	// Insecure disables TLS certificate verification. Gophish ships with a
	// self-signed certificate.
	Insecure bool
	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration
	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// HTTPClient replaces the default pooled client.
	HTTPClient *http.Client
	// Logger receives a debug record per request.
	Logger *slog.Logger
}

// Client talks to one Gophish instance.
type Client struct {
	SendingProfiles *Resource[model.SendingProfile]
	Templates       *TemplateResource
	Pages           *Resource[model.Page]

	http      *http.Client
	base      *url.URL
	apiKey    string
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates a client for the instance at cfg.BaseURL.
func New(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gophish base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gophish API key is required")
	}

	// Resolve endpoints relative to the admin root, whatever path it has.
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
		if cfg.Insecure {
			if tr, ok := httpClient.Transport.(*http.Transport); ok {
				tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed admin certs
			}
		}
		httpClient.Timeout = cfg.Timeout
		if httpClient.Timeout == 0 {
			httpClient.Timeout = defaultTimeout
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		http:      httpClient,
		base:      base,
		apiKey:    cfg.APIKey,
		userAgent: userAgent,
		limiter:   limiter,
		logger:    logger,
	}
	c.SendingProfiles = &Resource[model.SendingProfile]{client: c, path: "api/smtp/"}
	c.Templates = &TemplateResource{Resource: &Resource[model.Template]{client: c, path: "api/templates/"}}
	c.Pages = &Resource[model.Page]{client: c, path: "api/pages/"}
	return c, nil
}

// BaseURL returns the normalized admin root the client talks to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	endpoint, err := c.base.Parse(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: marshal body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reqBody)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("gophish request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(raw),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts the "message" field Gophish puts in error bodies,
// falling back to the raw text for non-JSON responses.
func errorMessage(raw []byte) string {
	if msg := gjson.GetBytes(raw, "message"); msg.Exists() && msg.Type == gjson.String {
		return msg.String()
	}
	if gjson.ValidBytes(raw) {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
