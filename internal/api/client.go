// Package api is the service module for the marketplace REST backend. Every
// path lives under /users/{userId}; bodies are JSON. Response shapes are
// interpreted here and nowhere else: callers receive workspace.Result values
// and *Error failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gigdesk/internal/workspace"
)

// ErrUserRequired is returned before any request when the owner id is empty.
var ErrUserRequired = workspace.ErrOwnerRequired

type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger

	// HTTPClient overrides the default client (tests, custom transports).
	HTTPClient *http.Client
}

type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
	log       *slog.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("api: base url is empty")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base url must be http(s): %s", raw)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "gigdesk"
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{base: base, http: hc, userAgent: ua, log: log}, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

// UserPath builds /users/{userId}/{segments...} with each segment escaped.
func UserPath(userID string, segments ...string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrUserRequired
	}
	var b strings.Builder
	b.WriteString("/users/")
	b.WriteString(url.PathEscape(userID))
	for _, s := range segments {
		for _, part := range strings.Split(strings.Trim(s, "/"), "/") {
			if part == "" {
				continue
			}
			b.WriteByte('/')
			b.WriteString(url.PathEscape(part))
		}
	}
	return b.String(), nil
}

// Do sends one request and returns the raw response body. Non-2xx responses
// become *Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u, err := url.Parse(c.base.String() + path)
	if err != nil {
		return nil, fmt.Errorf("api: build url for %s: %w", path, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "method", method, "path", path, "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("api: read %s %s: %w", method, path, err)
	}
	c.log.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "dur", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(method, path, resp.StatusCode, raw)
	}
	return raw, nil
}
