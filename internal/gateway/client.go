// Package gateway is the REST client for the storefront backend.
//
// Every endpoint decodes into a typed reply carrying the backend's
// {success, message} status, so callers see either a typed value or an error:
// *APIError when the backend answered with a failure, or an error wrapping
// ErrUnavailable when it could not be reached.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

const maxBodyBytes = 10 << 20

// Status is the envelope shared by every backend response.
type Status struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s Status) status() Status { return s }

type reply interface {
	status() Status
}

type dataReply[T any] struct {
	Status
	Data T `json:"data"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The caller owns its
// cookie jar and timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a client for baseURL. Each client keeps its own cookie jar, so
// one client corresponds to one authenticated browsing session.
func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 15 * time.Second, Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) get(ctx context.Context, path string, out reply) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out reply) error {
	var payload io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, payload, contentType, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, header http.Header, out reply) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: base URL is empty", ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("gateway: build %s %s: %w", method, path, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", ErrUnavailable, method, path, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		// A 5xx without an envelope comes from a proxy in front of the
		// backend, not from the backend itself.
		if res.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, method, path, res.StatusCode)
		}
		return &APIError{StatusCode: res.StatusCode, Method: method, Path: path}
	}

	st := out.status()
	if res.StatusCode >= http.StatusBadRequest || !st.Success {
		return &APIError{StatusCode: res.StatusCode, Method: method, Path: path, Message: st.Message}
	}
	return nil
}

// IsUnavailable reports whether err is a transport-level failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
