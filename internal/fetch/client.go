// Package fetch performs the HTTP calls of network-bound operations and routes
// them through the shared response cache.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nodech/hsd-tools/internal/errors"
)

// DefaultTimeout bounds a single request when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// maxUpstreamMessage caps how much of an error body is kept on a FetchError.
const maxUpstreamMessage = 200

// Request describes one upstream call.
type Request struct {
	Method string
	URL    string
	Header http.Header
}

// Client issues requests and classifies their outcome.
type Client struct {
	http      *http.Client
	userAgent string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: "hs-tools",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs req and returns the body of a 2xx response. A 404 is reported
// as found=false with no error. Transport failures and other non-2xx statuses
// are returned as *errors.FetchError.
func (c *Client) Get(ctx context.Context, req Request) (body []byte, found bool, err error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, false, errors.NewFetchError("invalid request", errors.Join(errors.ErrUpstreamTransport, err)).WithURL(req.URL)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, false, errors.NewFetchError("request failed", errors.Join(errors.ErrUpstreamTransport, err)).WithURL(req.URL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.NewFetchError("failed to read response", errors.Join(errors.ErrUpstreamTransport, err)).WithURL(req.URL)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, false, errors.NewFetchError(
			fmt.Sprintf("unexpected status %d", resp.StatusCode), errors.ErrUpstreamStatus,
		).WithURL(req.URL).WithStatus(resp.StatusCode, upstreamMessage(data))
	}
	return data, true, nil
}

// upstreamMessage extracts the error text from a JSON error body
// ({"message": ...} or {"error": ...}), falling back to the raw body.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxUpstreamMessage {
		msg = msg[:maxUpstreamMessage]
	}
	return msg
}
