// Package auth verifies join tokens against the external account service.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	ErrUnauthorized = errors.New("token rejected")
	ErrNoToken      = errors.New("token required")
)

// Identity is what a verified token resolves to.
type Identity struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

type verifyRequest struct {
	Token string `json:"token"`
}

// HTTPVerifier posts tokens to `<base>/verify`.
type HTTPVerifier struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*HTTPVerifier)

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPVerifier) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *HTTPVerifier) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *HTTPVerifier) { c.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *HTTPVerifier) { c.http.Dial = dial }
}

func NewHTTPVerifier(baseURL string, opts ...Option) *HTTPVerifier {
	c := &HTTPVerifier{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrNoToken
	}
	var out Identity
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/verify", verifyRequest{Token: token}, &out); err != nil {
		return Identity{}, err
	}
	out.Identity = strings.TrimSpace(out.Identity)
	if out.Identity == "" {
		return Identity{}, fmt.Errorf("%w: empty identity", ErrUnauthorized)
	}
	return out, nil
}

func (c *HTTPVerifier) doJSON(ctx context.Context, method, path string, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		switch {
		case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
			return ErrUnauthorized
		case status < 200 || status >= 300:
			lastErr = fmt.Errorf("auth api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *HTTPVerifier) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 50 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 50ms, 100ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
