package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const maxBodyBytes = 4 << 20

// Config bundles HTTP client and resilience settings for one upstream source.
type Config struct {
	Name       string
	HTTPClient *http.Client
	Retry      RetryPolicy
	Timeout    time.Duration
}

// Client performs retried, timeout-bounded GETs against one upstream source,
// guarded by its own circuit breaker.
type Client struct {
	name    string
	http    *http.Client
	retry   RetryPolicy
	timeout time.Duration
	circuit *gobreaker.CircuitBreaker
}

// NewClient builds a Client. Zero values fall back to the package defaults.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	retry := cfg.Retry
	if retry.Attempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		name:    cfg.Name,
		http:    httpClient,
		retry:   retry,
		timeout: timeout,
		circuit: cb,
	}
}

// Name identifies the upstream source.
func (c *Client) Name() string {
	return c.name
}

type fetched struct {
	status int
	body   []byte
}

// GetJSON fetches target and decodes the JSON body into out. Network failures and
// timeouts are retried; a non-2xx status or a malformed body is not.
func (c *Client) GetJSON(ctx context.Context, target string, out any) error {
	res, err := Retry(ctx, c.retry, func(ctx context.Context) (fetched, error) {
		return c.attempt(ctx, target)
	})
	if err != nil {
		return err
	}

	if res.status < 200 || res.status >= 300 {
		return &StatusError{Code: res.status, Target: target}
	}

	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, target string) (fetched, error) {
	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := Fetch(ctx, c.http, req, c.timeout)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			var timeoutErr *TimeoutError
			if errors.As(err, &timeoutErr) {
				return nil, timeoutErr
			}
			return nil, fmt.Errorf("read %s response: %w", c.name, err)
		}
		return fetched{status: resp.StatusCode, body: body}, nil
	})

	if err != nil {
		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fetched{}, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return fetched{}, err
	}

	res, ok := result.(fetched)
	if !ok {
		return fetched{}, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return res, nil
}
