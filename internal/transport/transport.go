package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single network call.
	DefaultTimeout = 10 * time.Second
	// DefaultAttempts is the total number of tries, first call included.
	DefaultAttempts = 3
	// DefaultInitialDelay is the wait before the second attempt; it doubles afterwards.
	DefaultInitialDelay = time.Second
)

// RetryPolicy controls exponential backoff behaviour.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
}

// DefaultRetryPolicy returns 3 attempts starting at a 1s delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     DefaultAttempts,
		InitialDelay: DefaultInitialDelay,
	}
}

var (
	// ErrCircuitOpen is returned when a source's breaker rejects the call.
	ErrCircuitOpen = errors.New("circuit breaker open")

	errInvalidPolicy = errors.New("invalid retry policy")
	errNoHTTPClient  = errors.New("http client not configured")
)

// TimeoutError reports a call aborted because its deadline passed.
type TimeoutError struct {
	Bound  time.Duration
	Target string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Bound, e.Target)
}

// Timeout marks the error as a timeout for net.Error style checks.
func (e *TimeoutError) Timeout() bool { return true }

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// StatusError reports a completed call with a non-2xx status.
type StatusError struct {
	Code   int
	Target string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Target, e.Code)
}

// wait blocks for d or until ctx is done. Swapped in tests.
var wait = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry invokes op until it succeeds or the policy's attempts are used up.
// The delay doubles after every failed attempt. The last failure is returned as is.
// An ErrCircuitOpen failure stops retrying immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if policy.Attempts <= 0 || policy.InitialDelay < 0 {
		return zero, errInvalidPolicy
	}

	delay := policy.InitialDelay
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= policy.Attempts || errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil {
			return zero, err
		}

		if werr := wait(ctx, delay); werr != nil {
			return zero, werr
		}
		delay *= 2
	}
}

// Fetch sends req bounded by timeout. When the bound is hit the in-flight call is
// aborted and a *TimeoutError is returned. The returned body stays readable until
// closed; closing it releases the deadline.
func Fetch(ctx context.Context, client *http.Client, req *http.Request, timeout time.Duration) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		// Only our own bound counts as a timeout; a cancelled parent propagates as is.
		if ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil) {
			return nil, &TimeoutError{Bound: timeout, Target: req.URL.String()}
		}
		return nil, err
	}

	resp.Body = &cancelOnClose{
		ReadCloser: resp.Body,
		cancel:     cancel,
		expired: func() bool {
			return ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded)
		},
		timeout: &TimeoutError{Bound: timeout, Target: req.URL.String()},
	}
	return resp, nil
}

// cancelOnClose releases the call deadline on Close and reports a body read cut
// short by that deadline as a *TimeoutError.
type cancelOnClose struct {
	io.ReadCloser
	cancel  context.CancelFunc
	expired func() bool
	timeout *TimeoutError
}

func (c *cancelOnClose) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	if err != nil && err != io.EOF && c.expired() {
		return n, c.timeout
	}
	return n, err
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
