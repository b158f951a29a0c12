package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recordWaits(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	orig := wait
	wait = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { wait = orig })
	return &delays
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	delays := recordWaits(t)
	calls := 0

	v, err := Retry(context.Background(), RetryPolicy{Attempts: 3, InitialDelay: time.Second}, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("boom")
		}
		return 42, nil
	})

	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestRetryPropagatesLastFailureUnchanged(t *testing.T) {
	recordWaits(t)
	sentinel := errors.New("last failure")
	calls := 0

	_, err := Retry(context.Background(), DefaultRetryPolicy(), func(ctx context.Context) (string, error) {
		calls++
		if calls == DefaultAttempts {
			return "", sentinel
		}
		return "", errors.New("earlier failure")
	})

	require.Same(t, sentinel, err)
	require.Equal(t, DefaultAttempts, calls)
}

func TestRetryStopsOnOpenCircuit(t *testing.T) {
	recordWaits(t)
	calls := 0

	_, err := Retry(context.Background(), DefaultRetryPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, ErrCircuitOpen
	})

	require.ErrorIs(t, err, ErrCircuitOpen)
	require.Equal(t, 1, calls)
}

func TestRetryRejectsInvalidPolicy(t *testing.T) {
	_, err := Retry(context.Background(), RetryPolicy{}, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	require.ErrorIs(t, err, errInvalidPolicy)
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Retry(ctx, RetryPolicy{Attempts: 3, InitialDelay: time.Hour}, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	})

	require.EqualError(t, err, "boom")
	require.Equal(t, 1, calls)
}

func TestRetryAbortsWaitOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Retry(ctx, RetryPolicy{Attempts: 3, InitialDelay: time.Hour}, func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = Fetch(context.Background(), srv.Client(), req, 50*time.Millisecond)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, 50*time.Millisecond, timeoutErr.Bound)
	require.Equal(t, srv.URL, timeoutErr.Target)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientGetJSONStalledBodyIsTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"n":`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(Config{
		Name:       "test",
		HTTPClient: srv.Client(),
		Retry:      RetryPolicy{Attempts: 2, InitialDelay: time.Millisecond},
		Timeout:    50 * time.Millisecond,
	})

	err := client.GetJSON(context.Background(), srv.URL, &struct{}{})

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, 50*time.Millisecond, timeoutErr.Bound)
	require.Equal(t, srv.URL, timeoutErr.Target)
	require.EqualValues(t, 2, hits.Load())
}

func TestClientGetJSONRetriesTransportFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			// Drop the connection to simulate a network failure.
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					conn.Close()
				}
			}
			return
		}
		if r.Header.Get("Accept") != "application/json" {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}
		w.Write([]byte(`{"n":7}`))
	}))
	defer srv.Close()

	client := NewClient(Config{
		Name:       "test",
		HTTPClient: srv.Client(),
		Retry:      RetryPolicy{Attempts: 3, InitialDelay: time.Millisecond},
		Timeout:    time.Second,
	})

	var out struct {
		N int `json:"n"`
	}
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, &out))
	require.Equal(t, 7, out.N)
	require.EqualValues(t, 3, hits.Load())
}

func TestClientGetJSONDoesNotRetryStatusErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{
		Name:       "test",
		HTTPClient: srv.Client(),
		Retry:      RetryPolicy{Attempts: 3, InitialDelay: time.Millisecond},
	})

	err := client.GetJSON(context.Background(), srv.URL, &struct{}{})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.Code)
	require.EqualValues(t, 1, hits.Load())
}

func TestClientGetJSONMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient(Config{Name: "test", HTTPClient: srv.Client()})

	err := client.GetJSON(context.Background(), srv.URL, &struct{}{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode test response")
}
