package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

// Network performs a request against the real network.
type Network interface {
	Fetch(ctx context.Context, req *http.Request) (Response, error)
}

const defaultNetworkTimeout = 30 * time.Second

// FastHTTPNetwork is a Network backed by a fasthttp client. A context deadline
// bounds the call; without one the client timeout applies.
type FastHTTPNetwork struct {
	client  *fasthttp.Client
	timeout time.Duration
	now     func() time.Time
}

func NewFastHTTPNetwork(timeout time.Duration) *FastHTTPNetwork {
	if timeout <= 0 {
		timeout = defaultNetworkTimeout
	}
	return &FastHTTPNetwork{
		client: &fasthttp.Client{
			Name:         "havet-arena",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		timeout: timeout,
		now:     time.Now,
	}
}

func (n *FastHTTPNetwork) Fetch(ctx context.Context, r *http.Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.URL.String())
	req.Header.SetMethod(r.Method)
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return Response{}, fmt.Errorf("read request body: %w", err)
		}
		req.SetBody(body)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = n.client.DoDeadline(req, resp, deadline)
	} else {
		err = n.client.DoTimeout(req, resp, n.timeout)
	}
	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return Response{}, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return Response{}, err
	}

	out := Response{
		Status:   resp.StatusCode(),
		Header:   http.Header{},
		Body:     append([]byte(nil), resp.Body()...),
		StoredAt: n.now(),
	}
	resp.Header.VisitAll(func(key, value []byte) {
		out.Header.Add(string(key), string(value))
	})
	return out, nil
}

var _ Network = (*FastHTTPNetwork)(nil)
