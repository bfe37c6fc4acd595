package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// FetchFailure is a remote request that did not produce a 2xx response.
// StatusCode is 0 when the transport failed before a response arrived.
type FetchFailure struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchFailure) Unwrap() error { return e.Err }

// ParseFailure is a 2xx body that did not decode into the expected shape.
type ParseFailure struct {
	URL string
	Err error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

func IsFetchFailure(err error) bool {
	var ff *FetchFailure
	return errors.As(err, &ff)
}

// Recorder receives one observation per remote request.
type Recorder interface {
	ObserveFetch(target string, status int, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, int, time.Duration) {}

type requester struct {
	client   *fasthttp.Client
	recorder Recorder
	timeout  time.Duration
	headers  map[string]string
}

func newRequester(timeout time.Duration, recorder Recorder) *requester {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &requester{
		client: &fasthttp.Client{
			Name:                "gmdb",
			MaxConnsPerHost:     32,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 1 * time.Minute,
			// region shards are several megabytes
			MaxResponseBodySize: 256 * 1024 * 1024,
			// shard paths are sent exactly as escaped
			DisablePathNormalizing: true,
		},
		recorder: recorder,
		timeout:  timeout,
		headers:  map[string]string{"Accept": "application/json"},
	}
}

func doRequest[T any](ctx context.Context, r *requester, target, url string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchFailure{URL: url, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(r.timeout)
	}

	start := time.Now()
	if err := r.client.DoDeadline(req, resp, deadline); err != nil {
		r.recorder.ObserveFetch(target, 0, time.Since(start))
		return nil, &FetchFailure{URL: url, Err: err}
	}
	status := resp.StatusCode()
	r.recorder.ObserveFetch(target, status, time.Since(start))

	if status < 200 || status > 299 {
		return nil, &FetchFailure{URL: url, StatusCode: status}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &ParseFailure{URL: url, Err: err}
	}
	return &result, nil
}
