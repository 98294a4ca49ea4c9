package httpfixture

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Call is a request observed by a Transport
type Call struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

// Transport is an http.RoundTripper that answers requests from a
// FixtureProvider. Requests with no fixture go to Fallback, or fail when
// Fallback is nil. Every request is recorded.
type Transport struct {
	Provider FixtureProvider
	Fallback http.RoundTripper

	mu    sync.Mutex
	calls []Call
}

// NewTransport creates a transport with no fallback
func NewTransport(provider FixtureProvider) *Transport {
	return &Transport{Provider: provider}
}

// Client returns an *http.Client using the transport
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	t.mu.Lock()
	t.calls = append(t.calls, Call{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   string(body),
	})
	t.mu.Unlock()

	fixture := t.Provider.GetFixture(req)
	if fixture == nil {
		if t.Fallback != nil {
			return t.Fallback.RoundTrip(req)
		}
		return nil, fmt.Errorf("no fixture for %s %s", req.Method, req.URL)
	}

	if fixture.Delay != nil {
		timer := time.NewTimer(*fixture.Delay)
		select {
		case <-timer.C:
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		}
	}

	status := fixture.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	header := make(http.Header, len(fixture.Headers))
	for k, v := range fixture.Headers {
		header.Set(k, v)
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(fixture.Body)),
		ContentLength: int64(len(fixture.Body)),
		Request:       req,
	}, nil
}

// Calls returns a copy of the recorded requests
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

// CallsMatching returns recorded requests with the given method whose URL
// contains substr
func (t *Transport) CallsMatching(method, substr string) []Call {
	var out []Call
	for _, c := range t.Calls() {
		if (method == "" || c.Method == method) && strings.Contains(c.URL, substr) {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded requests
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = nil
}
