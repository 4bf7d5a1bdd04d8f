package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockStep is one canned response for an outgoing request.
type MockStep struct {
	Method string          `json:"method"` // empty matches any method
	Path   string          `json:"path"`   // prefix match on the URL path; empty matches any
	Status int             `json:"status"` // defaults to 200
	Body   json.RawMessage `json:"body"`
}

// Call is a request seen by MockTransport.
type Call struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// MockTransport is an http.RoundTripper answering from MockSteps. Steps are
// matched in order; a step matches any number of calls.
//
//	mt := testkit.NewMockTransport(testkit.MockStep{Method: "GET", Path: "/api/health", Body: ...})
//	c := client.New("http://jush.test", client.WithHTTPClient(&http.Client{Transport: mt}))
type MockTransport struct {
	mu    sync.Mutex
	steps []mockEntry
	calls []Call
}

type mockEntry struct {
	step  MockStep
	count int
}

func NewMockTransport(steps ...MockStep) *MockTransport {
	mt := &MockTransport{}
	for _, s := range steps {
		mt.steps = append(mt.steps, mockEntry{step: s})
	}
	return mt
}

// RoundTrip records the request and returns the first matching step.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.calls = append(mt.calls, Call{Method: req.Method, Path: req.URL.Path, Query: req.URL.RawQuery, Header: req.Header.Clone(), Body: body})

	for i := range mt.steps {
		e := &mt.steps[i]
		if e.step.Method != "" && !strings.EqualFold(e.step.Method, req.Method) {
			continue
		}
		if !strings.HasPrefix(req.URL.Path, e.step.Path) {
			continue
		}
		e.count++
		return buildResponse(req, e.step), nil
	}

	return nil, fmt.Errorf("testkit: unexpected %s %s, no matching mock step", req.Method, req.URL)
}

// Calls returns every request seen so far.
func (mt *MockTransport) Calls() []Call {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]Call(nil), mt.calls...)
}

// AssertAllCalled reports steps that never matched a request.
func (mt *MockTransport) AssertAllCalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, e := range mt.steps {
		if e.count == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock step %s %q was never called", e.step.Method, e.step.Path))
		}
	}
	return errs
}

func buildResponse(req *http.Request, s MockStep) *http.Response {
	code := s.Status
	if code == 0 {
		code = http.StatusOK
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.Body)),
		Request:    req,
	}
}
