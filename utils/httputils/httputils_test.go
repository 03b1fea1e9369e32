// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
)

// capturingRoundTripper records the last request and answers 200.
type capturingRoundTripper struct {
	lastRequest *http.Request
	body        string
}

func (d *capturingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.lastRequest = req

	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(d.body)),
	}, nil
}

//////////////////////////////////
// Test LoggingRoundTripper

// TestLoggingRoundTripper verifies that the LoggingRoundTripper logs both the request and
// the response (including timing information) and hides API keys.
func TestLoggingRoundTripper(t *testing.T) {
	var logBuffer bytes.Buffer

	lt := &LoggingRoundTripper{
		Transport: &capturingRoundTripper{body: "response body"},
		Writer:    &logBuffer,
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/nearbysearch/json?location=1,2&key=s3cr3t&type=toilet", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err = lt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	logContent := logBuffer.String()
	if !strings.Contains(logContent, "> GET /nearbysearch/json?location=1,2&key=REDACTED&type=toilet") {
		t.Errorf("log does not contain redacted request line. Got: %s", logContent)
	}

	if strings.Contains(logContent, "s3cr3t") {
		t.Errorf("log leaks the API key. Got: %s", logContent)
	}

	if !strings.Contains(logContent, "< RESPONSE: [") {
		t.Errorf("log does not contain response header with timing info. Got: %s", logContent)
	}

	if !strings.Contains(logContent, "response body") {
		t.Errorf("log does not contain response body. Got: %s", logContent)
	}
}

//////////////////////////////////
// Test AppendRequestHeadersRoundTripper

func TestAppendRequestHeadersRoundTripper(t *testing.T) {
	dummy := &capturingRoundTripper{}
	atr := &AppendRequestHeadersRoundTripper{
		Transport: dummy,
		Headers:   map[string]string{"X-Test-Header": "TestValue"},
	}

	req, err := http.NewRequest(http.MethodPost, "http://example.org", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err = atr.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	if got := dummy.lastRequest.Header.Get("X-Test-Header"); got != "TestValue" {
		t.Errorf("expected header X-Test-Header to have value 'TestValue', but got '%s'", got)
	}

	if req.Header.Get("X-Test-Header") != "" {
		t.Errorf("the caller's request must not be modified")
	}
}

//////////////////////////////////
// Test AppendQueryParamsRoundTripper

func TestAppendQueryParamsRoundTripper(t *testing.T) {
	dummy := &capturingRoundTripper{}
	qtr := &AppendQueryParamsRoundTripper{
		Transport: dummy,
		Params:    map[string]string{"key": "abc"},
	}

	req, err := http.NewRequest(http.MethodPost, "http://example.org/v2?alt=json", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err = qtr.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	q := dummy.lastRequest.URL.Query()
	if q.Get("key") != "abc" || q.Get("alt") != "json" {
		t.Errorf("unexpected query %q", dummy.lastRequest.URL.RawQuery)
	}

	if req.URL.Query().Get("key") != "" {
		t.Errorf("the caller's request must not be modified")
	}
}

func TestChain(t *testing.T) {
	var logBuffer bytes.Buffer

	dummy := &capturingRoundTripper{}
	rt := Chain(dummy, "nearby/test", &logBuffer, false)

	req, err := http.NewRequest(http.MethodGet, "http://example.org/", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	if got := dummy.lastRequest.Header.Get("User-Agent"); got != "nearby/test" {
		t.Errorf("unexpected User-Agent %q", got)
	}

	if logBuffer.Len() == 0 {
		t.Errorf("expected the request to be traced")
	}

	if _, ok := Chain(dummy, "", nil, false).(*capturingRoundTripper); !ok {
		t.Errorf("Chain without options should return the base transport")
	}
}
