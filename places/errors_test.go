// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"typed", &LookupError{Type: ErrorTypeRateLimit, Message: "x"}, true},
		{"message", errors.New("Too Many Requests"), true},
		{"other type", &LookupError{Type: ErrorTypeNotFound, Message: "not found"}, false},
		{"unrelated", errors.New("some other error"), false},
	}, IsRateLimitError)
}

func TestIsQuotaExceededError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"typed", &LookupError{Type: ErrorTypeQuotaExceeded, Message: "x"}, true},
		{"status", fmt.Errorf("wrapped: %w", &StatusError{Status: StatusOverQueryLimit}), true},
		{"other status", &StatusError{Status: StatusZeroResults}, false},
		{"message", errors.New("daily quota exceeded"), true},
		{"unrelated", errors.New("some other error"), false},
	}, IsQuotaExceededError)
}

func TestIsTimeoutError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"typed", &LookupError{Type: ErrorTypeTimeout, Message: "x"}, true},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"client timeout message", errors.New("Client.Timeout exceeded while awaiting headers"), true},
		{"unrelated", errors.New("connection refused"), false},
	}, IsTimeoutError)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusBadGateway, ErrorTypeNetworkError},
		{http.StatusServiceUnavailable, ErrorTypeNetworkError},
		{http.StatusInternalServerError, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			got := ClassifyHTTPError(tt.status, "")
			if got.Type != tt.want {
				t.Errorf("ClassifyHTTPError(%d).Type = %v, want %v", tt.status, got.Type, tt.want)
			}

			if got.Err != nil {
				t.Errorf("expected no wrapped error for empty body, got %v", got.Err)
			}
		})
	}

	if err := ClassifyHTTPError(http.StatusBadRequest, " bad location "); err.Error() != "invalid request: bad location" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
