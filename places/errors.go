// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// LookupError is a transport level failure talking to a places provider.
type LookupError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies lookup failures.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit too many requests.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded quota exhausted or key rejected.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout the provider did not answer in time.
	ErrorTypeTimeout
	// ErrorTypeNotFound the endpoint does not exist.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest the provider rejected the request.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError the provider is unreachable or unavailable.
	ErrorTypeNetworkError
	// ErrorTypeMalformedResponse the body could not be decoded.
	ErrorTypeMalformedResponse
)

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func isType(err error, t ErrorType) bool {
	var lookupErr *LookupError
	if errors.As(err, &lookupErr) {
		return lookupErr.Type == t
	}

	return false
}

// IsRateLimitError reports whether err is caused by rate limiting.
func IsRateLimitError(err error) bool {
	if isType(err, ErrorTypeRateLimit) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsQuotaExceededError reports whether err is caused by an exhausted quota.
func IsQuotaExceededError(err error) bool {
	if isType(err, ErrorTypeQuotaExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == StatusOverQueryLimit
	}

	return strings.Contains(strings.ToLower(err.Error()), "quota exceeded")
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	if isType(err, ErrorTypeTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// classifyTransportError wraps an error returned by the HTTP client.
func classifyTransportError(err error) *LookupError {
	if IsTimeoutError(err) {
		return &LookupError{Type: ErrorTypeTimeout, Message: "places request timed out", Err: err}
	}

	return &LookupError{Type: ErrorTypeNetworkError, Message: "places request failed", Err: err}
}

// ClassifyHTTPError maps a non-200 HTTP status to a LookupError.
func ClassifyHTTPError(statusCode int, body string) *LookupError {
	var e *LookupError

	switch statusCode {
	case http.StatusTooManyRequests:
		e = &LookupError{Type: ErrorTypeRateLimit, Message: "rate limit reached"}
	case http.StatusForbidden:
		e = &LookupError{Type: ErrorTypeQuotaExceeded, Message: "quota exceeded or access denied"}
	case http.StatusBadRequest:
		e = &LookupError{Type: ErrorTypeInvalidRequest, Message: "invalid request"}
	case http.StatusNotFound:
		e = &LookupError{Type: ErrorTypeNotFound, Message: "endpoint not found"}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		e = &LookupError{Type: ErrorTypeNetworkError, Message: fmt.Sprintf("service unavailable (code %d)", statusCode)}
	default:
		e = &LookupError{Type: ErrorTypeUnknown, Message: fmt.Sprintf("HTTP error %d", statusCode)}
	}

	if body = strings.TrimSpace(body); body != "" {
		e.Err = errors.New(body)
	}

	return e
}
