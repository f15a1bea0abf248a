// Package model provides helper functions for creating structured errors.
package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// CreateNetworkError creates a ReaderError for network-related issues,
// categorizing timeouts, DNS failures and connection failures.
func CreateNetworkError(err error, url, operation, component string) *ReaderError {
	errorType := ErrorTypeNetwork
	message := "Network error occurred"

	if err != nil {
		switch {
		case isTimeoutError(err):
			errorType = ErrorTypeTimeout
			message = "Request timed out"
		case isDNSError(err):
			errorType = ErrorTypeDNSResolution
			message = "DNS resolution failed"
		case isConnectionError(err):
			errorType = ErrorTypeConnectionFailed
			message = "Connection failed"
		}
	}

	return NewReaderErrorWithCause(errorType, message, err).
		WithURL(url).
		WithOperation(operation).
		WithComponent(component)
}

// CreateRemoteServiceError creates a ReaderError for a non-2xx response
// from the feed service, attaching status and a body snippet.
func CreateRemoteServiceError(status int, endpoint, body, operation string) *ReaderError {
	return NewReaderError(ErrorTypeRemoteService, fmt.Sprintf("Feed service returned HTTP %d", status)).
		WithEndpoint(endpoint).
		WithOperation(operation).
		WithComponent("greader_client").
		WithHTTP(status, body)
}

// CreateParsingError wraps a malformed-payload error into the uniform
// taxonomy so callers never see raw decode errors.
func CreateParsingError(err error, endpoint, operation string) *ReaderError {
	return NewReaderErrorWithCause(ErrorTypeParsing, "Failed to decode feed service response", err).
		WithEndpoint(endpoint).
		WithOperation(operation).
		WithComponent("greader_client")
}

// CreateValidationError creates a ReaderError for URL validation issues
func CreateValidationError(err error, url string) *ReaderError {
	message := "URL validation failed"

	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidURL):
			message = "Invalid URL format"
		case errors.Is(err, ErrUnsupportedScheme):
			message = "Unsupported URL scheme"
		case errors.Is(err, ErrPrivateIPBlocked):
			message = "Private IP address blocked"
		case errors.Is(err, ErrMissingHost):
			message = "URL missing host"
		case errors.Is(err, ErrEmptyURL):
			message = "URL cannot be empty"
		}
	}

	return NewReaderErrorWithCause(ErrorTypeValidation, message, err).
		WithURL(url).
		WithOperation("validate_url").
		WithComponent("url_validator")
}

// Helper functions to categorize network errors

// isTimeoutError checks if the error is related to timeouts
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{"timeout", "deadline exceeded", "timed out"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

// isDNSError checks if the error is related to DNS resolution
func isDNSError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	dnsKeywords := []string{
		"no such host", "dns", "name resolution", "hostname",
		"name or service not known", "nodename nor servname provided",
	}
	for _, keyword := range dnsKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

// isConnectionError checks if the error is related to connection issues
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var errno syscall.Errno
		if errors.As(opErr.Err, &errno) {
			switch errno {
			case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED,
				syscall.EHOSTUNREACH, syscall.ENETUNREACH:
				return true
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	connKeywords := []string{
		"connection refused", "connection reset", "connection aborted",
		"host unreachable", "network unreachable", "no route to host",
	}
	for _, keyword := range connKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}
