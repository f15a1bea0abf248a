// Package model defines core data structures and error types for the FreshRSS MCP server.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrorType represents different categories of errors that can occur
type ErrorType string

const (
	// ErrorTypeAuth represents login failures or a missing auth token
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeRemoteService represents non-2xx responses from the feed service
	ErrorTypeRemoteService ErrorType = "remote_service"
	// ErrorTypeNetwork represents connection failures reaching a remote host
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout represents request timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeDNSResolution represents DNS resolution failures
	ErrorTypeDNSResolution ErrorType = "dns_resolution"
	// ErrorTypeConnectionFailed represents connection establishment failures
	ErrorTypeConnectionFailed ErrorType = "connection_failed"

	// ErrorTypeParsing represents malformed payloads from the feed service
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeNotFound represents a requested article that does not exist remotely
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeExtraction represents article text recovery failures
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeBrowserUnavailable represents a rendering engine that could not start
	ErrorTypeBrowserUnavailable ErrorType = "browser_unavailable"
	// ErrorTypeUnsupportedContent represents non-HTML content that cannot be extracted
	ErrorTypeUnsupportedContent ErrorType = "unsupported_content"

	// ErrorTypeValidation represents URL or parameter validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTransport represents transport configuration errors
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeConfiguration represents configuration-related errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeInternal represents internal server errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeUnknown represents unknown or unclassified errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// ReaderError represents a structured error with additional context for debugging
type ReaderError struct {
	// Core error information
	ID         string    `json:"id"`         // Unique correlation ID for tracking
	Timestamp  time.Time `json:"timestamp"`  // When the error occurred
	ErrorType  ErrorType `json:"error_type"` // Category of error
	Message    string    `json:"message"`    // Human-readable error message
	Suggestion string    `json:"suggestion"` // Actionable suggestion for resolution

	// Context information
	URL       string `json:"url,omitempty"`       // Remote URL that caused the error
	Endpoint  string `json:"endpoint,omitempty"`  // Feed service endpoint involved
	Operation string `json:"operation,omitempty"` // What operation was being performed
	Component string `json:"component,omitempty"` // Which component generated the error

	// HTTP-specific context
	HTTPStatus  int    `json:"http_status,omitempty"`  // HTTP status code
	BodySnippet string `json:"body_snippet,omitempty"` // Truncated response body for debugging

	// Original error for wrapping
	Cause error `json:"-"` // Original error (not serialized to JSON)
}

// Error implements the error interface
func (re *ReaderError) Error() string {
	var parts []string

	if re.Message != "" {
		parts = append(parts, re.Message)
	}
	if re.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("Endpoint: %s", re.Endpoint))
	}
	if re.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s", re.URL))
	}
	if re.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation: %s", re.Operation))
	}
	if re.HTTPStatus != 0 {
		parts = append(parts, fmt.Sprintf("HTTP Status: %d", re.HTTPStatus))
	}
	parts = append(parts, fmt.Sprintf("Type: %s", re.ErrorType), fmt.Sprintf("ID: %s", re.ID))

	return strings.Join(parts, " | ")
}

// Unwrap returns the underlying cause for error wrapping support
func (re *ReaderError) Unwrap() error {
	return re.Cause
}

// NewReaderError creates a new ReaderError with basic information
func NewReaderError(errorType ErrorType, message string) *ReaderError {
	id, _ := gonanoid.New() // Generate unique correlation ID

	return &ReaderError{
		ID:         id,
		Timestamp:  time.Now().UTC(),
		ErrorType:  errorType,
		Message:    message,
		Suggestion: getSuggestionForErrorType(errorType),
	}
}

// NewReaderErrorWithCause creates a new ReaderError wrapping an existing error
func NewReaderErrorWithCause(errorType ErrorType, message string, cause error) *ReaderError {
	re := NewReaderError(errorType, message)
	re.Cause = cause
	return re
}

// WithURL adds URL context to the error
func (re *ReaderError) WithURL(url string) *ReaderError {
	re.URL = url
	return re
}

// WithEndpoint adds feed service endpoint context to the error
func (re *ReaderError) WithEndpoint(endpoint string) *ReaderError {
	re.Endpoint = endpoint
	return re
}

// WithOperation adds operation context to the error
func (re *ReaderError) WithOperation(operation string) *ReaderError {
	re.Operation = operation
	return re
}

// WithComponent adds component context to the error
func (re *ReaderError) WithComponent(component string) *ReaderError {
	re.Component = component
	return re
}

// WithHTTP adds the response status and a truncated body snippet to the error
func (re *ReaderError) WithHTTP(status int, body string) *ReaderError {
	re.HTTPStatus = status
	re.BodySnippet = Snippet(body, 200)
	return re
}

// Kind returns the wire-level error kind exposed to tool callers.
// Unclassified errors map to "internal" so the facade always emits a
// stable taxonomy.
func Kind(err error) ErrorType {
	var re *ReaderError
	if errors.As(err, &re) {
		return re.ErrorType
	}
	return ErrorTypeInternal
}

// Snippet truncates s to at most n bytes for inclusion in error context
func Snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// getSuggestionForErrorType returns actionable suggestions based on error type
func getSuggestionForErrorType(errorType ErrorType) string {
	suggestions := map[ErrorType]string{
		ErrorTypeAuth:               "Verify the FreshRSS username and API password, and that API access is enabled in profile settings",
		ErrorTypeRemoteService:      "The feed service rejected the request, check the endpoint and service logs",
		ErrorTypeNetwork:            "Check network connectivity to the feed service or article host",
		ErrorTypeTimeout:            "Check network connectivity or increase the timeout duration",
		ErrorTypeDNSResolution:      "Check DNS settings and verify the domain name is correct",
		ErrorTypeConnectionFailed:   "Verify the URL is accessible and the server is running",
		ErrorTypeParsing:            "The feed service returned an unexpected payload, verify the API URL points at the greader endpoint",
		ErrorTypeNotFound:           "The article id was not found, it may have been purged by the feed service",
		ErrorTypeExtraction:         "The page yielded no readable text, retry with force_dynamic=true",
		ErrorTypeBrowserUnavailable: "Install a Chromium-compatible browser or disable dynamic fetching",
		ErrorTypeUnsupportedContent: "The URL does not serve HTML, only HTML pages can be extracted",
		ErrorTypeValidation:         "Check the URL format and ensure it's a valid HTTP/HTTPS URL",
		ErrorTypeTransport:          "Check transport configuration (stdio, http)",
		ErrorTypeConfiguration:      "Review configuration parameters for correctness",
		ErrorTypeInternal:           "Internal server error occurred, check logs for details",
	}

	if suggestion, exists := suggestions[errorType]; exists {
		return suggestion
	}

	return "Check the error details and try again"
}
