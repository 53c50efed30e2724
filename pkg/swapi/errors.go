package swapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRequestBlocked is returned when the request budget is exhausted.
	ErrRequestBlocked = errors.New("request blocked: SWAPI request budget exhausted")

	// ErrResponseTooLarge is returned when a body exceeds Config.MaxResponseBytes.
	ErrResponseTooLarge = errors.New("response body too large")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassParse represents unreadable or malformed response bodies.
	ErrorClassParse ErrorClass = "parse"
)

// APIError is a failed SWAPI request.
type APIError struct {
	URL        string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	status := ""
	if e.StatusCode != 0 {
		status = fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("SWAPI %s error%s: %s: %v", e.ErrorClass, status, e.Message, e.Err)
	}
	return fmt.Sprintf("SWAPI %s error%s: %s", e.ErrorClass, status, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsClass reports whether err is an *APIError of the given class.
func IsClass(err error, class ErrorClass) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.ErrorClass == class
}

// classifyStatus maps an HTTP status to an error class.
// Returns "" for non-error statuses.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// client and parse errors repeat identically
		return false
	}
}
