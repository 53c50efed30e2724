package swapi

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{"client error should not retry", ErrorClassClient, false},
		{"parse error should not retry", ErrorClassParse, false},
		{"server error should retry", ErrorClassServer, true},
		{"rate limit should retry", ErrorClassRateLimit, true},
		{"network error should retry", ErrorClassNetwork, true},
		{"empty error class should not retry", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, got, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{200, ""},
		{304, ""},
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{405, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "status error",
			err:  &APIError{StatusCode: 503, ErrorClass: ErrorClassServer, Message: "503 Service Unavailable"},
			want: "SWAPI server error (status 503): 503 Service Unavailable",
		},
		{
			name: "network error with cause",
			err:  &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: errors.New("connection refused")},
			want: "SWAPI network error: request failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := fmt.Errorf("fetch page 2: %w", &APIError{ErrorClass: ErrorClassParse, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through APIError")
	}
	if !IsClass(err, ErrorClassParse) {
		t.Error("IsClass(err, parse) = false, want true")
	}
	if IsClass(err, ErrorClassNetwork) {
		t.Error("IsClass(err, network) = true, want false")
	}
	if IsClass(cause, ErrorClassParse) {
		t.Error("IsClass on a plain error should be false")
	}
}

func TestClassifyError(t *testing.T) {
	if got := classifyError(&APIError{ErrorClass: ErrorClassServer}); got != ErrorClassServer {
		t.Errorf("classifyError(APIError) = %q, want server", got)
	}
	if got := classifyError(errors.New("other")); got != "" {
		t.Errorf("classifyError(plain) = %q, want empty", got)
	}
}
