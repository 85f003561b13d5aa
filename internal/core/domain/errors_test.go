package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error with type and message",
			err:      &Error{Type: ErrorTypeNetwork, Message: "connection reset"},
			expected: "network: connection reset",
		},
		{
			name:     "error with type, code, and message",
			err:      &Error{Type: ErrorTypeConfiguration, Code: ErrorCodeNoActiveConfig, Message: "no active provider"},
			expected: "configuration (no_active_config): no active provider",
		},
		{
			name:     "error with cause",
			err:      ErrNetwork("leg 2 failed").WithCause(context.DeadlineExceeded),
			expected: "network: leg 2 failed: context deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected int
	}{
		{"configuration", ErrConfiguration("x"), http.StatusUnprocessableEntity},
		{"provider not found", ErrProviderNotFound("nope"), http.StatusNotFound},
		{"conflict", ErrGenerationInFlight("abc"), http.StatusConflict},
		{"network", ErrNetwork("x"), http.StatusBadGateway},
		{"timeout", ErrNetwork("x").WithCode(ErrorCodeTimeout), http.StatusGatewayTimeout},
		{"provider", ErrProvider("x"), http.StatusBadGateway},
		{"persistence", ErrPersistence("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestError_Classification(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", ErrProvider("no image url"))

	if !IsProvider(wrapped) {
		t.Error("IsProvider() = false for wrapped provider error")
	}
	if IsNetwork(wrapped) {
		t.Error("IsNetwork() = true for provider error")
	}
	if TypeOf(errors.New("plain")) != "" {
		t.Error("TypeOf() should be empty for non-studio errors")
	}
	if !errors.Is(ErrNetwork("x").WithCause(context.Canceled), context.Canceled) {
		t.Error("errors.Is should see the cause")
	}
}

func TestError_Retryable(t *testing.T) {
	if ErrConfiguration("x").Retryable() {
		t.Error("configuration errors must not be retryable")
	}
	if !ErrNetwork("x").Retryable() {
		t.Error("network errors must be retryable")
	}
}
