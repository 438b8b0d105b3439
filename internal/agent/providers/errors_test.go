package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want FailoverReason
	}{
		{errors.New("context deadline exceeded"), FailoverTimeout},
		{errors.New("429 too many requests"), FailoverRateLimit},
		{errors.New("invalid api key provided"), FailoverAuth},
		{errors.New("quota exceeded for this billing period"), FailoverBilling},
		{errors.New("model not found: gpt-99"), FailoverModelUnavailable},
		{errors.New("502 bad gateway"), FailoverServerError},
		{errors.New("something odd happened"), FailoverUnknown},
		{nil, FailoverUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyError(tc.err); got != tc.want {
			t.Errorf("ClassifyError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestFailoverReason_IsRetryable(t *testing.T) {
	retryable := []FailoverReason{FailoverRateLimit, FailoverTimeout, FailoverServerError}
	for _, r := range retryable {
		if !r.IsRetryable() {
			t.Errorf("%v.IsRetryable() = false", r)
		}
	}
	terminal := []FailoverReason{FailoverAuth, FailoverBilling, FailoverInvalidRequest, FailoverModelUnavailable, FailoverUnknown}
	for _, r := range terminal {
		if r.IsRetryable() {
			t.Errorf("%v.IsRetryable() = true", r)
		}
	}
}

func TestProviderError_WithStatus(t *testing.T) {
	cases := []struct {
		status int
		want   FailoverReason
	}{
		{http.StatusTooManyRequests, FailoverRateLimit},
		{http.StatusUnauthorized, FailoverAuth},
		{http.StatusPaymentRequired, FailoverBilling},
		{http.StatusBadRequest, FailoverInvalidRequest},
		{http.StatusNotFound, FailoverModelUnavailable},
		{http.StatusInternalServerError, FailoverServerError},
	}
	for _, tc := range cases {
		err := NewProviderError("openai", "gpt-4o", errors.New("boom")).WithStatus(tc.status)
		if err.Reason != tc.want {
			t.Errorf("WithStatus(%d).Reason = %v, want %v", tc.status, err.Reason, tc.want)
		}
	}
}

func TestProviderError_ErrorStringAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewProviderError("anthropic", "claude-sonnet-4-20250514", cause)

	msg := err.Error()
	for _, part := range []string{"anthropic", "model=claude-sonnet-4-20250514", "connection refused"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error() = %q, want it to contain %q", msg, part)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want unwrap chain")
	}
}

func TestIsRetryable_UnwrapsProviderError(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w",
		NewProviderError("openai", "gpt-4o", errors.New("x")).WithStatus(http.StatusServiceUnavailable))
	if !IsRetryable(wrapped) {
		t.Error("IsRetryable() = false for wrapped 503")
	}

	auth := NewProviderError("openai", "gpt-4o", errors.New("x")).WithStatus(http.StatusUnauthorized)
	if IsRetryable(auth) {
		t.Error("IsRetryable() = true for 401")
	}
}
