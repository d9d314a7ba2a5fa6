// ABOUTME: Tests for boundary retry with exponential backoff.
// ABOUTME: Verifies retry behavior, attempt accounting, and error classification.
package vault

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialWait != 500*time.Millisecond {
		t.Errorf("InitialWait = %v, want 500ms", cfg.InitialWait)
	}
	if cfg.MaxWait != 30*time.Second {
		t.Errorf("MaxWait = %v, want 30s", cfg.MaxWait)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", cfg.Multiplier)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"network failure", ErrNetworkFailure, true},
		{"server error", ErrServerError, true},
		{"not found", ErrIdentityNotFound, false},
		{"exists", ErrIdentityExists, false},
		{"wrapped network", &BoundaryError{Err: ErrNetworkFailure}, true},
		{"wrapped 5xx", &BoundaryError{Status: 503, Err: ErrServerError}, true},
		{"wrapped not found", &BoundaryError{Status: 404, Err: ErrIdentityNotFound}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Retryable(tt.err)
			if got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetry_SuccessFirstAttempt(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond}
	attempts := 0

	result, err := WithRetry(context.Background(), cfg, "test", func() (string, error) {
		attempts++
		return "success", nil
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "success" {
		t.Errorf("result = %q, want %q", result, "success")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestWithRetry_SuccessAfterRetries(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, Multiplier: 1.0}
	attempts := 0

	result, err := WithRetry(context.Background(), cfg, "test", func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", ErrNetworkFailure
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "success" {
		t.Errorf("result = %q, want %q", result, "success")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetry_ExhaustedRetries(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, Multiplier: 1.0}
	attempts := 0

	_, err := WithRetry(context.Background(), cfg, "lookup", func() (string, error) {
		attempts++
		return "", ErrNetworkFailure
	})

	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	var be *BoundaryError
	if !errors.As(err, &be) {
		t.Fatal("expected *BoundaryError")
	}
	if be.Op != "lookup" {
		t.Errorf("Op = %q, want %q", be.Op, "lookup")
	}
	if be.Retries != 3 {
		t.Errorf("Retries = %d, want 3", be.Retries)
	}
}

func TestWithRetry_NonRetryableError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond}
	attempts := 0

	_, err := WithRetry(context.Background(), cfg, "lookup", func() (string, error) {
		attempts++
		return "", &BoundaryError{Op: "lookup", Status: 404, Detail: "no such user", Err: ErrIdentityNotFound}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (should not retry non-retryable)", attempts)
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("expected ErrIdentityNotFound, got %v", err)
	}
	var be *BoundaryError
	if !errors.As(err, &be) || be.Status != 404 || be.Detail != "no such user" || be.Retries != 1 {
		t.Errorf("boundary details not preserved: %+v", be)
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, InitialWait: 100 * time.Millisecond, Multiplier: 1.0}
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := WithRetry(ctx, cfg, "test", func() (string, error) {
		attempts++
		return "", ErrNetworkFailure
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
