// ABOUTME: Tests for typed wallet errors.
// ABOUTME: Verifies error wrapping, unwrapping, and Is() matching.
package vault

import (
	"errors"
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	// Verify sentinel errors are distinct
	sentinels := []error{
		ErrWeakPassphrase,
		ErrDecryptFailed,
		ErrInvalidPassphrase,
		ErrIdentityNotFound,
		ErrIdentityExists,
		ErrBoundary,
		ErrTimeout,
		ErrNetworkFailure,
		ErrServerError,
		ErrInvalidBundle,
		ErrAddressMismatch,
		ErrAddressesChanged,
		ErrInvalidMnemonic,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel errors should be distinct: %v matches %v", a, b)
			}
		}
	}
}

func TestBoundaryError_Error(t *testing.T) {
	err := &BoundaryError{
		Op:      "lookup",
		Err:     ErrNetworkFailure,
		Retries: 3,
		Detail:  "connection refused",
	}

	got := err.Error()
	want := "lookup failed after 3 attempts: connection refused: network failure"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	single := &BoundaryError{Op: "register", Err: ErrIdentityExists, Retries: 1}
	if single.Error() != "register failed: identity already exists" {
		t.Errorf("Error() = %q", single.Error())
	}
}

func TestBoundaryError_Unwrap(t *testing.T) {
	err := &BoundaryError{
		Op:     "lookup",
		Status: 404,
		Err:    ErrIdentityNotFound,
	}

	if !errors.Is(err, ErrIdentityNotFound) {
		t.Error("errors.Is should match wrapped ErrIdentityNotFound")
	}
	if !errors.Is(err, ErrBoundary) {
		t.Error("errors.Is should match ErrBoundary")
	}
	if errors.Is(err, ErrNetworkFailure) {
		t.Error("errors.Is should not match ErrNetworkFailure")
	}

	var be *BoundaryError
	if !errors.As(err, &be) || be.Status != 404 {
		t.Error("errors.As should recover the status")
	}
}

func TestWeakPassphraseError(t *testing.T) {
	err := &WeakPassphraseError{Score: 2, Feedback: []string{"too short", "add digits"}}

	if !errors.Is(err, ErrWeakPassphrase) {
		t.Error("errors.Is should match ErrWeakPassphrase")
	}
	if got := err.Error(); got != "weak passphrase (score 2): too short, add digits" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&WeakPassphraseError{Score: 1}).Error(); got != "weak passphrase (score 1)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDecryptError(t *testing.T) {
	cause := errors.New("message authentication failed")
	err := &DecryptError{Layer: "mnemonic", Cause: cause}

	if !errors.Is(err, ErrDecryptFailed) {
		t.Error("errors.Is should match ErrDecryptFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should match the cause")
	}
	if errors.Is(err, ErrInvalidPassphrase) {
		t.Error("DecryptError must not masquerade as ErrInvalidPassphrase")
	}
	if !strings.Contains(err.Error(), "mnemonic layer") {
		t.Errorf("Error() = %q, should name the layer", err.Error())
	}
}
