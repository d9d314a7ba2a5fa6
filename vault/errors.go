// ABOUTME: Typed errors for wallet create, recover, and passphrase-change operations.
// ABOUTME: Enables programmatic error handling with errors.Is() and errors.As().
package vault

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic handling.
var (
	ErrWeakPassphrase    = errors.New("weak passphrase")
	ErrDecryptFailed     = errors.New("decrypt failed")
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrIdentityExists    = errors.New("identity already exists")
	ErrBoundary          = errors.New("boundary failure")
	ErrTimeout           = errors.New("operation timed out")
	ErrNetworkFailure    = errors.New("network failure")
	ErrServerError       = errors.New("server error")
	ErrInvalidBundle     = errors.New("invalid encrypted bundle")
	ErrAddressMismatch   = errors.New("address does not match public key")
	ErrAddressesChanged  = errors.New("wallet addresses cannot change")
	ErrInvalidMnemonic   = errors.New("invalid mnemonic phrase")
)

// WeakPassphraseError is returned when the strength gate rejects a passphrase.
// No key derivation has happened when this error is returned.
type WeakPassphraseError struct {
	Score    int
	Feedback []string
}

func (e *WeakPassphraseError) Error() string {
	if len(e.Feedback) == 0 {
		return fmt.Sprintf("weak passphrase (score %d)", e.Score)
	}
	return fmt.Sprintf("weak passphrase (score %d): %s", e.Score, strings.Join(e.Feedback, ", "))
}

func (e *WeakPassphraseError) Is(target error) bool {
	return target == ErrWeakPassphrase
}

// DecryptError reports an AEAD authentication failure on one encryption layer.
// Service never lets it escape; callers only see ErrInvalidPassphrase.
type DecryptError struct {
	Layer string // "stretched-key" or "mnemonic"
	Cause error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("decrypt failed (%s layer): %v", e.Layer, e.Cause)
}

func (e *DecryptError) Unwrap() error {
	return e.Cause
}

func (e *DecryptError) Is(target error) bool {
	return target == ErrDecryptFailed
}

// BoundaryError wraps failures of the persistence boundary with operation context.
type BoundaryError struct {
	Op      string // "lookup", "register", "replace"
	Status  int    // HTTP status if any
	Detail  string // server message if any
	Retries int    // attempts made
	Err     error  // underlying typed error
}

func (e *BoundaryError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.Retries > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Retries)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BoundaryError) Unwrap() error {
	return e.Err
}

func (e *BoundaryError) Is(target error) bool {
	return target == ErrBoundary
}
