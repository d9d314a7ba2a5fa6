package vault

import (
	"fmt"
)

// EncryptedBundle is the persisted form of one encryption layer.
type EncryptedBundle struct {
	Ciphertext []byte `json:"ciphertext"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
}

// NewEncryptedBundle copies the parts into a bundle after checking their lengths.
func NewEncryptedBundle(ciphertext, salt, nonce []byte) (EncryptedBundle, error) {
	b := EncryptedBundle{
		Ciphertext: append([]byte(nil), ciphertext...),
		Salt:       append([]byte(nil), salt...),
		Nonce:      append([]byte(nil), nonce...),
	}
	if err := b.Validate(); err != nil {
		return EncryptedBundle{}, err
	}
	return b, nil
}

// Validate checks the salt, nonce and minimum ciphertext lengths.
func (b EncryptedBundle) Validate() error {
	if len(b.Salt) != SaltSize {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidBundle, SaltSize, len(b.Salt))
	}
	if len(b.Nonce) != NonceSize {
		return fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrInvalidBundle, NonceSize, len(b.Nonce))
	}
	if len(b.Ciphertext) < TagSize {
		return fmt.Errorf("%w: ciphertext shorter than tag", ErrInvalidBundle)
	}
	return nil
}

// IsZero reports whether the bundle carries no data.
func (b EncryptedBundle) IsZero() bool {
	return len(b.Ciphertext) == 0 && len(b.Salt) == 0 && len(b.Nonce) == 0
}
