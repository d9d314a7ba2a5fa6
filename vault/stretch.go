// ABOUTME: Stretches a low-entropy passphrase into a 256-bit key with a slow KDF.
// ABOUTME: The salt is derived from the normalized email only, so the key is reproducible.
package vault

import (
	"context"
	"errors"
	"strings"
)

// Key is a stretched passphrase. It only ever exists in client memory.
type Key [KeySize]byte

// Zero overwrites the key material.
func (k *Key) Zero() {
	for i := range k {
		k[i] = 0
	}
}

func keyFromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, errors.New("derived key has wrong length")
	}
	copy(k[:], b)
	return k, nil
}

// NormalizeEmail trims and lower-cases an email so every derivation and
// lookup uses the same bytes.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StretchSalt returns the stable salt for an email.
func StretchSalt(email string) []byte {
	return []byte("yap-secure-" + NormalizeEmail(email))
}

// Stretcher derives stretched keys from passphrases.
type Stretcher struct {
	provider Provider
	params   KDFParams
}

// NewStretcher builds a stretcher; zero params use DefaultKDFParams.
func NewStretcher(p Provider, params KDFParams) *Stretcher {
	if params.Algorithm == "" {
		params = DefaultKDFParams()
	}
	return &Stretcher{provider: p, params: params}
}

// Stretch derives the key for (passphrase, email). Identical inputs always
// yield the identical key under the same params. The KDF itself is not
// interruptible; ctx is checked before it starts.
func (s *Stretcher) Stretch(ctx context.Context, passphrase, email string) (Key, error) {
	if err := ctx.Err(); err != nil {
		return Key{}, err
	}
	if passphrase == "" {
		return Key{}, errors.New("passphrase required")
	}
	if NormalizeEmail(email) == "" {
		return Key{}, errors.New("email required")
	}
	pw := []byte(passphrase)
	defer zero(pw)

	out, err := s.provider.DeriveKey(pw, StretchSalt(email), s.params)
	if err != nil {
		return Key{}, err
	}
	defer zero(out)
	return keyFromBytes(out)
}
