// ABOUTME: Provides BIP39 mnemonic generation and validation for wallet seeds.
// ABOUTME: The mnemonic is the only secret the wallet addresses are derived from.
package vault

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// NewMnemonic generates a BIP39 mnemonic from bits of entropy drawn from p
// (128 for 12 words, 256 for 24 words).
func NewMnemonic(p Provider, bits int) (string, error) {
	if bits == 0 {
		bits = 128
	}
	if bits%32 != 0 || bits < 128 || bits > 256 {
		return "", fmt.Errorf("mnemonic entropy must be 128-256 bits in multiples of 32, got %d", bits)
	}
	entropy, err := p.RandomBytes(bits / 8)
	if err != nil {
		return "", fmt.Errorf("mnemonic entropy: %w", err)
	}
	defer zero(entropy)

	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic checks word list membership and checksum.
func ValidateMnemonic(mnemonic string) error {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return fmt.Errorf("%w: mnemonic required", ErrInvalidMnemonic)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return ErrInvalidMnemonic
	}
	return nil
}

// NormalizeMnemonic lowercases a typed or pasted phrase and collapses its
// whitespace to single spaces.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

// SeedFromMnemonic validates a mnemonic and returns its 64-byte BIP39 seed
// with an empty BIP39 passphrase.
func SeedFromMnemonic(mnemonic string) ([]byte, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}
	return bip39.NewSeed(strings.TrimSpace(mnemonic), ""), nil
}
