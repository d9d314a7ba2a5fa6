package vault

import "errors"

const mnemonicAADPrefix = "yap:mnemonic:v1|"

func mnemonicAAD(salt []byte) []byte {
	return append([]byte(mnemonicAADPrefix), salt...)
}

// SeedSealer encrypts the seed phrase directly under the stretched key.
type SeedSealer struct {
	provider Provider
}

// NewSeedSealer returns a sealer backed by p.
func NewSeedSealer(p Provider) *SeedSealer {
	return &SeedSealer{provider: p}
}

// EncryptMnemonic seals mnemonic with a fresh salt and nonce. The salt is
// authenticated as associated data.
func (s *SeedSealer) EncryptMnemonic(mnemonic string, key Key) (EncryptedBundle, error) {
	if mnemonic == "" {
		return EncryptedBundle{}, errors.New("mnemonic required")
	}
	salt, err := s.provider.RandomBytes(SaltSize)
	if err != nil {
		return EncryptedBundle{}, err
	}
	nonce, err := s.provider.RandomBytes(NonceSize)
	if err != nil {
		return EncryptedBundle{}, err
	}
	plain := []byte(mnemonic)
	defer zero(plain)

	ct, err := s.provider.Seal(key[:], nonce, plain, mnemonicAAD(salt))
	if err != nil {
		return EncryptedBundle{}, err
	}
	return NewEncryptedBundle(ct, salt, nonce)
}

// DecryptMnemonic opens a mnemonic bundle. A wrong key or any modified byte
// yields a *DecryptError.
func (s *SeedSealer) DecryptMnemonic(b EncryptedBundle, key Key) (string, error) {
	if err := b.Validate(); err != nil {
		return "", &DecryptError{Layer: "mnemonic", Cause: err}
	}
	plain, err := s.provider.Open(key[:], b.Nonce, b.Ciphertext, mnemonicAAD(b.Salt))
	if err != nil {
		return "", &DecryptError{Layer: "mnemonic", Cause: err}
	}
	defer zero(plain)
	return string(plain), nil
}
