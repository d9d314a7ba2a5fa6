package vault

import "errors"

var stretchedKeyAAD = []byte("yap:stretched-key:v1")

// KeyWrapper encrypts stretched keys for server storage under a key derived
// from the user's email and a random salt.
type KeyWrapper struct {
	provider Provider
	params   KDFParams
}

// NewKeyWrapper builds a wrapper; zero params use DefaultWrapParams.
func NewKeyWrapper(p Provider, params KDFParams) *KeyWrapper {
	if params.Algorithm == "" {
		params = DefaultWrapParams()
	}
	return &KeyWrapper{provider: p, params: params}
}

func (w *KeyWrapper) wrapKey(email string, salt []byte) ([]byte, error) {
	input := append([]byte(NormalizeEmail(email)), salt...)
	defer zero(input)
	return w.provider.DeriveKey(input, salt, w.params)
}

// EncryptStretchedKey seals key with a fresh salt and nonce.
func (w *KeyWrapper) EncryptStretchedKey(key Key, email string) (EncryptedBundle, error) {
	if NormalizeEmail(email) == "" {
		return EncryptedBundle{}, errors.New("email required")
	}
	salt, err := w.provider.RandomBytes(SaltSize)
	if err != nil {
		return EncryptedBundle{}, err
	}
	nonce, err := w.provider.RandomBytes(NonceSize)
	if err != nil {
		return EncryptedBundle{}, err
	}
	wk, err := w.wrapKey(email, salt)
	if err != nil {
		return EncryptedBundle{}, err
	}
	defer zero(wk)

	ct, err := w.provider.Seal(wk, nonce, key[:], stretchedKeyAAD)
	if err != nil {
		return EncryptedBundle{}, err
	}
	return NewEncryptedBundle(ct, salt, nonce)
}

// DecryptStretchedKey recovers the stretched key. Any tampering or a wrong
// email yields a *DecryptError.
func (w *KeyWrapper) DecryptStretchedKey(b EncryptedBundle, email string) (Key, error) {
	if err := b.Validate(); err != nil {
		return Key{}, &DecryptError{Layer: "stretched-key", Cause: err}
	}
	wk, err := w.wrapKey(email, b.Salt)
	if err != nil {
		return Key{}, err
	}
	defer zero(wk)

	plain, err := w.provider.Open(wk, b.Nonce, b.Ciphertext, stretchedKeyAAD)
	if err != nil {
		return Key{}, &DecryptError{Layer: "stretched-key", Cause: err}
	}
	defer zero(plain)
	k, err := keyFromBytes(plain)
	if err != nil {
		return Key{}, &DecryptError{Layer: "stretched-key", Cause: err}
	}
	return k, nil
}
