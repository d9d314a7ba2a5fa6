package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	KeySize   = 32
	SaltSize  = 16
	NonceSize = 12
	TagSize   = 16
)

// Suite selects the AEAD used by a Provider. Both suites take a 256-bit key
// and a 96-bit nonce so bundles keep the same shape.
type Suite string

const (
	SuiteAESGCM           Suite = "aes-256-gcm"
	SuiteChaCha20Poly1305 Suite = "chacha20-poly1305"
)

// Provider is the cryptographic capability the wallet flows run on.
// It is injected so tests can swap in deterministic or failing sources.
type Provider interface {
	DeriveKey(password, salt []byte, params KDFParams) ([]byte, error)
	Seal(key, nonce, plaintext, aad []byte) ([]byte, error)
	Open(key, nonce, ciphertext, aad []byte) ([]byte, error)
	RandomBytes(n int) ([]byte, error)
}

// StdProvider implements Provider with x/crypto KDFs and an AEAD suite.
type StdProvider struct {
	Suite Suite
	Rand  io.Reader // defaults to crypto/rand.Reader
}

// NewProvider returns a provider for the given suite.
func NewProvider(suite Suite) *StdProvider {
	return &StdProvider{Suite: suite}
}

// DefaultProvider returns the AES-256-GCM provider.
func DefaultProvider() *StdProvider {
	return NewProvider(SuiteAESGCM)
}

// DeriveKey runs the KDF named by params over password and salt.
func (p *StdProvider) DeriveKey(password, salt []byte, params KDFParams) ([]byte, error) {
	keyLen := params.KeyLen
	if keyLen == 0 {
		keyLen = KeySize
	}
	switch params.Algorithm {
	case KDFPBKDF2SHA256, "":
		if params.Iterations <= 0 {
			return nil, errors.New("pbkdf2 iterations must be positive")
		}
		return pbkdf2.Key(password, salt, params.Iterations, int(keyLen), sha256.New), nil
	case KDFArgon2id:
		if params.Time == 0 || params.MemoryMB == 0 || params.Threads == 0 {
			return nil, errors.New("argon2id params must be positive")
		}
		return argon2.IDKey(password, salt, params.Time, params.MemoryMB*1024, params.Threads, keyLen), nil
	default:
		return nil, fmt.Errorf("unsupported kdf %q", params.Algorithm)
	}
}

// Seal encrypts plaintext under key with the given nonce and aad binding.
func (p *StdProvider) Seal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := p.aead(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open reverses Seal.
func (p *StdProvider) Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := p.aead(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}
	return aead.Open(nil, nonce, ciphertext, aad)
}

// RandomBytes returns n bytes from the entropy source, failing closed on short reads.
func (p *StdProvider) RandomBytes(n int) ([]byte, error) {
	r := p.Rand
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("entropy source: %w", err)
	}
	return b, nil
}

func (p *StdProvider) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, errors.New("invalid key size")
	}
	switch p.Suite {
	case SuiteAESGCM, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case SuiteChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("unsupported suite %q", p.Suite)
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
