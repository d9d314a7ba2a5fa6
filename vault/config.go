package vault

import "time"

// KDFAlgorithm names a password-based key derivation function.
type KDFAlgorithm string

const (
	KDFPBKDF2SHA256 KDFAlgorithm = "pbkdf2-sha256"
	KDFArgon2id     KDFAlgorithm = "argon2id"
)

// KDFParams configures key derivation hardness values.
// Iterations applies to PBKDF2; Time, MemoryMB and Threads apply to Argon2id.
type KDFParams struct {
	Algorithm  KDFAlgorithm
	Iterations int
	Time       uint32
	MemoryMB   uint32
	Threads    uint8
	KeyLen     uint32
}

// DefaultKDFParams returns the passphrase stretching defaults:
// PBKDF2-SHA256 with 600k iterations and a 256-bit output.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Algorithm:  KDFPBKDF2SHA256,
		Iterations: 600_000,
		KeyLen:     KeySize,
	}
}

// DefaultArgon2Params returns Argon2id defaults reasonable for desktops/laptops.
func DefaultArgon2Params() KDFParams {
	return KDFParams{
		Algorithm: KDFArgon2id,
		MemoryMB:  256,
		Time:      2,
		Threads:   1,
		KeyLen:    KeySize,
	}
}

// DefaultWrapParams returns the KDF used to derive the stretched-key wrapping key
// from the email and a random salt.
func DefaultWrapParams() KDFParams {
	return KDFParams{
		Algorithm:  KDFPBKDF2SHA256,
		Iterations: 100_000,
		KeyLen:     KeySize,
	}
}

// Config controls Service behavior.
type Config struct {
	Stretch          KDFParams     // passphrase -> stretched key
	Wrap             KDFParams     // email + salt -> stretched-key wrapping key
	OperationTimeout time.Duration // per create/recover/change operation (default: 10s)
	MnemonicBits     int           // 128 (12 words) or 256 (24 words)
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Stretch:          DefaultKDFParams(),
		Wrap:             DefaultWrapParams(),
		OperationTimeout: 10 * time.Second,
		MnemonicBits:     128,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Stretch.Algorithm == "" {
		c.Stretch = def.Stretch
	}
	if c.Wrap.Algorithm == "" {
		c.Wrap = def.Wrap
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = def.OperationTimeout
	}
	if c.MnemonicBits == 0 {
		c.MnemonicBits = def.MnemonicBits
	}
	return c
}

// ClientConfig controls the HTTP boundary client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Retry   RetryConfig // retry settings for lookups (zero uses defaults)
}

// GetRetryConfig returns Retry config or defaults if not set.
func (c ClientConfig) GetRetryConfig() RetryConfig {
	if c.Retry.MaxAttempts == 0 {
		return DefaultRetryConfig()
	}
	return c.Retry
}
