// ABOUTME: Orchestrates wallet create, recover and passphrase-change flows.
// ABOUTME: Secrets stay in process; only encrypted bundles and addresses reach the RecordStore.
package vault

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// OfflineCache keeps encrypted material on the device after create or recover.
// It is optional and never sees plaintext.
type OfflineCache interface {
	Put(ctx context.Context, email string, mnemonic EncryptedBundle, addrs Addresses) error
}

// Service runs the wallet flows against a RecordStore.
type Service struct {
	store     RecordStore
	provider  Provider
	cfg       Config
	log       zerolog.Logger
	deriver   AddressDeriver
	cache     OfflineCache
	stretcher *Stretcher
	wrapper   *KeyWrapper
	sealer    *SeedSealer
}

// Option configures a Service.
type Option func(*Service)

// WithProvider replaces the crypto provider.
func WithProvider(p Provider) Option { return func(s *Service) { s.provider = p } }

// WithConfig replaces KDF params, timeout and mnemonic size.
func WithConfig(c Config) Option { return func(s *Service) { s.cfg = c } }

// WithLogger sets the operation logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// WithAddressDeriver replaces BIP44 address derivation.
func WithAddressDeriver(d AddressDeriver) Option { return func(s *Service) { s.deriver = d } }

// WithOfflineCache enables the on-device cache.
func WithOfflineCache(c OfflineCache) Option { return func(s *Service) { s.cache = c } }

// NewService builds a Service over store.
func NewService(store RecordStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		provider: DefaultProvider(),
		cfg:      DefaultConfig(),
		log:      zerolog.Nop(),
		deriver:  HDDeriver{},
	}
	for _, o := range opts {
		o(s)
	}
	s.cfg = s.cfg.withDefaults()
	s.stretcher = NewStretcher(s.provider, s.cfg.Stretch)
	s.wrapper = NewKeyWrapper(s.provider, s.cfg.Wrap)
	s.sealer = NewSeedSealer(s.provider)
	return s
}

// CreateRequest carries the inputs of a new wallet.
type CreateRequest struct {
	Email      string
	Passphrase string
	Name       string
	Language   string
	// Mnemonic, when set, is an existing recovery phrase to wrap instead of
	// generating a new one.
	Mnemonic string
}

// CreateResult is returned once. Mnemonic is the only copy the caller gets.
type CreateResult struct {
	Record    UserRecord
	Addresses Addresses
	Mnemonic  string
}

// RecoverResult holds the decrypted wallet.
type RecoverResult struct {
	Record    UserRecord
	Addresses Addresses
	Mnemonic  string
}

// ChangeResult holds the re-encrypted record as stored.
type ChangeResult struct {
	Record UserRecord
}

// Evaluate scores a passphrase without touching the store.
func (s *Service) Evaluate(passphrase string) Strength {
	return EvaluatePassphrase(passphrase)
}

// Create generates a wallet, or imports req.Mnemonic, encrypts it under
// passphrase and registers it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (res CreateResult, err error) {
	start := time.Now()
	defer func() { s.logOp("create", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	email := NormalizeEmail(req.Email)
	if email == "" {
		return CreateResult{}, errors.New("email required")
	}
	if st := EvaluatePassphrase(req.Passphrase); !st.IsValid {
		return CreateResult{}, &WeakPassphraseError{Score: st.Score, Feedback: st.Feedback}
	}

	mnemonic := NormalizeMnemonic(req.Mnemonic)
	if mnemonic != "" {
		if err := ValidateMnemonic(mnemonic); err != nil {
			return CreateResult{}, err
		}
	} else if mnemonic, err = NewMnemonic(s.provider, s.cfg.MnemonicBits); err != nil {
		return CreateResult{}, err
	}
	addrs, err := await(ctx, func() (Addresses, error) { return s.deriver.DeriveAddresses(mnemonic) }, nil)
	if err != nil {
		return CreateResult{}, fmt.Errorf("derive addresses: %w", err)
	}

	sk, mn, err := s.seal(ctx, email, req.Passphrase, mnemonic)
	if err != nil {
		return CreateResult{}, err
	}

	rec, err := s.store.Register(ctx, UserRecord{
		Email:        email,
		Name:         req.Name,
		Language:     req.Language,
		StretchedKey: sk,
		Mnemonic:     mn,
		Addresses:    addrs,
	})
	if err != nil {
		return CreateResult{}, boundaryErr(ctx, err)
	}
	s.cachePut(ctx, email, rec.Mnemonic, addrs)

	return CreateResult{Record: rec, Addresses: addrs, Mnemonic: mnemonic}, nil
}

// Recover fetches the record for email and decrypts the mnemonic with passphrase.
// Every cryptographic failure is reported as ErrInvalidPassphrase.
func (s *Service) Recover(ctx context.Context, email, passphrase string) (res RecoverResult, err error) {
	start := time.Now()
	defer func() { s.logOp("recover", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	res, err = s.recover(ctx, NormalizeEmail(email), passphrase)
	if err != nil {
		return RecoverResult{}, err
	}
	s.cachePut(ctx, res.Record.Email, res.Record.Mnemonic, res.Addresses)
	return res, nil
}

// ChangePassphrase re-encrypts both layers under newPass. The mnemonic and
// addresses do not change.
func (s *Service) ChangePassphrase(ctx context.Context, email, oldPass, newPass string) (res ChangeResult, err error) {
	start := time.Now()
	defer func() { s.logOp("change-passphrase", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	if st := EvaluatePassphrase(newPass); !st.IsValid {
		return ChangeResult{}, &WeakPassphraseError{Score: st.Score, Feedback: st.Feedback}
	}

	email = NormalizeEmail(email)
	cur, err := s.recover(ctx, email, oldPass)
	if err != nil {
		return ChangeResult{}, err
	}

	sk, mn, err := s.seal(ctx, email, newPass, cur.Mnemonic)
	if err != nil {
		return ChangeResult{}, err
	}
	rec := cur.Record
	rec.StretchedKey = sk
	rec.Mnemonic = mn
	rec.Addresses = cur.Addresses

	rec, err = s.store.Replace(ctx, rec)
	if err != nil {
		return ChangeResult{}, boundaryErr(ctx, err)
	}
	s.cachePut(ctx, email, rec.Mnemonic, rec.Addresses)
	return ChangeResult{Record: rec}, nil
}

// VerifyPassphrase reports whether passphrase stretches to the key sealed in
// bundle. A bundle that does not open reports false.
func (s *Service) VerifyPassphrase(ctx context.Context, email, passphrase string, bundle EncryptedBundle) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	email = NormalizeEmail(email)
	stored, err := await(ctx, func() (Key, error) { return s.wrapper.DecryptStretchedKey(bundle, email) }, (*Key).Zero)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return false, err
		}
		return false, nil
	}
	defer stored.Zero()

	candidate, err := await(ctx, func() (Key, error) { return s.stretcher.Stretch(ctx, passphrase, email) }, (*Key).Zero)
	if errors.Is(err, context.DeadlineExceeded) {
		return false, ErrTimeout
	}
	if err != nil {
		return false, err
	}
	defer candidate.Zero()

	return VerifyKeys(stored, candidate), nil
}

// VerifyKeys compares two keys in constant time.
func VerifyKeys(a, b Key) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func (s *Service) recover(ctx context.Context, email, passphrase string) (RecoverResult, error) {
	if email == "" {
		return RecoverResult{}, errors.New("email required")
	}
	rec, err := s.store.Lookup(ctx, email)
	if err != nil {
		return RecoverResult{}, boundaryErr(ctx, err)
	}
	if passphrase == "" {
		return RecoverResult{}, ErrInvalidPassphrase
	}

	stored, err := await(ctx, func() (Key, error) { return s.wrapper.DecryptStretchedKey(rec.StretchedKey, email) }, (*Key).Zero)
	if err != nil {
		return RecoverResult{}, uniform(err)
	}
	defer stored.Zero()

	candidate, err := await(ctx, func() (Key, error) { return s.stretcher.Stretch(ctx, passphrase, email) }, (*Key).Zero)
	if err != nil {
		return RecoverResult{}, uniform(err)
	}
	defer candidate.Zero()

	if !VerifyKeys(stored, candidate) {
		return RecoverResult{}, ErrInvalidPassphrase
	}

	mnemonic, err := s.sealer.DecryptMnemonic(rec.Mnemonic, candidate)
	if err != nil {
		return RecoverResult{}, ErrInvalidPassphrase
	}
	if err := ValidateMnemonic(mnemonic); err != nil {
		return RecoverResult{}, ErrInvalidPassphrase
	}

	addrs, err := await(ctx, func() (Addresses, error) { return s.deriver.DeriveAddresses(mnemonic) }, nil)
	if err != nil {
		return RecoverResult{}, fmt.Errorf("derive addresses: %w", err)
	}
	return RecoverResult{Record: rec, Addresses: addrs, Mnemonic: mnemonic}, nil
}

// seal stretches passphrase and produces both encrypted layers.
func (s *Service) seal(ctx context.Context, email, passphrase, mnemonic string) (sk, mn EncryptedBundle, err error) {
	key, err := await(ctx, func() (Key, error) { return s.stretcher.Stretch(ctx, passphrase, email) }, (*Key).Zero)
	if errors.Is(err, context.DeadlineExceeded) {
		return sk, mn, ErrTimeout
	}
	if err != nil {
		return sk, mn, fmt.Errorf("stretch: %w", err)
	}
	defer key.Zero()

	// The goroutine gets its own copy; key is zeroed on return even if the
	// wrap is still running.
	wrapped := key
	sk, err = await(ctx, func() (EncryptedBundle, error) {
		defer wrapped.Zero()
		return s.wrapper.EncryptStretchedKey(wrapped, email)
	}, nil)
	if err != nil {
		return sk, mn, fmt.Errorf("encrypt stretched key: %w", err)
	}
	mn, err = s.sealer.EncryptMnemonic(mnemonic, key)
	if err != nil {
		return sk, mn, fmt.Errorf("encrypt mnemonic: %w", err)
	}
	return sk, mn, nil
}

func (s *Service) cachePut(ctx context.Context, email string, mn EncryptedBundle, addrs Addresses) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, email, mn, addrs); err != nil {
		s.log.Warn().Err(err).Msg("offline cache write failed")
	}
}

func (s *Service) logOp(op string, start time.Time, err error) {
	ev := s.log.Info()
	outcome := "ok"
	if err != nil {
		ev = s.log.Warn()
		outcome = outcomeOf(err)
	}
	ev.Str("op", op).Dur("duration", time.Since(start)).Str("outcome", outcome).Msg("wallet operation")
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrWeakPassphrase):
		return "weak_passphrase"
	case errors.Is(err, ErrInvalidPassphrase):
		return "invalid_passphrase"
	case errors.Is(err, ErrIdentityNotFound):
		return "not_found"
	case errors.Is(err, ErrIdentityExists):
		return "exists"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrBoundary):
		return "boundary"
	default:
		return "error"
	}
}

// uniform hides which decryption step failed.
func uniform(err error) error {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return ErrInvalidPassphrase
}

func boundaryErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, ErrIdentityNotFound) {
		return ErrIdentityNotFound
	}
	return err
}

// await runs fn on its own goroutine so a cancelled ctx returns promptly even
// while a KDF is still grinding. A result nobody is waiting for any more is
// passed to release, when set, before the goroutine exits.
func await[T any](ctx context.Context, fn func() (T, error), release func(*T)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result)
	go func() {
		v, err := fn()
		select {
		case ch <- result{v, err}:
		case <-ctx.Done():
			if release != nil {
				release(&v)
			}
		}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var empty T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return empty, ErrTimeout
		}
		return empty, ctx.Err()
	}
}
