// ABOUTME: Opens the configured record backend and builds the wallet service.
// ABOUTME: Supports walletd over HTTP, a local SQLite file, and PocketBase.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/YAP-Technologies-Inc/Yap-landing/internal/offline"
	"github.com/YAP-Technologies-Inc/Yap-landing/internal/pocketbase"
	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

// serviceConfig is what every wallet command builds its Service with.
// Tests lower the KDF cost through it.
var serviceConfig = vault.DefaultConfig

type walletApp struct {
	cfg    *Config
	store  vault.RecordStore
	cache  *offline.Cache
	svc    *vault.Service
	log    zerolog.Logger
	closer func() error
}

func openApp(ctx context.Context, cfg *Config) (*walletApp, error) {
	logger := newLogger(cfg.LogLevel).With().Str("device", cfg.DeviceID).Logger()
	a := &walletApp{cfg: cfg, log: logger, closer: func() error { return nil }}

	switch cfg.Backend {
	case BackendHTTP:
		a.store = vault.NewClient(vault.ClientConfig{BaseURL: cfg.Server})
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DB), 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		st, err := vault.OpenStore(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store, a.closer = st, st.Close
	case BackendPocketBase:
		pb := &pocketbase.HTTPClient{BaseURL: cfg.PBURL, Token: cfg.PBToken}
		if pb.Token == "" {
			if err := pb.AuthWithPassword(ctx, cfg.PBIdentity, cfg.PBPassword); err != nil {
				return nil, fmt.Errorf("pocketbase auth: %w", err)
			}
		}
		a.store = pb
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	opts := []vault.Option{vault.WithConfig(serviceConfig()), vault.WithLogger(logger)}
	if cfg.CacheDB != "" {
		cache, err := offline.Open(cfg.CacheDB)
		if err != nil {
			_ = a.closer()
			return nil, fmt.Errorf("open offline cache: %w", err)
		}
		a.cache = cache
		opts = append(opts, vault.WithOfflineCache(cache))
	}
	a.svc = vault.NewService(a.store, opts...)
	return a, nil
}

func (a *walletApp) Close() error {
	err := a.closer()
	if a.cache != nil {
		err = errors.Join(err, a.cache.Close())
	}
	return err
}

// withApp loads config, opens the backend, and runs fn.
func withApp(ctx context.Context, fn func(*walletApp) error) (err error) {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

// resolveEmail picks the flag value or the configured default.
func (a *walletApp) resolveEmail(flagEmail string) (string, error) {
	email := vault.NormalizeEmail(flagEmail)
	if email == "" {
		email = vault.NormalizeEmail(a.cfg.Email)
	}
	if email == "" {
		return "", errors.New("email required (-email or YAPWALLET_EMAIL)")
	}
	return email, nil
}
