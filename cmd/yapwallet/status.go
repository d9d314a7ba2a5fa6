// ABOUTME: status and forget commands for configuration, backend reachability and the offline cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/YAP-Technologies-Inc/Yap-landing/internal/offline"
	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

func cmdStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	email := fs.String("email", "", "show the cached wallet for this email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(ctx, func(a *walletApp) error {
		if *email != "" {
			return showCached(ctx, a, *email)
		}
		cfg := a.cfg
		fmt.Fprintf(stdout, "Config path: %s\n", ConfigPath())
		fmt.Fprintf(stdout, "Device ID:   %s\n", valueOrNone(cfg.DeviceID))
		fmt.Fprintf(stdout, "Email:       %s\n", valueOrNone(cfg.Email))
		fmt.Fprintf(stdout, "Backend:     %s\n", cfg.Backend)

		switch st := a.store.(type) {
		case *vault.Client:
			fmt.Fprintf(stdout, "Server:      %s\n", cfg.Server)
			h := st.Health(ctx)
			if h.OK {
				fmt.Fprintf(stdout, "Health:      ok (%s)\n", h.Latency.Round(time.Millisecond))
			} else {
				fmt.Fprintf(stdout, "Health:      unreachable (%s)\n", h.Error)
			}
		case *vault.Store:
			fmt.Fprintf(stdout, "Database:    %s\n", cfg.DB)
			n, err := st.Count(ctx)
			if err != nil {
				return fmt.Errorf("count records: %w", err)
			}
			fmt.Fprintf(stdout, "Wallets:     %d\n", n)
		default:
			fmt.Fprintf(stdout, "PocketBase:  %s\n", cfg.PBURL)
		}

		if a.cache == nil {
			fmt.Fprintln(stdout, "Offline cache: disabled")
			return nil
		}
		emails, err := a.cache.Emails(ctx)
		if err != nil {
			return fmt.Errorf("read offline cache: %w", err)
		}
		fmt.Fprintf(stdout, "Offline cache: %s (%d cached)\n", cfg.CacheDB, len(emails))
		for _, e := range emails {
			fmt.Fprintf(stdout, "  %s\n", e)
		}
		return nil
	})
}

// showCached prints one offline cache entry. Only public data is shown.
func showCached(ctx context.Context, a *walletApp, email string) error {
	if a.cache == nil {
		return errors.New("offline cache is disabled")
	}
	addr := vault.NormalizeEmail(email)
	e, err := a.cache.Get(ctx, addr)
	if errors.Is(err, offline.ErrNotCached) {
		return fmt.Errorf("no cached wallet for %s", addr)
	}
	if err != nil {
		return fmt.Errorf("read offline cache: %w", err)
	}
	fmt.Fprintf(stdout, "Email:       %s\n", e.Email)
	fmt.Fprintf(stdout, "Cached at:   %s\n", e.CachedAt.Format(time.RFC3339))
	printAddresses(e.Addresses)
	return nil
}

// cmdForget drops a wallet from the offline cache. The backend record is
// untouched.
func cmdForget(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forget", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(ctx, func(a *walletApp) error {
		if a.cache == nil {
			return errors.New("offline cache is disabled")
		}
		addr, err := a.resolveEmail(*email)
		if err != nil {
			return err
		}
		if _, err := a.cache.Get(ctx, addr); errors.Is(err, offline.ErrNotCached) {
			return fmt.Errorf("no cached wallet for %s", addr)
		} else if err != nil {
			return fmt.Errorf("read offline cache: %w", err)
		}
		if err := a.cache.Delete(ctx, addr); err != nil {
			return fmt.Errorf("forget %s: %w", addr, err)
		}
		fmt.Fprintf(stdout, "Removed %s from the offline cache\n", addr)
		return nil
	})
}

// valueOrNone returns the value or "(not set)" if empty.
func valueOrNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
