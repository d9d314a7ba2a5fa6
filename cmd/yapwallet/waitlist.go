package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

// cmdWaitlist signs an email up for the waitlist through walletd. No wallet
// material is created.
func cmdWaitlist(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("waitlist", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	language := fs.String("language", "en", "language being learned")
	accept := fs.Bool("accept-terms", false, "accept the terms of service")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(ctx, func(a *walletApp) error {
		client, ok := a.store.(*vault.Client)
		if !ok {
			return fmt.Errorf("waitlist signup needs the http backend (configured: %s)", a.cfg.Backend)
		}
		addr, err := a.resolveEmail(*email)
		if err != nil {
			return err
		}
		if !*accept {
			return errors.New("terms must be accepted (-accept-terms)")
		}

		entry, err := client.JoinWaitlist(ctx, vault.WaitlistEntry{
			Email:       addr,
			Name:        *name,
			Language:    *language,
			AcceptTerms: true,
		})
		if errors.Is(err, vault.ErrIdentityExists) {
			return fmt.Errorf("%s is already registered", addr)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Joined the waitlist as %s (user %s)\n", entry.Email, entry.UserID)
		return nil
	})
}
