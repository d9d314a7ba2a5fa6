// ABOUTME: create, recover, change-passphrase and check commands.
// ABOUTME: Passphrases are prompted for and never accepted as flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

func cmdCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	language := fs.String("language", "en", "preferred language")
	importPhrase := fs.Bool("import", false, "wrap an existing recovery phrase instead of generating one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(ctx, func(a *walletApp) error {
		addr, err := a.resolveEmail(*email)
		if err != nil {
			return err
		}
		var phrase string
		if *importPhrase {
			raw, err := readSecret("Recovery phrase: ")
			if err != nil {
				return err
			}
			phrase = vault.NormalizeMnemonic(raw)
			if err := vault.ValidateMnemonic(phrase); err != nil {
				return errors.New("recovery phrase is not a valid BIP-39 mnemonic")
			}
		}
		pass, err := promptNewPassphrase("Passphrase")
		if err != nil {
			return err
		}

		res, err := a.svc.Create(ctx, vault.CreateRequest{
			Email:      addr,
			Passphrase: pass,
			Name:       *name,
			Language:   *language,
			Mnemonic:   phrase,
		})
		switch {
		case errors.Is(err, vault.ErrIdentityExists):
			return fmt.Errorf("a wallet for %s already exists; use 'yapwallet recover'", addr)
		case errors.Is(err, vault.ErrInvalidMnemonic):
			return errors.New("recovery phrase is not a valid BIP-39 mnemonic")
		case err != nil:
			return err
		}

		if a.cfg.Email == "" {
			a.cfg.Email = addr
			if err := SaveConfig(a.cfg); err != nil {
				a.log.Warn().Err(err).Msg("remember email")
			}
		}

		fmt.Fprintf(stdout, "Wallet created for %s (user %s)\n", addr, res.Record.UserID)
		printAddresses(res.Addresses)
		if *importPhrase {
			fmt.Fprintln(stdout, "\nImported recovery phrase is now protected by your passphrase.")
			return nil
		}
		fmt.Fprintln(stdout, "\nRecovery phrase (write it down, it is shown once):")
		fmt.Fprintln(stdout, res.Mnemonic)
		return nil
	})
}

func cmdRecover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recover", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	show := fs.Bool("show-mnemonic", false, "print the recovery phrase")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(ctx, func(a *walletApp) error {
		addr, err := a.resolveEmail(*email)
		if err != nil {
			return err
		}
		pass, err := readSecret("Passphrase: ")
		if err != nil {
			return err
		}

		res, err := a.svc.Recover(ctx, addr, pass)
		switch {
		case errors.Is(err, vault.ErrIdentityNotFound):
			return fmt.Errorf("no wallet registered for %s", addr)
		case errors.Is(err, vault.ErrInvalidPassphrase):
			return errors.New("passphrase is incorrect")
		case err != nil:
			return err
		}

		fmt.Fprintf(stdout, "Wallet recovered for %s\n", addr)
		printAddresses(res.Addresses)
		if *show {
			fmt.Fprintln(stdout, "\nRecovery phrase:")
			fmt.Fprintln(stdout, res.Mnemonic)
		}
		return nil
	})
}

func cmdChangePassphrase(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("change-passphrase", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withApp(ctx, func(a *walletApp) error {
		addr, err := a.resolveEmail(*email)
		if err != nil {
			return err
		}
		oldPass, err := readSecret("Current passphrase: ")
		if err != nil {
			return err
		}
		newPass, err := promptNewPassphrase("New passphrase")
		if err != nil {
			return err
		}

		_, err = a.svc.ChangePassphrase(ctx, addr, oldPass, newPass)
		switch {
		case errors.Is(err, vault.ErrInvalidPassphrase):
			return errors.New("current passphrase is incorrect")
		case errors.Is(err, vault.ErrIdentityNotFound):
			return fmt.Errorf("no wallet registered for %s", addr)
		case err != nil:
			return err
		}
		fmt.Fprintf(stdout, "Passphrase changed for %s\n", addr)
		return nil
	})
}

// cmdCheck rates a passphrase without touching any backend.
func cmdCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pass, err := readSecret("Passphrase to check: ")
	if err != nil {
		return err
	}
	s := vault.EvaluatePassphrase(pass)
	printStrength(s)
	if !s.IsValid {
		return &vault.WeakPassphraseError{Score: s.Score}
	}
	fmt.Fprintln(stdout, "Meets requirements.")
	return nil
}

func printAddresses(addrs vault.Addresses) {
	fmt.Fprintf(stdout, "  Sei: %s\n", addrs.Sei.Address)
	fmt.Fprintf(stdout, "  ETH: %s\n", addrs.Eth.Address)
}
