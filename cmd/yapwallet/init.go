// ABOUTME: init.go provides the init command to create or recreate yapwallet configuration.
// ABOUTME: Picks a backend and generates a device ID.
package main

import (
	"flag"
	"fmt"
)

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "overwrite existing config")
	backend := fs.String("backend", BackendSQLite, "record backend: http, sqlite or pocketbase")
	server := fs.String("server", "", "walletd or PocketBase URL for remote backends")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if ConfigExists() && !*force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", ConfigPath())
	}

	cfg, err := InitConfig(*backend, *server)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Config created at %s\n", ConfigPath())
	fmt.Fprintf(stdout, "Device ID: %s\n", cfg.DeviceID)
	fmt.Fprintf(stdout, "Backend:   %s\n", cfg.Backend)
	if cfg.Backend == BackendPocketBase {
		fmt.Fprintln(stdout, "Note: the pocketbase backend signs in as a superuser; use it on operator machines only.")
	}
	fmt.Fprintln(stdout, "\nNext: run 'yapwallet create -email you@example.com'")
	return nil
}
