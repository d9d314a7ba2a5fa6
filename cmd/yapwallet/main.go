package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stdout receives command output; tests swap it for a buffer.
var stdout io.Writer = os.Stdout

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Error().Msg(err.Error())
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "init":
		return cmdInit(args)
	case "create":
		return cmdCreate(ctx, args)
	case "recover":
		return cmdRecover(ctx, args)
	case "change-passphrase":
		return cmdChangePassphrase(ctx, args)
	case "check":
		return cmdCheck(args)
	case "status":
		return cmdStatus(ctx, args)
	case "forget":
		return cmdForget(ctx, args)
	case "waitlist":
		return cmdWaitlist(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "yapwallet commands: init | create | recover | change-passphrase | check | status | forget | waitlist\n")
}

// newLogger returns the console logger at the configured level.
// Unknown levels fall back to warn.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	return log.Logger.Level(lvl)
}
