// ABOUTME: Terminal prompts for passphrases.
// ABOUTME: Echo is disabled on a TTY; piped input is read line by line.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

var stdinReader = bufio.NewReader(os.Stdin)

// readSecret prompts on stderr and reads one secret. Tests replace it.
var readSecret = func(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(b), nil
	}
	return readLine(stdinReader)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptNewPassphrase asks twice and shows strength feedback before the
// service applies the same gate.
func promptNewPassphrase(label string) (string, error) {
	pass, err := readSecret(label + ": ")
	if err != nil {
		return "", err
	}
	s := vault.EvaluatePassphrase(pass)
	if !s.IsValid {
		printStrength(s)
		return "", &vault.WeakPassphraseError{Score: s.Score, Feedback: s.Feedback}
	}
	confirm, err := readSecret("Confirm " + strings.ToLower(label) + ": ")
	if err != nil {
		return "", err
	}
	if confirm != pass {
		return "", errors.New("passphrases do not match")
	}
	return pass, nil
}

func printStrength(s vault.Strength) {
	fmt.Fprintf(stdout, "Score: %d/%d\n", s.Score, vault.MaxPassphraseScore)
	for _, f := range s.Feedback {
		fmt.Fprintf(stdout, "  - %s\n", f)
	}
}
