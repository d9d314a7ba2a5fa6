// ABOUTME: Scores passphrases on length, character classes and a small deny-list.
// ABOUTME: Acts as the gate before any key derivation happens on create or change.
package vault

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinPassphraseLength = 12
	MinPassphraseScore  = 4
	MaxPassphraseScore  = 7
)

var deniedWords = []string{"password", "passphrase", "123456", "qwerty", "letmein"}

// Strength is the outcome of EvaluatePassphrase.
type Strength struct {
	IsValid  bool
	Score    int
	Feedback []string
}

// EvaluatePassphrase is pure and deterministic.
func EvaluatePassphrase(p string) Strength {
	var (
		score    int
		feedback []string
	)

	n := utf8.RuneCountInString(p)
	switch {
	case n < MinPassphraseLength:
		feedback = append(feedback, fmt.Sprintf("Passphrase must be at least %d characters long", MinPassphraseLength))
	case n >= 20:
		score += 3
	case n >= 16:
		score += 2
	default:
		score++
	}

	// Classes are ASCII only. Accented and caseless letters count as symbols.
	var lower, upper, digit, symbol bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	for _, has := range []bool{lower, upper, digit, symbol} {
		if has {
			score++
		}
	}

	folded := strings.ToLower(p)
	for _, w := range deniedWords {
		if strings.Contains(folded, w) {
			score = max(score-2, 0)
			feedback = append(feedback, fmt.Sprintf("Avoid common words like %q", w))
			break
		}
	}

	score = min(score, MaxPassphraseScore)
	switch {
	case score >= 6:
		feedback = append(feedback, "Excellent! Your passphrase is very strong.")
	case score >= MinPassphraseScore:
		feedback = append(feedback, "Good passphrase strength.")
	default:
		feedback = append(feedback, "Weak passphrase. Please follow security recommendations.")
	}

	return Strength{
		IsValid:  score >= MinPassphraseScore && n >= MinPassphraseLength,
		Score:    score,
		Feedback: feedback,
	}
}
