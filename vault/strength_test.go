package vault

import (
	"strings"
	"testing"
)

func TestEvaluatePassphrase(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantValid bool
		wantScore int
	}{
		{"short", "short", false, 1},
		{"sixteen all classes", "Tr0ub4dor&3xtra!", true, 6},
		{"twenty all classes", "Correct-Horse-Battery-9", true, 7},
		{"twelve lower only", "abcdefghijkl", false, 2},
		{"twelve mixed", "Abcdefghij1!", true, 5},
		{"eleven chars strong classes", "Abcdefgh1!x", false, 4},
		{"empty", "", false, 0},
		{"space counts as symbol", "correct horse battery", true, 5},
		{"accented letters are symbols", "ÄÖÜäöü24681357", false, 3},
		{"caseless letters are symbols", "中文中文中文中文中文中文a1", true, 4},
		{"accented upper does not count as upper", "Éééééééééééé", false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluatePassphrase(tt.in)
			if got.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (feedback %v)", got.IsValid, tt.wantValid, got.Feedback)
			}
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tt.wantScore)
			}
			if len(got.Feedback) == 0 {
				t.Error("expected at least the summary line")
			}
		})
	}
}

func TestEvaluatePassphrase_ShortFeedback(t *testing.T) {
	got := EvaluatePassphrase("short")
	if got.Feedback[0] != "Passphrase must be at least 12 characters long" {
		t.Errorf("first feedback = %q", got.Feedback[0])
	}
	if last := got.Feedback[len(got.Feedback)-1]; !strings.HasPrefix(last, "Weak passphrase") {
		t.Errorf("summary = %q", last)
	}
}

func TestEvaluatePassphrase_DenyList(t *testing.T) {
	with := EvaluatePassphrase("MyPassword123!")
	without := EvaluatePassphrase("MyPxsswxrd123!")

	if with.Score >= without.Score {
		t.Errorf("deny-list should reduce score: %d vs %d", with.Score, without.Score)
	}
	if without.Score-with.Score != 2 {
		t.Errorf("deny-list penalty = %d, want 2", without.Score-with.Score)
	}
	found := false
	for _, f := range with.Feedback {
		if f == `Avoid common words like "password"` {
			found = true
		}
	}
	if !found {
		t.Errorf("missing common-word feedback in %v", with.Feedback)
	}

	// Only the first matching pattern is penalized.
	multi := EvaluatePassphrase("password-qwerty-123456-X")
	if multi.Score != 5 {
		t.Errorf("multi-match score = %d, want 5", multi.Score)
	}

	floor := EvaluatePassphrase("qwerty")
	if floor.Score != 0 {
		t.Errorf("score must floor at 0, got %d", floor.Score)
	}
}

func TestEvaluatePassphrase_CountsRunes(t *testing.T) {
	// 13 runes, more bytes than that.
	got := EvaluatePassphrase("Ñandú-Pájaro1")
	if got.Score < MinPassphraseScore || !got.IsValid {
		t.Errorf("expected valid 13-rune passphrase, got %+v", got)
	}
	if short := EvaluatePassphrase("ñññññññññññ"); short.IsValid {
		t.Error("11 runes must not pass the length rule even though it has 22 bytes")
	}
}

func TestEvaluatePassphrase_Summary(t *testing.T) {
	cases := map[string]string{
		"Correct-Horse-Battery-9": "Excellent! Your passphrase is very strong.",
		"Abcdefghij1!":            "Good passphrase strength.",
		"abcdefghijkl":            "Weak passphrase. Please follow security recommendations.",
	}
	for in, want := range cases {
		fb := EvaluatePassphrase(in).Feedback
		if fb[len(fb)-1] != want {
			t.Errorf("%q summary = %q, want %q", in, fb[len(fb)-1], want)
		}
	}
}
