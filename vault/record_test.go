package vault

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestWireRecord_RoundTrip(t *testing.T) {
	rec := sampleRecord(t, " Mixed@Case.io ")
	rec.UserID = "01J0"
	rec.CreatedAt = time.Unix(1700000000, 0).UTC()

	raw, err := json.Marshal(rec.Wire())
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{
		"email", "encryptedStretchedKey", "encryptionSalt", "stretchedKeyNonce",
		"encryptedMnemonic", "mnemonicSalt", "mnemonicNonce",
		"seiAddress", "seiPublicKey", "ethAddress", "ethPublicKey",
	} {
		if _, ok := fields[k]; !ok {
			t.Errorf("wire form missing %q", k)
		}
	}

	var w WireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		t.Fatal(err)
	}
	back, err := w.Record()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Email != "mixed@case.io" || back.UserID != "01J0" || !back.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("decoded %+v", back)
	}
	if back.Addresses != rec.Addresses {
		t.Error("addresses lost")
	}
}

func TestWireRecord_Invalid(t *testing.T) {
	w := sampleRecord(t, "a@b.com").Wire()
	w.MnemonicNonce = "AAAA" // 3 bytes
	if _, err := w.Record(); !errors.Is(err, ErrInvalidBundle) {
		t.Errorf("short nonce: got %v", err)
	}

	w = sampleRecord(t, "a@b.com").Wire()
	w.Email = "  "
	if _, err := w.Record(); err == nil {
		t.Error("expected error for blank email")
	}
}
