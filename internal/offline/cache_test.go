package offline

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testBundle(t *testing.T, fill byte) vault.EncryptedBundle {
	t.Helper()
	b, err := vault.NewEncryptedBundle(
		bytes.Repeat([]byte{fill}, 40),
		bytes.Repeat([]byte{1}, vault.SaltSize),
		bytes.Repeat([]byte{2}, vault.NonceSize),
	)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	return b
}

func TestCache_PutGetOverwrite(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()
	addrs := vault.Addresses{
		Sei: vault.ChainAccount{Address: "sei1xyz", PublicKey: "A+"},
		Eth: vault.ChainAccount{Address: "0xAbC", PublicKey: "0x04ff"},
	}

	if err := c.Put(ctx, " User@Example.com", testBundle(t, 7), addrs); err != nil {
		t.Fatalf("put: %v", err)
	}
	e, err := c.Get(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.Email != "user@example.com" {
		t.Errorf("email = %q", e.Email)
	}
	if e.Addresses != addrs {
		t.Errorf("addresses = %+v, want %+v", e.Addresses, addrs)
	}
	if !bytes.Equal(e.Mnemonic.Ciphertext, bytes.Repeat([]byte{7}, 40)) {
		t.Error("ciphertext mismatch")
	}

	if err := c.Put(ctx, "user@example.com", testBundle(t, 9), addrs); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	e, _ = c.Get(ctx, "user@example.com")
	if e.Mnemonic.Ciphertext[0] != 9 {
		t.Error("overwrite did not replace bundle")
	}

	emails, err := c.Emails(ctx)
	if err != nil || len(emails) != 1 {
		t.Fatalf("emails = %v, %v", emails, err)
	}
}

func TestCache_MissingAndDelete(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	if _, err := c.Get(ctx, "none@x.com"); !errors.Is(err, ErrNotCached) {
		t.Errorf("got %v, want ErrNotCached", err)
	}
	if err := c.Put(ctx, "a@b.com", testBundle(t, 1), vault.Addresses{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "A@B.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "a@b.com"); !errors.Is(err, ErrNotCached) {
		t.Errorf("after delete got %v", err)
	}
}

func TestCache_RejectsInvalidBundle(t *testing.T) {
	c := openCache(t)
	err := c.Put(context.Background(), "a@b.com", vault.EncryptedBundle{Ciphertext: []byte{1}}, vault.Addresses{})
	if !errors.Is(err, vault.ErrInvalidBundle) {
		t.Errorf("got %v, want ErrInvalidBundle", err)
	}
}
