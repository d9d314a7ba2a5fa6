package pocketbase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

// fakePB is a minimal stand-in for the PocketBase records API.
type fakePB struct {
	mu      sync.Mutex
	records map[string]walletRecord // by id
	nextID  int
	token   string
}

func newFakePB(t *testing.T) (*fakePB, *httptest.Server) {
	t.Helper()
	f := &fakePB{records: map[string]walletRecord{}, token: "tok-123"}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakePB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/api/collections/_superusers/auth-with-password" {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": 400, "message": "Failed to authenticate."})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": f.token})
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	base := "/api/collections/" + Collection + "/records"
	switch {
	case r.Method == http.MethodGet && r.URL.Path == base:
		filter := r.URL.Query().Get("filter")
		var items []walletRecord
		for _, rec := range f.records {
			if filter == `email="`+rec.Email+`"` {
				items = append(items, rec)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	case r.Method == http.MethodPost && r.URL.Path == base:
		var rec walletRecord
		_ = json.NewDecoder(r.Body).Decode(&rec)
		for _, existing := range f.records {
			if existing.Email == rec.Email {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status":  400,
					"message": "Failed to create record.",
					"data":    map[string]any{"email": map[string]string{"code": "validation_not_unique", "message": "Value must be unique."}},
				})
				return
			}
		}
		f.nextID++
		rec.ID = "rec" + string(rune('0'+f.nextID))
		rec.Created = "2026-01-02 03:04:05.000Z"
		rec.Updated = rec.Created
		f.records[rec.ID] = rec
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, base+"/"):
		id := strings.TrimPrefix(r.URL.Path, base+"/")
		cur, ok := f.records[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": 404, "message": "The requested resource wasn't found."})
			return
		}
		var rec walletRecord
		_ = json.NewDecoder(r.Body).Decode(&rec)
		rec.ID, rec.Created = cur.ID, cur.Created
		rec.Updated = "2026-01-03 03:04:05.000Z"
		f.records[id] = rec
		_ = json.NewEncoder(w).Encode(rec)
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 500, "message": "boom"})
	}
}

func bundle(t *testing.T, fill byte) vault.EncryptedBundle {
	t.Helper()
	ct := []byte(strings.Repeat(string(rune(fill)), 48))
	salt := []byte(strings.Repeat("s", vault.SaltSize))
	nonce := []byte(strings.Repeat("n", vault.NonceSize))
	b, err := vault.NewEncryptedBundle(ct, salt, nonce)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	return b
}

func sampleRecord(t *testing.T, email string) vault.UserRecord {
	return vault.UserRecord{
		Email:        email,
		Name:         "Ada",
		Language:     "es",
		StretchedKey: bundle(t, 'k'),
		Mnemonic:     bundle(t, 'm'),
		Addresses: vault.Addresses{
			Sei: vault.ChainAccount{Address: "sei1abc", PublicKey: "pub"},
			Eth: vault.ChainAccount{Address: "0xabc", PublicKey: "0x04"},
		},
	}
}

func TestHTTPClient_RegisterLookupReplace(t *testing.T) {
	_, srv := newFakePB(t)
	c := &HTTPClient{BaseURL: srv.URL}
	ctx := context.Background()

	if err := c.AuthWithPassword(ctx, "admin@example.com", "secret"); err != nil {
		t.Fatalf("auth: %v", err)
	}

	created, err := c.Register(ctx, sampleRecord(t, "  Ada@Example.com "))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Email != "ada@example.com" {
		t.Errorf("email = %q, want normalized", created.Email)
	}
	if created.UserID == "" {
		t.Error("expected user id to be assigned")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected created timestamp")
	}

	got, err := c.Lookup(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if string(got.Mnemonic.Ciphertext) != string(created.Mnemonic.Ciphertext) {
		t.Error("mnemonic bundle changed across lookup")
	}

	next := sampleRecord(t, "ada@example.com")
	next.Mnemonic = bundle(t, 'z')
	replaced, err := c.Replace(ctx, next)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced.UserID != created.UserID {
		t.Errorf("user id changed: %q -> %q", created.UserID, replaced.UserID)
	}
	if replaced.Mnemonic.Ciphertext[0] != 'z' {
		t.Error("replace did not store new bundle")
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	_, srv := newFakePB(t)
	c := &HTTPClient{BaseURL: srv.URL}
	ctx := context.Background()

	if err := c.AuthWithPassword(ctx, "admin@example.com", "wrong"); err == nil {
		t.Fatal("expected auth failure")
	}
	if _, err := c.Lookup(ctx, "a@b.com"); err == nil {
		t.Fatal("expected error without token")
	}

	c.Token = "tok-123"
	if _, err := c.Lookup(ctx, "nobody@x.com"); !errors.Is(err, vault.ErrIdentityNotFound) {
		t.Errorf("lookup missing: got %v, want ErrIdentityNotFound", err)
	}
	if _, err := c.Replace(ctx, sampleRecord(t, "nobody@x.com")); !errors.Is(err, vault.ErrIdentityNotFound) {
		t.Errorf("replace missing: got %v, want ErrIdentityNotFound", err)
	}

	if _, err := c.Register(ctx, sampleRecord(t, "a@b.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := c.Register(ctx, sampleRecord(t, "a@b.com"))
	if !errors.Is(err, vault.ErrIdentityExists) {
		t.Errorf("duplicate register: got %v, want ErrIdentityExists", err)
	}
	var be *vault.BoundaryError
	if !errors.As(err, &be) || be.Status != http.StatusBadRequest {
		t.Errorf("expected BoundaryError with status 400, got %v", err)
	}
}

func TestHTTPClient_ReplaceKeepsAddresses(t *testing.T) {
	_, srv := newFakePB(t)
	c := &HTTPClient{BaseURL: srv.URL, Token: "tok-123"}
	ctx := context.Background()

	if _, err := c.Register(ctx, sampleRecord(t, "victim@x.com")); err != nil {
		t.Fatal(err)
	}
	other := sampleRecord(t, "victim@x.com")
	other.Addresses.Eth.Address = "0xdef"
	if _, err := c.Replace(ctx, other); !errors.Is(err, vault.ErrAddressesChanged) {
		t.Fatalf("got %v, want ErrAddressesChanged", err)
	}
	got, err := c.Lookup(ctx, "victim@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.Addresses.Eth.Address != "0xabc" {
		t.Errorf("eth address = %q", got.Addresses.Eth.Address)
	}
}

func TestHTTPClient_WaitlistRow(t *testing.T) {
	f, srv := newFakePB(t)
	c := &HTTPClient{BaseURL: srv.URL, Token: "tok-123"}
	ctx := context.Background()

	f.records["wl1"] = walletRecord{ID: "wl1", Email: "wait@x.com", UserID: "01HWAIT", Name: "Grace", Language: "fr", Waitlist: true}

	if _, err := c.Lookup(ctx, "wait@x.com"); !errors.Is(err, vault.ErrIdentityNotFound) {
		t.Errorf("lookup waitlist row: got %v, want ErrIdentityNotFound", err)
	}
	if _, err := c.Replace(ctx, sampleRecord(t, "wait@x.com")); !errors.Is(err, vault.ErrIdentityNotFound) {
		t.Errorf("replace waitlist row: got %v, want ErrIdentityNotFound", err)
	}

	rec := sampleRecord(t, "wait@x.com")
	rec.Name, rec.Language = "", ""
	attached, err := c.Register(ctx, rec)
	if err != nil {
		t.Fatalf("register on waitlist row: %v", err)
	}
	if attached.UserID != "01HWAIT" || attached.Name != "Grace" || attached.Language != "fr" {
		t.Errorf("attached = %+v", attached)
	}
	if _, err := c.Register(ctx, rec); !errors.Is(err, vault.ErrIdentityExists) {
		t.Errorf("second register: got %v, want ErrIdentityExists", err)
	}
}
