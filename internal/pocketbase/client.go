// ABOUTME: RecordStore over the PocketBase REST API for the wallet_users collection.
// ABOUTME: Authenticates as a superuser and never sends anything but encrypted bundles.
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

// Collection is the PocketBase collection holding wallet records.
const Collection = "wallet_users"

// HTTPClient talks to PocketBase via HTTP API using a superuser token.
type HTTPClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

var _ vault.RecordStore = (*HTTPClient)(nil)

func (c *HTTPClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: 5 * time.Second}
}

// AuthWithPassword exchanges superuser credentials for a token and stores it on c.
func (c *HTTPClient) AuthWithPassword(ctx context.Context, identity, password string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return errors.New("identity and password required")
	}
	payload, err := json.Marshal(map[string]string{"identity": identity, "password": password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.BaseURL, "/")+"/api/collections/_superusers/auth-with-password", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return &vault.BoundaryError{Op: "auth", Detail: err.Error(), Err: vault.ErrNetworkFailure}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return &vault.BoundaryError{Op: "auth", Status: resp.StatusCode, Detail: errorMessage(resp)}
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if body.Token == "" {
		return errors.New("pocketbase: empty auth token")
	}
	c.Token = body.Token
	return nil
}

func (c *HTTPClient) adminRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if c.BaseURL == "" || c.Token == "" {
		return nil, errors.New("pocketbase url/token required")
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &vault.BoundaryError{Op: strings.ToLower(method), Detail: err.Error(), Err: vault.ErrNetworkFailure}
	}
	return resp, nil
}

// walletRecord mirrors the wallet_users collection schema.
type walletRecord struct {
	ID                    string `json:"id,omitempty"`
	Email                 string `json:"email"`
	UserID                string `json:"user_id"`
	Name                  string `json:"name"`
	Language              string `json:"language"`
	EncryptedStretchedKey string `json:"encrypted_stretched_key"`
	EncryptionSalt        string `json:"encryption_salt"`
	StretchedKeyNonce     string `json:"stretched_key_nonce"`
	EncryptedMnemonic     string `json:"encrypted_mnemonic"`
	MnemonicSalt          string `json:"mnemonic_salt"`
	MnemonicNonce         string `json:"mnemonic_nonce"`
	SeiAddress            string `json:"sei_address"`
	SeiPublicKey          string `json:"sei_public_key"`
	EthAddress            string `json:"eth_address"`
	EthPublicKey          string `json:"eth_public_key"`
	Waitlist              bool   `json:"waitlist,omitempty"`
	Created               string `json:"created,omitempty"`
	Updated               string `json:"updated,omitempty"`
}

func (r walletRecord) hasWallet() bool { return r.EncryptedMnemonic != "" }

func fromWire(w vault.WireRecord) walletRecord {
	return walletRecord{
		Email:                 w.Email,
		UserID:                w.UserID,
		Name:                  w.Name,
		Language:              w.Language,
		EncryptedStretchedKey: w.EncryptedStretchedKey,
		EncryptionSalt:        w.EncryptionSalt,
		StretchedKeyNonce:     w.StretchedKeyNonce,
		EncryptedMnemonic:     w.EncryptedMnemonic,
		MnemonicSalt:          w.MnemonicSalt,
		MnemonicNonce:         w.MnemonicNonce,
		SeiAddress:            w.SeiAddress,
		SeiPublicKey:          w.SeiPublicKey,
		EthAddress:            w.EthAddress,
		EthPublicKey:          w.EthPublicKey,
	}
}

func (r walletRecord) toVault() (vault.UserRecord, error) {
	rec, err := vault.WireRecord{
		UserID:                r.UserID,
		Email:                 r.Email,
		Name:                  r.Name,
		Language:              r.Language,
		EncryptedStretchedKey: r.EncryptedStretchedKey,
		EncryptionSalt:        r.EncryptionSalt,
		StretchedKeyNonce:     r.StretchedKeyNonce,
		EncryptedMnemonic:     r.EncryptedMnemonic,
		MnemonicSalt:          r.MnemonicSalt,
		MnemonicNonce:         r.MnemonicNonce,
		SeiAddress:            r.SeiAddress,
		SeiPublicKey:          r.SeiPublicKey,
		EthAddress:            r.EthAddress,
		EthPublicKey:          r.EthPublicKey,
	}.Record()
	if err != nil {
		return vault.UserRecord{}, err
	}
	rec.CreatedAt = parseTime(r.Created)
	rec.UpdatedAt = parseTime(r.Updated)
	return rec, nil
}

// PocketBase serializes datetimes as "2006-01-02 15:04:05.000Z".
func parseTime(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05.000Z", s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (c *HTTPClient) find(ctx context.Context, email string) (walletRecord, error) {
	values := url.Values{}
	values.Set("filter", fmt.Sprintf("email=%q", vault.NormalizeEmail(email)))
	values.Set("perPage", "1")
	resp, err := c.adminRequest(ctx, http.MethodGet, "/api/collections/"+Collection+"/records?"+values.Encode(), nil)
	if err != nil {
		return walletRecord{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return walletRecord{}, statusError("lookup", resp)
	}
	var doc struct {
		Items []walletRecord `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return walletRecord{}, err
	}
	if len(doc.Items) == 0 {
		return walletRecord{}, vault.ErrIdentityNotFound
	}
	return doc.Items[0], nil
}

// Lookup implements vault.RecordStore. A waitlist row without a wallet
// reads as not found.
func (c *HTTPClient) Lookup(ctx context.Context, email string) (vault.UserRecord, error) {
	it, err := c.find(ctx, email)
	if err != nil {
		return vault.UserRecord{}, err
	}
	if !it.hasWallet() {
		return vault.UserRecord{}, vault.ErrIdentityNotFound
	}
	return it.toVault()
}

// Register implements vault.RecordStore. When the email is already taken by a
// waitlist row the wallet is attached to that row.
func (c *HTTPClient) Register(ctx context.Context, rec vault.UserRecord) (vault.UserRecord, error) {
	body := fromWire(rec.Wire())
	if body.UserID == "" {
		body.UserID = newUserID()
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return vault.UserRecord{}, err
	}
	resp, err := c.adminRequest(ctx, http.MethodPost, "/api/collections/"+Collection+"/records", payload)
	if err != nil {
		return vault.UserRecord{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		err := statusError("register", resp)
		if !errors.Is(err, vault.ErrIdentityExists) {
			return vault.UserRecord{}, err
		}
		cur, ferr := c.find(ctx, rec.Email)
		if ferr != nil || cur.hasWallet() {
			return vault.UserRecord{}, err
		}
		body.UserID = cur.UserID
		if body.Name == "" {
			body.Name = cur.Name
		}
		if body.Language == "" {
			body.Language = cur.Language
		}
		return c.patch(ctx, "register", cur.ID, body)
	}
	var out walletRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return vault.UserRecord{}, err
	}
	return out.toVault()
}

// Replace implements vault.RecordStore. The stored addresses cannot change.
func (c *HTTPClient) Replace(ctx context.Context, rec vault.UserRecord) (vault.UserRecord, error) {
	cur, err := c.find(ctx, rec.Email)
	if err != nil {
		return vault.UserRecord{}, err
	}
	if !cur.hasWallet() {
		return vault.UserRecord{}, vault.ErrIdentityNotFound
	}
	body := fromWire(rec.Wire())
	if cur.SeiAddress != body.SeiAddress || cur.EthAddress != body.EthAddress {
		return vault.UserRecord{}, vault.ErrAddressesChanged
	}
	body.UserID = cur.UserID
	return c.patch(ctx, "replace", cur.ID, body)
}

func (c *HTTPClient) patch(ctx context.Context, op, id string, body walletRecord) (vault.UserRecord, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return vault.UserRecord{}, err
	}
	resp, err := c.adminRequest(ctx, http.MethodPatch, "/api/collections/"+Collection+"/records/"+url.PathEscape(id), payload)
	if err != nil {
		return vault.UserRecord{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return vault.UserRecord{}, statusError(op, resp)
	}
	var out walletRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return vault.UserRecord{}, err
	}
	return out.toVault()
}

// pbError is the PocketBase API error envelope.
type pbError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    map[string]struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"data"`
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body pbError
	_ = json.Unmarshal(raw, &body)

	be := &vault.BoundaryError{Op: op, Status: resp.StatusCode, Detail: body.Message}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		be.Err = vault.ErrIdentityNotFound
	case resp.StatusCode == http.StatusBadRequest && body.Data["email"].Code == "validation_not_unique":
		be.Err = vault.ErrIdentityExists
	case resp.StatusCode >= 500:
		be.Err = vault.ErrServerError
	default:
		be.Err = fmt.Errorf("pocketbase: %s", resp.Status)
	}
	return be
}

func errorMessage(resp *http.Response) string {
	var body pbError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
		return resp.Status
	}
	return body.Message
}

func newUserID() string {
	return ulid.Make().String()
}
