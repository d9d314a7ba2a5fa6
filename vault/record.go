// ABOUTME: User record shape and the persistence boundary contract for encrypted material.
// ABOUTME: WireRecord is the flat JSON form shared by the HTTP client, walletd and PocketBase.
package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
)

// UserRecord is everything the boundary stores for one email.
// It never contains a passphrase, a stretched key or a plaintext mnemonic.
type UserRecord struct {
	UserID       string
	Email        string
	Name         string
	Language     string
	StretchedKey EncryptedBundle
	Mnemonic     EncryptedBundle
	Addresses    Addresses
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecordStore is the external persistence boundary.
type RecordStore interface {
	// Lookup returns ErrIdentityNotFound when no record exists for email.
	Lookup(ctx context.Context, email string) (UserRecord, error)
	// Register returns ErrIdentityExists when a record already exists.
	Register(ctx context.Context, rec UserRecord) (UserRecord, error)
	// Replace overwrites the encrypted material of an existing record.
	Replace(ctx context.Context, rec UserRecord) (UserRecord, error)
}

// WireRecord is the JSON body exchanged with the registration backend.
// Byte fields are standard base64.
type WireRecord struct {
	UserID                string `json:"userId,omitempty"`
	Email                 string `json:"email"`
	Name                  string `json:"name,omitempty"`
	Language              string `json:"language,omitempty"`
	EncryptedStretchedKey string `json:"encryptedStretchedKey"`
	EncryptionSalt        string `json:"encryptionSalt"`
	StretchedKeyNonce     string `json:"stretchedKeyNonce"`
	EncryptedMnemonic     string `json:"encryptedMnemonic"`
	MnemonicSalt          string `json:"mnemonicSalt"`
	MnemonicNonce         string `json:"mnemonicNonce"`
	SeiAddress            string `json:"seiAddress"`
	SeiPublicKey          string `json:"seiPublicKey"`
	EthAddress            string `json:"ethAddress"`
	EthPublicKey          string `json:"ethPublicKey"`
	CreatedAt             int64  `json:"createdAt,omitempty"`
	UpdatedAt             int64  `json:"updatedAt,omitempty"`
}

var b64 = base64.StdEncoding

// Wire converts a record to its JSON form.
func (r UserRecord) Wire() WireRecord {
	w := WireRecord{
		UserID:                r.UserID,
		Email:                 NormalizeEmail(r.Email),
		Name:                  r.Name,
		Language:              r.Language,
		EncryptedStretchedKey: b64.EncodeToString(r.StretchedKey.Ciphertext),
		EncryptionSalt:        b64.EncodeToString(r.StretchedKey.Salt),
		StretchedKeyNonce:     b64.EncodeToString(r.StretchedKey.Nonce),
		EncryptedMnemonic:     b64.EncodeToString(r.Mnemonic.Ciphertext),
		MnemonicSalt:          b64.EncodeToString(r.Mnemonic.Salt),
		MnemonicNonce:         b64.EncodeToString(r.Mnemonic.Nonce),
		SeiAddress:            r.Addresses.Sei.Address,
		SeiPublicKey:          r.Addresses.Sei.PublicKey,
		EthAddress:            r.Addresses.Eth.Address,
		EthPublicKey:          r.Addresses.Eth.PublicKey,
	}
	if !r.CreatedAt.IsZero() {
		w.CreatedAt = r.CreatedAt.Unix()
	}
	if !r.UpdatedAt.IsZero() {
		w.UpdatedAt = r.UpdatedAt.Unix()
	}
	return w
}

// Record decodes and validates the wire form.
func (w WireRecord) Record() (UserRecord, error) {
	email := NormalizeEmail(w.Email)
	if email == "" {
		return UserRecord{}, fmt.Errorf("%w: email required", ErrInvalidBundle)
	}
	sk, err := decodeBundle(w.EncryptedStretchedKey, w.EncryptionSalt, w.StretchedKeyNonce)
	if err != nil {
		return UserRecord{}, fmt.Errorf("stretched key: %w", err)
	}
	mn, err := decodeBundle(w.EncryptedMnemonic, w.MnemonicSalt, w.MnemonicNonce)
	if err != nil {
		return UserRecord{}, fmt.Errorf("mnemonic: %w", err)
	}
	r := UserRecord{
		UserID:       w.UserID,
		Email:        email,
		Name:         w.Name,
		Language:     w.Language,
		StretchedKey: sk,
		Mnemonic:     mn,
		Addresses: Addresses{
			Sei: ChainAccount{Address: w.SeiAddress, PublicKey: w.SeiPublicKey},
			Eth: ChainAccount{Address: w.EthAddress, PublicKey: w.EthPublicKey},
		},
	}
	if w.CreatedAt > 0 {
		r.CreatedAt = time.Unix(w.CreatedAt, 0).UTC()
	}
	if w.UpdatedAt > 0 {
		r.UpdatedAt = time.Unix(w.UpdatedAt, 0).UTC()
	}
	return r, nil
}

func decodeBundle(ct, salt, nonce string) (EncryptedBundle, error) {
	c, err := b64.DecodeString(ct)
	if err != nil {
		return EncryptedBundle{}, fmt.Errorf("%w: ciphertext: %v", ErrInvalidBundle, err)
	}
	s, err := b64.DecodeString(salt)
	if err != nil {
		return EncryptedBundle{}, fmt.Errorf("%w: salt: %v", ErrInvalidBundle, err)
	}
	n, err := b64.DecodeString(nonce)
	if err != nil {
		return EncryptedBundle{}, fmt.Errorf("%w: nonce: %v", ErrInvalidBundle, err)
	}
	return NewEncryptedBundle(c, s, n)
}
