// ABOUTME: Handlers for registering, replacing, and looking up wallet records.
// ABOUTME: Writes for one email are serialized and committed with an audit row.

package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pocketbase/pocketbase/core"

	"github.com/YAP-Technologies-Inc/Yap-landing/cmd/walletd/migrations"
	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

const maxBodyBytes = 64 << 10

// lookup

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	email := vault.NormalizeEmail(r.URL.Query().Get("email"))
	if email == "" {
		fail(w, http.StatusBadRequest, "email required")
		return
	}

	rec, err := findWallet(s.app, email)
	if errors.Is(err, vault.ErrIdentityNotFound) {
		fail(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("op", "lookup").Msg("find user")
		fail(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	ok(w, vault.UserResponse{User: wireFromRecord(rec)})
}

// register

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		fail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := decodeUser(w, r)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	unlock := s.locks.lock(body.Email)
	defer unlock()

	auditID := uuid.NewString()
	var saved *core.Record
	err = s.app.RunInTransaction(func(txApp core.App) error {
		now := s.now().Unix()
		action := "register"
		rec, err := findUser(txApp, body.Email)
		switch {
		case err == nil && hasWallet(rec):
			return vault.ErrIdentityExists
		case err == nil:
			// A waitlist signup gets its wallet attached; the row keeps its
			// user_id, created_at and any profile fields the body leaves empty.
			action = "attach"
			if body.Name == "" {
				body.Name = rec.GetString("name")
			}
			if body.Language == "" {
				body.Language = rec.GetString("language")
			}
		case errors.Is(err, vault.ErrIdentityNotFound):
			col, err := txApp.FindCollectionByNameOrId(migrations.UsersCollection)
			if err != nil {
				return err
			}
			rec = core.NewRecord(col)
			rec.Set("user_id", ulid.Make().String())
			rec.Set("created_at", now)
		default:
			return err
		}

		applyWire(rec, body)
		rec.Set("updated_at", now)
		if err := txApp.Save(rec); err != nil {
			return err
		}
		saved = rec
		return s.writeAudit(txApp, auditID, action, body.Email, getClientIP(r))
	})
	if !s.finishWrite(w, "register", body.Email, auditID, err) {
		return
	}
	ok(w, vault.UserResponse{User: wireFromRecord(saved), AuditID: auditID})
}

// replace

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		fail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := decodeUser(w, r)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	unlock := s.locks.lock(body.Email)
	defer unlock()

	auditID := uuid.NewString()
	var saved *core.Record
	err = s.app.RunInTransaction(func(txApp core.App) error {
		rec, err := findWallet(txApp, body.Email)
		if err != nil {
			return err
		}
		if rec.GetString("sei_address") != body.SeiAddress || rec.GetString("eth_address") != body.EthAddress {
			return vault.ErrAddressesChanged
		}
		applyWire(rec, body)
		rec.Set("updated_at", s.now().Unix())
		if err := txApp.Save(rec); err != nil {
			return err
		}
		saved = rec
		return s.writeAudit(txApp, auditID, "replace", body.Email, getClientIP(r))
	})
	if !s.finishWrite(w, "replace", body.Email, auditID, err) {
		return
	}
	ok(w, vault.UserResponse{User: wireFromRecord(saved), AuditID: auditID})
}

// finishWrite maps a transaction error to a response and logs the outcome.
// It reports whether the caller should write the success body.
func (s *Server) finishWrite(w http.ResponseWriter, op, email, auditID string, err error) bool {
	ev := s.log.Info()
	if err != nil {
		ev = s.log.Warn().Err(err)
	}
	ev.Str("op", op).Str("email_hash", emailHash(email)[:16]).Str("audit_id", auditID).Msg("user write")

	switch {
	case err == nil:
		return true
	case errors.Is(err, vault.ErrAddressesChanged):
		fail(w, http.StatusConflict, "wallet addresses cannot change")
	case errors.Is(err, vault.ErrIdentityExists):
		fail(w, http.StatusConflict, "user already exists")
	case errors.Is(err, vault.ErrIdentityNotFound):
		fail(w, http.StatusNotFound, "user not found")
	default:
		fail(w, http.StatusInternalServerError, op+" failed")
	}
	return false
}

func (s *Server) writeAudit(txApp core.App, auditID, action, email, ip string) error {
	col, err := txApp.FindCollectionByNameOrId(migrations.AuditCollection)
	if err != nil {
		return err
	}
	rec := core.NewRecord(col)
	rec.Set("audit_id", auditID)
	rec.Set("email_hash", emailHash(email))
	rec.Set("action", action)
	rec.Set("client_ip", ip)
	rec.Set("created_at", s.now().Unix())
	return txApp.Save(rec)
}

// decodeUser reads and validates a request body. The returned record is
// re-encoded from its validated form so stored base64 is canonical.
func decodeUser(w http.ResponseWriter, r *http.Request) (vault.WireRecord, error) {
	var in vault.WireRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		return vault.WireRecord{}, errors.New("invalid json")
	}
	rec, err := in.Record()
	if err != nil {
		return vault.WireRecord{}, err
	}
	if err := vault.CheckAddresses(rec.Addresses); err != nil {
		return vault.WireRecord{}, err
	}
	return rec.Wire(), nil
}

func findUser(app core.App, email string) (*core.Record, error) {
	col, err := app.FindCollectionByNameOrId(migrations.UsersCollection)
	if err != nil {
		return nil, err
	}
	rec, err := app.FindFirstRecordByFilter(col, "email = {:email}", map[string]any{"email": email})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vault.ErrIdentityNotFound
	}
	return rec, err
}

// findWallet is findUser for rows that carry a wallet. A waitlist-only row
// reads as not found.
func findWallet(app core.App, email string) (*core.Record, error) {
	rec, err := findUser(app, email)
	if err != nil {
		return nil, err
	}
	if !hasWallet(rec) {
		return nil, vault.ErrIdentityNotFound
	}
	return rec, nil
}

func hasWallet(rec *core.Record) bool {
	return rec.GetString("encrypted_mnemonic") != ""
}

// applyWire copies the client-controlled fields. user_id and created_at are
// owned by the server.
func applyWire(rec *core.Record, w vault.WireRecord) {
	rec.Set("email", w.Email)
	rec.Set("name", w.Name)
	rec.Set("language", w.Language)
	rec.Set("encrypted_stretched_key", w.EncryptedStretchedKey)
	rec.Set("encryption_salt", w.EncryptionSalt)
	rec.Set("stretched_key_nonce", w.StretchedKeyNonce)
	rec.Set("encrypted_mnemonic", w.EncryptedMnemonic)
	rec.Set("mnemonic_salt", w.MnemonicSalt)
	rec.Set("mnemonic_nonce", w.MnemonicNonce)
	rec.Set("sei_address", w.SeiAddress)
	rec.Set("sei_public_key", w.SeiPublicKey)
	rec.Set("eth_address", w.EthAddress)
	rec.Set("eth_public_key", w.EthPublicKey)
}

func wireFromRecord(rec *core.Record) vault.WireRecord {
	return vault.WireRecord{
		UserID:                rec.GetString("user_id"),
		Email:                 rec.GetString("email"),
		Name:                  rec.GetString("name"),
		Language:              rec.GetString("language"),
		EncryptedStretchedKey: rec.GetString("encrypted_stretched_key"),
		EncryptionSalt:        rec.GetString("encryption_salt"),
		StretchedKeyNonce:     rec.GetString("stretched_key_nonce"),
		EncryptedMnemonic:     rec.GetString("encrypted_mnemonic"),
		MnemonicSalt:          rec.GetString("mnemonic_salt"),
		MnemonicNonce:         rec.GetString("mnemonic_nonce"),
		SeiAddress:            rec.GetString("sei_address"),
		SeiPublicKey:          rec.GetString("sei_public_key"),
		EthAddress:            rec.GetString("eth_address"),
		EthPublicKey:          rec.GetString("eth_public_key"),
		CreatedAt:             int64(rec.GetInt("created_at")),
		UpdatedAt:             int64(rec.GetInt("updated_at")),
	}
}
