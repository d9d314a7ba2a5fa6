package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pocketbase/pocketbase/core"

	"github.com/YAP-Technologies-Inc/Yap-landing/cmd/walletd/migrations"
	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

// handleWaitlist stores a signup with no wallet material. Any existing row
// for the email, waitlisted or not, is a conflict.
func (s *Server) handleWaitlist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		fail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in vault.WaitlistEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.Email = vault.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Language = strings.TrimSpace(in.Language)
	if in.Email == "" || in.Name == "" || in.Language == "" || !in.AcceptTerms {
		fail(w, http.StatusBadRequest, "name, email, language and terms acceptance are required")
		return
	}

	unlock := s.locks.lock(in.Email)
	defer unlock()

	auditID := uuid.NewString()
	err := s.app.RunInTransaction(func(txApp core.App) error {
		_, err := findUser(txApp, in.Email)
		if err == nil {
			return vault.ErrIdentityExists
		}
		if !errors.Is(err, vault.ErrIdentityNotFound) {
			return err
		}

		col, err := txApp.FindCollectionByNameOrId(migrations.UsersCollection)
		if err != nil {
			return err
		}
		now := s.now().Unix()
		rec := core.NewRecord(col)
		rec.Set("email", in.Email)
		rec.Set("user_id", ulid.Make().String())
		rec.Set("name", in.Name)
		rec.Set("language", in.Language)
		rec.Set("waitlist", true)
		rec.Set("terms_accepted_at", now)
		rec.Set("created_at", now)
		rec.Set("updated_at", now)
		if err := txApp.Save(rec); err != nil {
			return err
		}
		in.UserID = rec.GetString("user_id")
		in.CreatedAt = now
		return s.writeAudit(txApp, auditID, "waitlist", in.Email, getClientIP(r))
	})
	if !s.finishWrite(w, "waitlist", in.Email, auditID, err) {
		return
	}
	ok(w, vault.WaitlistResponse{Entry: in, AuditID: auditID})
}
