package vault

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Store is a RecordStore kept in a local SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ RecordStore = (*Store)(nil)

// OpenStore opens/creates a SQLite database and runs migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer keeps register/replace atomic per email.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS users (
  email TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  language TEXT NOT NULL DEFAULT '',
  sk_ct BLOB NOT NULL,
  sk_salt BLOB NOT NULL,
  sk_nonce BLOB NOT NULL,
  mn_ct BLOB NOT NULL,
  mn_salt BLOB NOT NULL,
  mn_nonce BLOB NOT NULL,
  sei_address TEXT NOT NULL,
  sei_pubkey TEXT NOT NULL,
  eth_address TEXT NOT NULL,
  eth_pubkey TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	return err
}

// Lookup implements RecordStore.
func (s *Store) Lookup(ctx context.Context, email string) (UserRecord, error) {
	var (
		r                UserRecord
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT email, user_id, name, language, sk_ct, sk_salt, sk_nonce, mn_ct, mn_salt, mn_nonce,
       sei_address, sei_pubkey, eth_address, eth_pubkey, created_at, updated_at
FROM users WHERE email = ?`, NormalizeEmail(email)).Scan(
		&r.Email, &r.UserID, &r.Name, &r.Language,
		&r.StretchedKey.Ciphertext, &r.StretchedKey.Salt, &r.StretchedKey.Nonce,
		&r.Mnemonic.Ciphertext, &r.Mnemonic.Salt, &r.Mnemonic.Nonce,
		&r.Addresses.Sei.Address, &r.Addresses.Sei.PublicKey,
		&r.Addresses.Eth.Address, &r.Addresses.Eth.PublicKey,
		&created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrIdentityNotFound
	}
	if err != nil {
		return UserRecord{}, &BoundaryError{Op: "lookup", Err: err}
	}
	r.CreatedAt = time.Unix(created, 0).UTC()
	r.UpdatedAt = time.Unix(updated, 0).UTC()
	return r, nil
}

// Register implements RecordStore.
func (s *Store) Register(ctx context.Context, rec UserRecord) (UserRecord, error) {
	if err := checkRecord(rec); err != nil {
		return UserRecord{}, err
	}
	now := s.now().UTC().Truncate(time.Second)
	rec.Email = NormalizeEmail(rec.Email)
	rec.UserID = ulid.Make().String()
	rec.CreatedAt, rec.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `
INSERT INTO users(email, user_id, name, language, sk_ct, sk_salt, sk_nonce, mn_ct, mn_salt, mn_nonce,
                  sei_address, sei_pubkey, eth_address, eth_pubkey, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(email) DO NOTHING`,
		rec.Email, rec.UserID, rec.Name, rec.Language,
		rec.StretchedKey.Ciphertext, rec.StretchedKey.Salt, rec.StretchedKey.Nonce,
		rec.Mnemonic.Ciphertext, rec.Mnemonic.Salt, rec.Mnemonic.Nonce,
		rec.Addresses.Sei.Address, rec.Addresses.Sei.PublicKey,
		rec.Addresses.Eth.Address, rec.Addresses.Eth.PublicKey,
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return UserRecord{}, &BoundaryError{Op: "register", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return UserRecord{}, ErrIdentityExists
	}
	return rec, nil
}

// Replace implements RecordStore. Only the encrypted material and profile
// fields change; user_id, created_at and the addresses are kept. A record
// whose addresses differ from the stored ones is rejected with
// ErrAddressesChanged.
func (s *Store) Replace(ctx context.Context, rec UserRecord) (UserRecord, error) {
	if err := checkRecord(rec); err != nil {
		return UserRecord{}, err
	}
	rec.Email = NormalizeEmail(rec.Email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UserRecord{}, &BoundaryError{Op: "replace", Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var (
		created  int64
		sei, eth string
	)
	err = tx.QueryRowContext(ctx, `SELECT user_id, created_at, sei_address, eth_address FROM users WHERE email = ?`,
		rec.Email).Scan(&rec.UserID, &created, &sei, &eth)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrIdentityNotFound
	}
	if err != nil {
		return UserRecord{}, &BoundaryError{Op: "replace", Err: err}
	}
	if sei != rec.Addresses.Sei.Address || eth != rec.Addresses.Eth.Address {
		return UserRecord{}, ErrAddressesChanged
	}

	now := s.now().UTC().Truncate(time.Second)
	if _, err := tx.ExecContext(ctx, `
UPDATE users SET name=?, language=?, sk_ct=?, sk_salt=?, sk_nonce=?, mn_ct=?, mn_salt=?, mn_nonce=?,
                 sei_pubkey=?, eth_pubkey=?, updated_at=?
WHERE email = ?`,
		rec.Name, rec.Language,
		rec.StretchedKey.Ciphertext, rec.StretchedKey.Salt, rec.StretchedKey.Nonce,
		rec.Mnemonic.Ciphertext, rec.Mnemonic.Salt, rec.Mnemonic.Nonce,
		rec.Addresses.Sei.PublicKey, rec.Addresses.Eth.PublicKey,
		now.Unix(), rec.Email,
	); err != nil {
		return UserRecord{}, &BoundaryError{Op: "replace", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return UserRecord{}, &BoundaryError{Op: "replace", Err: err}
	}
	rec.CreatedAt = time.Unix(created, 0).UTC()
	rec.UpdatedAt = now
	return rec, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func checkRecord(rec UserRecord) error {
	if NormalizeEmail(rec.Email) == "" {
		return &BoundaryError{Op: "validate", Detail: "email required", Err: ErrInvalidBundle}
	}
	if err := rec.StretchedKey.Validate(); err != nil {
		return &BoundaryError{Op: "validate", Detail: "stretched key", Err: err}
	}
	if err := rec.Mnemonic.Validate(); err != nil {
		return &BoundaryError{Op: "validate", Detail: "mnemonic", Err: err}
	}
	return nil
}
