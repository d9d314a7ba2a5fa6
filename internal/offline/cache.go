// ABOUTME: Opt-in on-device cache of the encrypted mnemonic bundle and public addresses.
// ABOUTME: Holds nothing that can be decrypted without the user's passphrase.
package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YAP-Technologies-Inc/Yap-landing/vault"
)

// ErrNotCached is returned by Get when no entry exists for an email.
var ErrNotCached = errors.New("not cached")

// Entry is one cached wallet.
type Entry struct {
	Email     string
	Mnemonic  vault.EncryptedBundle
	Addresses vault.Addresses
	CachedAt  time.Time
}

// Cache is a SQLite-backed vault.OfflineCache.
type Cache struct {
	db *sql.DB
}

var _ vault.OfflineCache = (*Cache)(nil)

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS wallets (
  email TEXT PRIMARY KEY,
  mnemonic_json TEXT NOT NULL,
  addresses_json TEXT NOT NULL,
  cached_at INTEGER NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

// Put stores or overwrites the entry for email.
func (c *Cache) Put(ctx context.Context, email string, mnemonic vault.EncryptedBundle, addrs vault.Addresses) error {
	if err := mnemonic.Validate(); err != nil {
		return err
	}
	mj, err := json.Marshal(mnemonic)
	if err != nil {
		return err
	}
	aj, err := json.Marshal(addrs)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
INSERT INTO wallets(email, mnemonic_json, addresses_json, cached_at) VALUES(?,?,?,?)
ON CONFLICT(email) DO UPDATE SET mnemonic_json=excluded.mnemonic_json,
  addresses_json=excluded.addresses_json, cached_at=excluded.cached_at`,
		vault.NormalizeEmail(email), string(mj), string(aj), time.Now().Unix())
	return err
}

// Get returns the cached entry for email.
func (c *Cache) Get(ctx context.Context, email string) (Entry, error) {
	var (
		e      Entry
		mj, aj string
		at     int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT email, mnemonic_json, addresses_json, cached_at FROM wallets WHERE email = ?`,
		vault.NormalizeEmail(email)).Scan(&e.Email, &mj, &aj, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotCached
	}
	if err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(mj), &e.Mnemonic); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(aj), &e.Addresses); err != nil {
		return Entry{}, err
	}
	e.CachedAt = time.Unix(at, 0).UTC()
	return e, nil
}

// Delete removes the entry for email if present.
func (c *Cache) Delete(ctx context.Context, email string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM wallets WHERE email = ?`, vault.NormalizeEmail(email))
	return err
}

// Emails lists cached emails in sorted order.
func (c *Cache) Emails(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT email FROM wallets ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
