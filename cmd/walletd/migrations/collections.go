// ABOUTME: PocketBase collections migration for walletd.
// ABOUTME: Creates the wallet_users and wallet_audit collections.

package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

const (
	// UsersCollection holds one row per normalized email: a waitlist signup,
	// an encrypted wallet, or both.
	UsersCollection = "wallet_users"
	// AuditCollection holds one row per accepted write.
	AuditCollection = "wallet_audit"
)

func init() {
	m.Register(CreateCollections, func(app core.App) error {
		for _, name := range []string{AuditCollection, UsersCollection} {
			col, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				continue
			}
			if err := app.Delete(col); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateCollections creates the walletd schema. It is a no-op when the
// collections already exist.
//
//nolint:funlen // Migration functions are necessarily long
func CreateCollections(app core.App) error {
	if _, err := app.FindCollectionByNameOrId(UsersCollection); err != nil {
		users := core.NewBaseCollection(UsersCollection)
		// Wallet fields are empty on waitlist rows; walletd validates them on
		// every write that carries a wallet.
		users.Fields.Add(
			&core.TextField{Name: "email", Required: true},
			&core.TextField{Name: "user_id", Required: true},
			&core.TextField{Name: "name"},
			&core.TextField{Name: "language"},
			&core.BoolField{Name: "waitlist"},
			&core.NumberField{Name: "terms_accepted_at"},
			&core.TextField{Name: "encrypted_stretched_key"},
			&core.TextField{Name: "encryption_salt"},
			&core.TextField{Name: "stretched_key_nonce"},
			&core.TextField{Name: "encrypted_mnemonic"},
			&core.TextField{Name: "mnemonic_salt"},
			&core.TextField{Name: "mnemonic_nonce"},
			&core.TextField{Name: "sei_address"},
			&core.TextField{Name: "sei_public_key"},
			&core.TextField{Name: "eth_address"},
			&core.TextField{Name: "eth_public_key"},
			&core.NumberField{Name: "created_at"},
			&core.NumberField{Name: "updated_at"},
		)
		users.AddIndex("idx_wallet_users_email", true, "email", "")
		users.AddIndex("idx_wallet_users_user_id", true, "user_id", "")
		if err := app.Save(users); err != nil {
			return err
		}
	}

	if _, err := app.FindCollectionByNameOrId(AuditCollection); err != nil {
		audit := core.NewBaseCollection(AuditCollection)
		audit.Fields.Add(
			&core.TextField{Name: "audit_id", Required: true},
			&core.TextField{Name: "email_hash", Required: true},
			&core.TextField{Name: "action", Required: true},
			&core.TextField{Name: "client_ip"},
			&core.NumberField{Name: "created_at", Required: true},
		)
		audit.AddIndex("idx_wallet_audit_audit_id", true, "audit_id", "")
		audit.AddIndex("idx_wallet_audit_created_at", false, "created_at", "")
		if err := app.Save(audit); err != nil {
			return err
		}
	}
	return nil
}
