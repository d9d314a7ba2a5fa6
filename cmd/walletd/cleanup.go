// ABOUTME: Background cleanup routine for the wallet_audit collection.
// ABOUTME: Prevents unbounded growth of the audit trail.

package main

import (
	"context"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"github.com/YAP-Technologies-Inc/Yap-landing/cmd/walletd/migrations"
)

const defaultAuditRetention = 90 * 24 * time.Hour

// pruneAudit deletes audit rows older than the retention window and returns
// how many were removed.
func (s *Server) pruneAudit(_ context.Context) (int, error) {
	if s.auditRetention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.auditRetention).Unix()

	col, err := s.app.FindCollectionByNameOrId(migrations.AuditCollection)
	if err != nil {
		return 0, err
	}
	records, err := s.app.FindRecordsByFilter(col, "created_at < {:cutoff}", "created_at", 500, 0,
		map[string]any{"cutoff": cutoff})
	if err != nil {
		return 0, err
	}

	purged := 0
	err = s.app.RunInTransaction(func(txApp core.App) error {
		for _, rec := range records {
			if err := txApp.Delete(rec); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// startCleanupRoutine prunes the audit trail every hour in background.
func (s *Server) startCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.pruneAudit(ctx)
				if err != nil {
					s.log.Warn().Err(err).Msg("audit cleanup failed")
				} else if n > 0 {
					s.log.Info().Int("purged", n).Msg("audit cleanup")
				}
			}
		}
	}()
}
