package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

const purgeResetTokens = `DELETE FROM password_resets WHERE used = TRUE OR expires_at < $1`

// PurgeResetTokens deletes consumed and expired password reset tokens and
// returns how many rows were removed.
func PurgeResetTokens(ctx context.Context, conn *sql.DB, dialect Dialect, now time.Time) (int64, error) {
	res, err := conn.ExecContext(ctx, dialect.Rebind(purgeResetTokens), now.UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartResetTokenCleaner purges stale reset tokens every interval until ctx is done.
func StartResetTokenCleaner(
	ctx context.Context,
	conn *sql.DB,
	dialect Dialect,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rows, err := PurgeResetTokens(ctx, conn, dialect, time.Now())
				if err != nil {
					log.Error("failed to clean password reset tokens", zap.Error(err))
					continue
				}
				if rows > 0 {
					log.Info("cleaned password reset tokens", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
