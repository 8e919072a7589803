package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophAuth/internal/models"
)

// LogResetNotifier records issued reset tokens in the log. It stands in for
// mail delivery. The plaintext token is only written, at Debug, when
// revealToken is set.
type LogResetNotifier struct {
	log         *zap.Logger
	revealToken bool
}

// NewLogResetNotifier returns a notifier logging through log.
func NewLogResetNotifier(log *zap.Logger, revealToken bool) *LogResetNotifier {
	return &LogResetNotifier{log: log, revealToken: revealToken}
}

// NotifyReset logs that a token was issued for the account.
func (n *LogResetNotifier) NotifyReset(_ context.Context, account models.Account, token string, expiresAt time.Time) error {
	n.log.Info("password reset token issued",
		zap.Stringer("account_id", account.ID),
		zap.Time("expires_at", expiresAt),
	)
	if n.revealToken {
		n.log.Debug("password reset token",
			zap.Stringer("account_id", account.ID),
			zap.String("reset_token", token),
		)
	}
	return nil
}
