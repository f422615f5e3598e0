package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
)

type blacklistRepo struct {
	q dbtx
}

func (r *blacklistRepo) Add(ctx context.Context, t domain.BlacklistedToken) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO token_blacklist (fingerprint, account_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO NOTHING`,
		t.Fingerprint, t.AccountID, toMillis(t.ExpiresAt), toMillis(t.CreatedAt))
	return err
}

func (r *blacklistRepo) Contains(ctx context.Context, fingerprint string, now time.Time) (bool, error) {
	var found int
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM token_blacklist WHERE fingerprint = ? AND expires_at > ?
	)`, fingerprint, toMillis(now)).Scan(&found)
	if err != nil {
		return false, err
	}
	return found == 1, nil
}

func (r *blacklistRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM token_blacklist WHERE expires_at <= ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
