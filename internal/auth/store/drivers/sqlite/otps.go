package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
)

const otpColumns = `id, variant, country_code, phone_number, code, purpose, attempts, is_used, created_at, expires_at`

type otpsRepo struct {
	db *sql.DB
}

func scanOTP(row *sql.Row) (domain.OTPRecord, error) {
	var (
		rec                  domain.OTPRecord
		variant, purpose     string
		createdAt, expiresAt int64
	)
	err := row.Scan(
		&rec.ID, &variant, &rec.Identity.CountryCode, &rec.Identity.PhoneNumber,
		&rec.Code, &purpose, &rec.Attempts, &rec.IsUsed, &createdAt, &expiresAt,
	)
	if err != nil {
		return domain.OTPRecord{}, mapNotFound(err)
	}
	rec.Variant = domain.Variant(variant)
	rec.Purpose = domain.Purpose(purpose)
	rec.CreatedAt = fromMillis(createdAt)
	rec.ExpiresAt = fromMillis(expiresAt)
	return rec, nil
}

func (r *otpsRepo) Replace(ctx context.Context, rec domain.OTPRecord) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE otps SET is_used = 1
			WHERE variant = ? AND country_code = ? AND phone_number = ? AND purpose = ? AND is_used = 0`,
			string(rec.Variant), rec.Identity.CountryCode, rec.Identity.PhoneNumber, string(rec.Purpose))
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO otps (`+otpColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, string(rec.Variant), rec.Identity.CountryCode, rec.Identity.PhoneNumber,
			rec.Code, string(rec.Purpose), rec.Attempts, rec.IsUsed,
			toMillis(rec.CreatedAt), toMillis(rec.ExpiresAt))
		return mapConstraint(err)
	})
}

func (r *otpsRepo) GetActive(
	ctx context.Context,
	v domain.Variant,
	identity domain.Identity,
	purpose domain.Purpose,
	now time.Time,
) (domain.OTPRecord, error) {
	return scanOTP(r.db.QueryRowContext(ctx, `SELECT `+otpColumns+` FROM otps
		WHERE variant = ? AND country_code = ? AND phone_number = ? AND purpose = ?
		  AND is_used = 0 AND expires_at > ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		string(v), identity.CountryCode, identity.PhoneNumber, string(purpose), toMillis(now)))
}

func (r *otpsRepo) Reissue(
	ctx context.Context,
	v domain.Variant,
	identity domain.Identity,
	purpose domain.Purpose,
	code string,
	now, expiresAt time.Time,
) (domain.OTPRecord, error) {
	return scanOTP(r.db.QueryRowContext(ctx, `UPDATE otps
		SET code = ?, attempts = 0, expires_at = ?
		WHERE id = (
			SELECT id FROM otps
			WHERE variant = ? AND country_code = ? AND phone_number = ? AND purpose = ?
			  AND is_used = 0 AND expires_at > ?
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
		RETURNING `+otpColumns,
		code, toMillis(expiresAt),
		string(v), identity.CountryCode, identity.PhoneNumber, string(purpose), toMillis(now)))
}

func (r *otpsRepo) Consume(ctx context.Context, id, code string, maxAttempts int, now time.Time) error {
	var used bool
	err := r.db.QueryRowContext(ctx, `UPDATE otps
		SET attempts = attempts + 1, is_used = CASE WHEN code = ? THEN 1 ELSE 0 END
		WHERE id = ? AND is_used = 0 AND expires_at > ? AND attempts < ?
		RETURNING is_used`,
		code, id, toMillis(now), maxAttempts).Scan(&used)
	if err != nil {
		return mapNotFound(err)
	}
	if !used {
		return store.ErrCodeMismatch
	}
	return nil
}

func (r *otpsRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at <= ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
