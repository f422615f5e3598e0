package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrCodeMismatch  = errors.New("store: code mismatch")
)

// Store is the root data access interface. Concrete drivers (sqlite, mongo)
// implement this. Each account variant gets its own repository so a phone
// number is unique within a variant but may appear in several.
//
// There is no transaction surface. Every state change the auth flows rely on
// (OTP consume, OTP reissue, refresh rotation) is a single conditional
// update on one record, which both drivers execute atomically.
type Store interface {
	Accounts(v domain.Variant) Accounts
	OTPs() OTPs
	Blacklist() Blacklist

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Accounts interface {
	// GetByID returns an account by id.
	GetByID(ctx context.Context, id string) (domain.Account, error)

	// GetByIdentity looks an account up by country code and phone number.
	GetByIdentity(ctx context.Context, identity domain.Identity) (domain.Account, error)

	// Create inserts a new account. Returns ErrAlreadyExists when the
	// identity is already taken.
	Create(ctx context.Context, a domain.Account) error

	// TouchLogin sets last_login and bumps updated_at.
	TouchLogin(ctx context.Context, id string, at time.Time) error

	// SetRefreshToken stores the fingerprint of the account's live refresh
	// token, replacing whatever was there.
	SetRefreshToken(ctx context.Context, id, fingerprint string, at time.Time) error

	// RotateRefreshToken swaps current for next only if current is still the
	// stored value. Returns ErrNotFound when it is not.
	RotateRefreshToken(ctx context.Context, id, current, next string, at time.Time) error

	// ClearRefreshToken removes the stored refresh token.
	ClearRefreshToken(ctx context.Context, id string, at time.Time) error

	// UpdateIdentity moves the account to a new phone number. Returns
	// ErrAlreadyExists when another account holds it.
	UpdateIdentity(ctx context.Context, id string, identity domain.Identity, at time.Time) error

	// SetActive flips is_active and returns the updated account.
	SetActive(ctx context.Context, id string, active bool, at time.Time) (domain.Account, error)

	// SetMedia replaces the profile media reference. A nil media clears it.
	SetMedia(ctx context.Context, id string, m *domain.Media, at time.Time) error
}

type OTPs interface {
	// Replace marks every unused record for the record's (variant, identity,
	// purpose) as used, then inserts rec.
	Replace(ctx context.Context, rec domain.OTPRecord) error

	// GetActive returns the newest unused, unexpired record for the tuple.
	GetActive(ctx context.Context, v domain.Variant, identity domain.Identity, purpose domain.Purpose, now time.Time) (domain.OTPRecord, error)

	// Reissue replaces the code of the active record in place, resetting
	// attempts and moving expires_at. Returns ErrNotFound when no record is
	// active.
	Reissue(ctx context.Context, v domain.Variant, identity domain.Identity, purpose domain.Purpose, code string, now, expiresAt time.Time) (domain.OTPRecord, error)

	// Consume books one attempt against record id and marks it used when
	// code matches, in a single conditional update. The record must be
	// unused, unexpired and below maxAttempts. Returns ErrCodeMismatch when
	// the attempt was counted but code was wrong, and ErrNotFound when the
	// record was not eligible.
	Consume(ctx context.Context, id, code string, maxAttempts int, now time.Time) error

	// DeleteExpired removes records that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Blacklist interface {
	// Add records an access token fingerprint. Adding an existing
	// fingerprint is not an error.
	Add(ctx context.Context, t domain.BlacklistedToken) error

	// Contains reports whether fingerprint is blacklisted and not yet expired.
	Contains(ctx context.Context, fingerprint string, now time.Time) (bool, error)

	// DeleteExpired removes entries that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
