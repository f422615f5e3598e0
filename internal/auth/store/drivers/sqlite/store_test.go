package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
	"github.com/aussiebroadwan/ridebook/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/ridebook/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func newAccount(v domain.Variant, phone string, now time.Time) domain.Account {
	return domain.Account{
		ID:          idx.New().String(),
		Variant:     v,
		Identity:    domain.NewIdentity("+91", phone),
		DisplayName: v.NamePrefix() + "_" + phone[len(phone)-4:] + "_0001",
		Role:        v.DefaultRole(),
		IsActive:    true,
		IsVerified:  true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))

	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.EqualValues(t, 1, version)
}

func TestAccounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("create and read back", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		repo := s.Accounts(domain.VariantUser)

		a := newAccount(domain.VariantUser, "9876543210", now)
		require.NoError(t, repo.Create(ctx, a))

		got, err := repo.GetByIdentity(ctx, a.Identity)
		require.NoError(t, err)
		require.Equal(t, a.ID, got.ID)
		require.Equal(t, domain.VariantUser, got.Variant)
		require.Equal(t, domain.RoleUser, got.Role)
		require.True(t, got.IsActive)
		require.Nil(t, got.LastLogin)
		require.Nil(t, got.Media)
		require.Equal(t, now, got.CreatedAt)

		byID, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, got, byID)
	})

	t.Run("identity is unique per variant", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)

		require.NoError(t, s.Accounts(domain.VariantUser).Create(ctx, newAccount(domain.VariantUser, "9000000001", now)))
		err := s.Accounts(domain.VariantUser).Create(ctx, newAccount(domain.VariantUser, "9000000001", now))
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		// Same phone as a driver is a different population.
		require.NoError(t, s.Accounts(domain.VariantDriver).Create(ctx, newAccount(domain.VariantDriver, "9000000001", now)))
	})

	t.Run("missing account", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)

		_, err := s.Accounts(domain.VariantAdmin).GetByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, s.Accounts(domain.VariantAdmin).TouchLogin(ctx, "nope", now), store.ErrNotFound)
	})

	t.Run("refresh token rotation is conditional", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		repo := s.Accounts(domain.VariantDriver)

		a := newAccount(domain.VariantDriver, "9111111111", now)
		require.NoError(t, repo.Create(ctx, a))
		require.NoError(t, repo.SetRefreshToken(ctx, a.ID, "fp-1", now))

		require.NoError(t, repo.RotateRefreshToken(ctx, a.ID, "fp-1", "fp-2", now))
		require.ErrorIs(t, repo.RotateRefreshToken(ctx, a.ID, "fp-1", "fp-3", now), store.ErrNotFound)

		got, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "fp-2", got.RefreshToken)

		require.NoError(t, repo.ClearRefreshToken(ctx, a.ID, now))
		got, err = repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Empty(t, got.RefreshToken)
		require.ErrorIs(t, repo.RotateRefreshToken(ctx, a.ID, "fp-2", "fp-4", now), store.ErrNotFound)
	})

	t.Run("update identity conflicts", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		repo := s.Accounts(domain.VariantUser)

		a := newAccount(domain.VariantUser, "9222222222", now)
		b := newAccount(domain.VariantUser, "9333333333", now)
		require.NoError(t, repo.Create(ctx, a))
		require.NoError(t, repo.Create(ctx, b))

		require.ErrorIs(t, repo.UpdateIdentity(ctx, a.ID, b.Identity, now), store.ErrAlreadyExists)

		moved := domain.NewIdentity("+61", "400000000")
		require.NoError(t, repo.UpdateIdentity(ctx, a.ID, moved, now))
		got, err := repo.GetByIdentity(ctx, moved)
		require.NoError(t, err)
		require.Equal(t, a.ID, got.ID)
	})

	t.Run("status and media", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		repo := s.Accounts(domain.VariantUser)

		a := newAccount(domain.VariantUser, "9444444444", now)
		require.NoError(t, repo.Create(ctx, a))

		updated, err := repo.SetActive(ctx, a.ID, false, now.Add(time.Second))
		require.NoError(t, err)
		require.False(t, updated.IsActive)
		require.Equal(t, now.Add(time.Second), updated.UpdatedAt)

		_, err = repo.SetActive(ctx, "missing", true, now)
		require.ErrorIs(t, err, store.ErrNotFound)

		m := &domain.Media{
			Key:          "profile-images/1-abc.png",
			URL:          "http://localhost/media/profile-images/1-abc.png",
			OriginalName: "me.png",
			MimeType:     "image/png",
			Size:         1024,
			Width:        64,
			Height:       32,
			UploadedAt:   now,
		}
		require.NoError(t, repo.SetMedia(ctx, a.ID, m, now))
		got, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, m, got.Media)

		require.NoError(t, repo.SetMedia(ctx, a.ID, nil, now))
		got, err = repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Nil(t, got.Media)
	})
}

func newOTP(identity domain.Identity, code string, now time.Time) domain.OTPRecord {
	return domain.OTPRecord{
		ID:        idx.New().String(),
		Variant:   domain.VariantUser,
		Identity:  identity,
		Code:      code,
		Purpose:   domain.PurposeLogin,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
}

func TestOTPs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	identity := domain.NewIdentity("+91", "9876543210")

	t.Run("replace keeps a single active record", func(t *testing.T) {
		t.Parallel()
		repo := newStore(t).OTPs()

		first := newOTP(identity, "111111", now)
		require.NoError(t, repo.Replace(ctx, first))
		second := newOTP(identity, "222222", now.Add(time.Millisecond))
		require.NoError(t, repo.Replace(ctx, second))

		active, err := repo.GetActive(ctx, domain.VariantUser, identity, domain.PurposeLogin, now)
		require.NoError(t, err)
		require.Equal(t, second.ID, active.ID)
		require.Equal(t, "222222", active.Code)

		// The first record was invalidated and can no longer be consumed.
		require.ErrorIs(t, repo.Consume(ctx, first.ID, "111111", 3, now), store.ErrNotFound)
	})

	t.Run("active records are scoped by variant and purpose", func(t *testing.T) {
		t.Parallel()
		repo := newStore(t).OTPs()

		require.NoError(t, repo.Replace(ctx, newOTP(identity, "111111", now)))

		_, err := repo.GetActive(ctx, domain.VariantDriver, identity, domain.PurposeLogin, now)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = repo.GetActive(ctx, domain.VariantUser, identity, domain.PurposeRegistration, now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired records are not active", func(t *testing.T) {
		t.Parallel()
		repo := newStore(t).OTPs()

		require.NoError(t, repo.Replace(ctx, newOTP(identity, "111111", now)))
		_, err := repo.GetActive(ctx, domain.VariantUser, identity, domain.PurposeLogin, now.Add(11*time.Minute))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("consume is single use", func(t *testing.T) {
		t.Parallel()
		repo := newStore(t).OTPs()

		rec := newOTP(identity, "123456", now)
		require.NoError(t, repo.Replace(ctx, rec))

		require.ErrorIs(t, repo.Consume(ctx, rec.ID, "000000", 3, now), store.ErrCodeMismatch)
		require.NoError(t, repo.Consume(ctx, rec.ID, "123456", 3, now))
		require.ErrorIs(t, repo.Consume(ctx, rec.ID, "123456", 3, now), store.ErrNotFound)
	})

	t.Run("consume respects the attempts cap", func(t *testing.T) {
		t.Parallel()
		repo := newStore(t).OTPs()

		rec := newOTP(identity, "123456", now)
		require.NoError(t, repo.Replace(ctx, rec))
		for range 3 {
			require.ErrorIs(t, repo.Consume(ctx, rec.ID, "000000", 3, now), store.ErrCodeMismatch)
		}

		active, err := repo.GetActive(ctx, domain.VariantUser, identity, domain.PurposeLogin, now)
		require.NoError(t, err)
		require.Equal(t, 3, active.Attempts)
		require.ErrorIs(t, repo.Consume(ctx, rec.ID, "123456", 3, now), store.ErrNotFound)
	})

	t.Run("concurrent consume yields one winner", func(t *testing.T) {
		t.Parallel()
		repo := newStore(t).OTPs()

		rec := newOTP(identity, "654321", now)
		require.NoError(t, repo.Replace(ctx, rec))

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if repo.Consume(ctx, rec.ID, "654321", 3, now) == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
	})

	t.Run("concurrent wrong guesses stop at the cap", func(t *testing.T) {
		t.Parallel()
		st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "otps.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		require.NoError(t, st.ApplyMigrations())
		repo := st.OTPs()

		rec := newOTP(identity, "123456", now)
		require.NoError(t, repo.Replace(ctx, rec))

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			counted int
		)
		for range 40 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if errors.Is(repo.Consume(ctx, rec.ID, "000000", 3, now), store.ErrCodeMismatch) {
					mu.Lock()
					counted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.LessOrEqual(t, counted, 3)

		active, err := repo.GetActive(ctx, domain.VariantUser, identity, domain.PurposeLogin, now)
		require.NoError(t, err)
		require.Equal(t, counted, active.Attempts)
		require.LessOrEqual(t, active.Attempts, 3)
	})

	t.Run("reissue updates in place", func(t *testing.T) {
		t.Parallel()
		repo := newStore(t).OTPs()

		rec := newOTP(identity, "111111", now)
		require.NoError(t, repo.Replace(ctx, rec))
		require.ErrorIs(t, repo.Consume(ctx, rec.ID, "000000", 3, now), store.ErrCodeMismatch)

		expires := now.Add(20 * time.Minute)
		got, err := repo.Reissue(ctx, domain.VariantUser, identity, domain.PurposeLogin, "999999", now, expires)
		require.NoError(t, err)
		require.Equal(t, rec.ID, got.ID)
		require.Equal(t, "999999", got.Code)
		require.Equal(t, 0, got.Attempts)
		require.Equal(t, expires, got.ExpiresAt)

		_, err = repo.Reissue(ctx, domain.VariantUser, identity, domain.PurposeRegistration, "999999", now, expires)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		t.Parallel()
		repo := newStore(t).OTPs()

		require.NoError(t, repo.Replace(ctx, newOTP(identity, "111111", now.Add(-time.Hour))))
		require.NoError(t, repo.Replace(ctx, newOTP(domain.NewIdentity("+91", "9000000000"), "222222", now)))

		n, err := repo.DeleteExpired(ctx, now)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})
}

func TestBlacklist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	repo := newStore(t).Blacklist()

	entry := domain.BlacklistedToken{Fingerprint: "fp", AccountID: "acc", ExpiresAt: now.Add(time.Minute), CreatedAt: now}
	require.NoError(t, repo.Add(ctx, entry))
	require.NoError(t, repo.Add(ctx, entry))

	ok, err := repo.Contains(ctx, "fp", now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Contains(ctx, "fp", now.Add(2*time.Minute))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.Contains(ctx, "other", now)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := repo.DeleteExpired(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
