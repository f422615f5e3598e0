package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/ridebook/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func registered(rc jwt.RegisteredClaims) *jwtx.Registered {
	return &jwtx.Registered{RegisteredClaims: rc}
}

func TestValidateIssuer(t *testing.T) {
	c := registered(jwt.RegisteredClaims{Issuer: "ridebook-auth"})

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("ridebook-auth"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateIssuer("booking-service"), jwtx.ErrIssuer)
	})
}

func TestValidateAudience(t *testing.T) {
	c := registered(jwt.RegisteredClaims{Audience: []string{"driver"}})

	t.Run("contains match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"driver"}))
	})

	t.Run("no match", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateAudience([]string{"user"}), jwtx.ErrAudience)
	})

	t.Run("empty expected list", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience(nil))
	})
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid token", func(t *testing.T) {
		c := registered(jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))})
		require.NoError(t, c.ValidateExpiry())
	})

	t.Run("expired token", func(t *testing.T) {
		c := registered(jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))})
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := registered(jwt.RegisteredClaims{NotBefore: jwt.NewNumericDate(now.Add(time.Minute))})
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrNotYetValid)
	})

	t.Run("within leeway", func(t *testing.T) {
		c := registered(jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second))})
		require.NoError(t, c.ValidateExpiryWithLeeway(30*time.Second))
	})
}

func TestNewAccessClaims(t *testing.T) {
	now := time.Now().UTC()
	c := jwtx.NewAccessClaims("acc-1", "9876543210", "+91", "driver", "iss", []string{"driver"}, time.Hour, now)

	require.Equal(t, "acc-1", c.Subject)
	require.Equal(t, "acc-1", c.AccountID)
	require.Equal(t, "driver", c.Role)
	require.NotEmpty(t, c.ID)
	require.WithinDuration(t, now.Add(time.Hour), c.ExpiresAt.Time, time.Second)
	require.InDelta(t, time.Hour.Seconds(), c.ExpiresIn(now).Seconds(), 1)

	other := jwtx.NewAccessClaims("acc-1", "9876543210", "+91", "driver", "iss", []string{"driver"}, time.Hour, now)
	require.NotEqual(t, c.ID, other.ID, "jti must differ between tokens minted at the same instant")
}
