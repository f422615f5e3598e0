package jwtx_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/ridebook/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "ridebook-auth"

var (
	accessSecret  = bytes.Repeat([]byte("a"), 32)
	refreshSecret = bytes.Repeat([]byte("r"), 32)
)

func newAccessPair(t *testing.T, aud ...string) (*jwtx.HS256Signer, *jwtx.AccessVerifier) {
	t.Helper()
	signer, err := jwtx.NewSignerHS256(accessSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewAccessVerifier(accessSecret, jwtx.VerifyOptions{Issuer: exampleIssuer, Audience: aud})
	require.NoError(t, err)
	return signer, verifier
}

func TestHS256SignAndVerifyAccess(t *testing.T) {
	signer, verifier := newAccessPair(t, "user")
	require.Equal(t, "HS256", signer.Alg())

	claims := jwtx.NewAccessClaims("acc-123", "9876543210", "+91", "user", exampleIssuer, []string{"user"}, 5*time.Minute, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "acc-123", parsed.AccountID)
	require.Equal(t, "9876543210", parsed.Phone)
	require.Equal(t, "user", parsed.Role)
	require.Equal(t, claims.ID, parsed.ID)
}

func TestHS256VerifyFailures(t *testing.T) {
	signer, verifier := newAccessPair(t, "user")
	now := time.Now()

	t.Run("empty token", func(t *testing.T) {
		_, err := verifier.Verify("")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("expired", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("acc", "1", "+91", "user", exampleIssuer, []string{"user"}, time.Minute, now.Add(-time.Hour))
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("tampered signature", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("acc", "1", "+91", "user", exampleIssuer, []string{"user"}, time.Minute, now)
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		_, err = verifier.Verify(parts[0] + "." + parts[1] + "." + string(sig))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("acc", "1", "+91", "driver", exampleIssuer, []string{"driver"}, time.Minute, now)
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("acc", "1", "+91", "user", "someone-else", []string{"user"}, time.Minute, now)
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("unsigned token", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("acc", "1", "+91", "user", exampleIssuer, []string{"user"}, time.Minute, now)
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
	})
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	refreshSigner, err := jwtx.NewSignerHS256(refreshSecret)
	require.NoError(t, err)
	refreshVerifier, err := jwtx.NewRefreshVerifier(refreshSecret, jwtx.VerifyOptions{Issuer: exampleIssuer})
	require.NoError(t, err)
	accessSigner, accessVerifier := newAccessPair(t)

	now := time.Now()
	refresh, err := refreshSigner.Sign(jwtx.NewRefreshClaims("acc-1", exampleIssuer, []string{"user"}, time.Hour, now))
	require.NoError(t, err)

	claims, err := refreshVerifier.Verify(refresh)
	require.NoError(t, err)
	require.Equal(t, "acc-1", claims.AccountID)

	_, err = accessVerifier.Verify(refresh)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)

	access, err := accessSigner.Sign(jwtx.NewAccessClaims("acc-1", "1", "+91", "user", exampleIssuer, []string{"user"}, time.Hour, now))
	require.NoError(t, err)
	_, err = refreshVerifier.Verify(access)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestWeakSecretRejected(t *testing.T) {
	_, err := jwtx.NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	_, err = jwtx.NewAccessVerifier([]byte("short"), jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
