package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/metrics"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
	"github.com/aussiebroadwan/ridebook/pkg/cryptox"
	"github.com/aussiebroadwan/ridebook/pkg/httpx"
	"github.com/aussiebroadwan/ridebook/pkg/jwtx"
	"github.com/aussiebroadwan/ridebook/pkg/slogx"
)

// TokenConfig holds the signing material and lifetimes of a TokenService.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// BlacklistEnabled makes logout record the access token so it is
	// refused until it expires.
	BlacklistEnabled bool

	// Leeway tolerates clock skew on exp/nbf.
	Leeway time.Duration
}

// TokenService issues, verifies, rotates and revokes token pairs. Access and
// refresh tokens are signed with independent secrets. The audience of
// every token is the account variant it was issued for.
type TokenService struct {
	Store   store.Store
	Metrics *metrics.Metrics
	Now     func() time.Time

	issuer           string
	accessTTL        time.Duration
	refreshTTL       time.Duration
	blacklistEnabled bool

	accessSigner    *jwtx.HS256Signer
	refreshSigner   *jwtx.HS256Signer
	accessVerifier  *jwtx.AccessVerifier
	refreshVerifier *jwtx.RefreshVerifier
}

// NewTokenService builds the signers and verifiers from cfg.
func NewTokenService(st store.Store, m *metrics.Metrics, cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	accessSigner, err := jwtx.NewSignerHS256(cfg.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("access signer: %w", err)
	}
	refreshSigner, err := jwtx.NewSignerHS256(cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("refresh signer: %w", err)
	}

	opts := jwtx.VerifyOptions{Issuer: cfg.Issuer, Leeway: cfg.Leeway}
	accessVerifier, err := jwtx.NewAccessVerifier(cfg.AccessSecret, opts)
	if err != nil {
		return nil, fmt.Errorf("access verifier: %w", err)
	}
	refreshVerifier, err := jwtx.NewRefreshVerifier(cfg.RefreshSecret, opts)
	if err != nil {
		return nil, fmt.Errorf("refresh verifier: %w", err)
	}

	return &TokenService{
		Store:            st,
		Metrics:          m,
		issuer:           cfg.Issuer,
		accessTTL:        cfg.AccessTTL,
		refreshTTL:       cfg.RefreshTTL,
		blacklistEnabled: cfg.BlacklistEnabled,
		accessSigner:     accessSigner,
		refreshSigner:    refreshSigner,
		accessVerifier:   accessVerifier,
		refreshVerifier:  refreshVerifier,
	}, nil
}

// AccessTTL is the lifetime of issued access tokens.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// Mint signs a new pair for acc without persisting anything.
func (s *TokenService) Mint(acc domain.Account) (domain.TokenPair, error) {
	now := clock(s.Now)
	aud := []string{string(acc.Variant)}

	access := jwtx.NewAccessClaims(
		acc.ID, acc.Identity.PhoneNumber, acc.Identity.CountryCode, string(acc.Role),
		s.issuer, aud, s.accessTTL, now,
	)
	accessToken, err := s.accessSigner.Sign(access)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh := jwtx.NewRefreshClaims(acc.ID, s.issuer, aud, s.refreshTTL, now)
	refreshToken, err := s.refreshSigner.Sign(refresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL,
	}, nil
}

// Issue mints a pair and stores the refresh token on the account,
// replacing any previous one. The pair is never returned unless it was
// stored.
func (s *TokenService) Issue(ctx context.Context, acc domain.Account) (domain.TokenPair, error) {
	pair, err := s.Mint(acc)
	if err != nil {
		return domain.TokenPair{}, err
	}

	fp := cryptox.FingerprintToken(pair.RefreshToken)
	if err := s.Store.Accounts(acc.Variant).SetRefreshToken(ctx, acc.ID, fp, clock(s.Now)); err != nil {
		slogx.FromContext(ctx).Error("failed to persist refresh token",
			slog.String("account_id", acc.ID),
			slog.Any("err", err),
		)
		return domain.TokenPair{}, fmt.Errorf("%w: %v", ErrSessionNotPersisted, err)
	}

	s.Metrics.TokensIssued(string(acc.Variant), "otp")
	return pair, nil
}

// VerifyAccess checks the blacklist, then the signature and lifetime of an
// access token.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (jwtx.AccessClaims, error) {
	if token == "" {
		return jwtx.AccessClaims{}, s.reject(ErrNoToken)
	}

	if s.blacklistEnabled {
		listed, err := s.Store.Blacklist().Contains(ctx, cryptox.FingerprintToken(token), clock(s.Now))
		if err != nil {
			return jwtx.AccessClaims{}, fmt.Errorf("check blacklist: %w", err)
		}
		if listed {
			return jwtx.AccessClaims{}, s.reject(ErrTokenRevoked)
		}
	}

	claims, err := s.accessVerifier.Verify(token)
	if err != nil {
		return jwtx.AccessClaims{}, s.reject(mapJWTError(err))
	}
	return claims, nil
}

// VerifyRefresh checks the signature and lifetime of a refresh token. It
// does not check the token against the account.
func (s *TokenService) VerifyRefresh(token string) (jwtx.RefreshClaims, error) {
	if token == "" {
		return jwtx.RefreshClaims{}, s.reject(ErrNoToken)
	}
	claims, err := s.refreshVerifier.Verify(token)
	if err != nil {
		return jwtx.RefreshClaims{}, s.reject(mapJWTError(err))
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a new pair. The swap only happens
// while the presented token is the one stored on the account, so a token
// can be rotated once.
func (s *TokenService) Rotate(ctx context.Context, v domain.Variant, refreshToken string) (domain.TokenPair, domain.Account, error) {
	claims, err := s.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, domain.Account{}, err
	}
	if !slices.Contains(claims.Audience, string(v)) {
		return domain.TokenPair{}, domain.Account{}, s.reject(ErrTokenRevoked)
	}

	acc, err := s.loadActive(ctx, v, claims.AccountID)
	if err != nil {
		return domain.TokenPair{}, domain.Account{}, err
	}

	pair, err := s.Mint(acc)
	if err != nil {
		return domain.TokenPair{}, domain.Account{}, err
	}

	err = s.Store.Accounts(v).RotateRefreshToken(ctx, acc.ID,
		cryptox.FingerprintToken(refreshToken),
		cryptox.FingerprintToken(pair.RefreshToken),
		clock(s.Now),
	)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Warn("refresh token does not match stored token",
				slog.String("account_id", acc.ID))
			return domain.TokenPair{}, domain.Account{}, s.reject(ErrTokenRevoked)
		}
		return domain.TokenPair{}, domain.Account{}, fmt.Errorf("%w: %v", ErrSessionNotPersisted, err)
	}

	s.Metrics.TokensIssued(string(v), "refresh")
	return pair, acc, nil
}

// Revoke ends the session of accountID: the stored refresh token is cleared
// and, with the blacklist enabled, the access token is refused until exp.
func (s *TokenService) Revoke(ctx context.Context, v domain.Variant, accountID, accessToken string, claims jwtx.AccessClaims) error {
	now := clock(s.Now)

	if err := s.Store.Accounts(v).ClearRefreshToken(ctx, accountID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}

	if !s.blacklistEnabled || accessToken == "" {
		return nil
	}

	expiresAt := now.Add(s.accessTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	err := s.Store.Blacklist().Add(ctx, domain.BlacklistedToken{
		Fingerprint: cryptox.FingerprintToken(accessToken),
		AccountID:   accountID,
		ExpiresAt:   expiresAt.UTC(),
		CreatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("blacklist access token: %w", err)
	}
	return nil
}

// Authenticator returns the bearer authenticator for routes of variant v.
// Tokens of other variants, unknown accounts and deactivated accounts are
// refused.
func (s *TokenService) Authenticator(v domain.Variant) httpx.Authenticator {
	return httpx.AuthenticatorFunc(func(ctx context.Context, token string) (httpx.Principal, error) {
		claims, err := s.VerifyAccess(ctx, token)
		if err != nil {
			return httpx.Principal{}, err
		}
		if !slices.Contains(claims.Audience, string(v)) {
			return httpx.Principal{}, s.reject(ErrSignatureInvalid)
		}

		acc, err := s.loadActive(ctx, v, claims.AccountID)
		if err != nil {
			return httpx.Principal{}, err
		}

		return httpx.Principal{
			AccountID: acc.ID,
			Role:      string(acc.Role),
			Claims:    claims,
		}, nil
	})
}

func (s *TokenService) loadActive(ctx context.Context, v domain.Variant, id string) (domain.Account, error) {
	acc, err := s.Store.Accounts(v).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, s.reject(ErrAccountNotFound)
		}
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}
	if !acc.IsActive {
		return domain.Account{}, s.reject(ErrAccountDeactivated)
	}
	return acc, nil
}

func (s *TokenService) reject(err error) error {
	s.Metrics.TokenRejected(err.Error())
	return err
}

// mapJWTError folds jwtx failures into the token error taxonomy.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwtx.ErrInvalidSig), errors.Is(err, jwtx.ErrAlgMismatch):
		return ErrSignatureInvalid
	default:
		return ErrMalformedToken
	}
}
