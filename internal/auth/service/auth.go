package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/limiter"
	"github.com/aussiebroadwan/ridebook/internal/auth/media"
	"github.com/aussiebroadwan/ridebook/internal/auth/metrics"
	"github.com/aussiebroadwan/ridebook/internal/auth/notify"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
	"github.com/aussiebroadwan/ridebook/pkg/jwtx"
	"github.com/aussiebroadwan/ridebook/pkg/slogx"
)

// AuthService runs the phone OTP flows for every account variant.
type AuthService struct {
	Store    store.Store
	OTPs     *OTPService
	Identity *IdentityResolver
	Tokens   *TokenService
	Guard    limiter.Guard
	Notifier notify.Notifier
	Media    media.Storage
	Metrics  *metrics.Metrics

	// Production makes notifier failures fatal and keeps codes out of
	// responses.
	Production bool

	Now func() time.Time
}

// SendRequest asks for a code to be sent to a phone number.
type SendRequest struct {
	Variant     domain.Variant
	CountryCode string
	PhoneNumber string
	Purpose     string
}

// SendResult is returned by Send and Resend. OTP is only set outside
// production.
type SendResult struct {
	Message string
	OTP     string
}

// VerifyRequest presents a code for a phone number.
type VerifyRequest struct {
	Variant     domain.Variant
	CountryCode string
	PhoneNumber string
	Purpose     string
	OTP         string
}

// VerifyResult is a signed-in session.
type VerifyResult struct {
	Account      domain.Account
	Tokens       domain.TokenPair
	IsNewAccount bool
}

// UpdatePhoneRequest moves an account to a new, OTP-verified number.
type UpdatePhoneRequest struct {
	CountryCode string
	PhoneNumber string
	OTP         string
}

// ImageUpload is a profile image as received from the client.
type ImageUpload struct {
	Filename string
	Data     []byte
}

func sendKey(v domain.Variant, p domain.Purpose, id domain.Identity) string {
	return string(v) + ":" + string(p) + ":" + id.E164()
}

func failureKey(v domain.Variant, id domain.Identity) string {
	return string(v) + ":" + id.E164()
}

// Send issues a fresh code for (variant, phone, purpose) and delivers it.
func (s *AuthService) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	identity, purpose, err := s.prepareSend(ctx, req)
	if err != nil {
		s.Metrics.OTPSent(string(req.Variant), purposeLabel(req.Purpose), outcomeOf(err))
		return SendResult{}, err
	}

	code, err := s.OTPs.Issue(ctx, req.Variant, identity, purpose)
	if err != nil {
		s.Metrics.OTPSent(string(req.Variant), string(purpose), "error")
		return SendResult{}, err
	}

	return s.deliver(ctx, req.Variant, identity, purpose, code, "OTP sent")
}

// Resend replaces the code of the active record and delivers it again.
func (s *AuthService) Resend(ctx context.Context, req SendRequest) (SendResult, error) {
	identity, purpose, err := s.prepareSend(ctx, req)
	if err != nil {
		s.Metrics.OTPSent(string(req.Variant), purposeLabel(req.Purpose), outcomeOf(err))
		return SendResult{}, err
	}

	code, err := s.OTPs.Reissue(ctx, req.Variant, identity, purpose)
	if err != nil {
		s.Metrics.OTPSent(string(req.Variant), string(purpose), outcomeOf(err))
		return SendResult{}, err
	}

	return s.deliver(ctx, req.Variant, identity, purpose, code, "OTP resent")
}

// prepareSend validates the request, runs the purpose pre-checks and
// applies the send limits.
func (s *AuthService) prepareSend(ctx context.Context, req SendRequest) (domain.Identity, domain.Purpose, error) {
	identity, err := parseIdentity(req.CountryCode, req.PhoneNumber)
	if err != nil {
		return domain.Identity{}, "", err
	}
	purpose, err := parsePurpose(req.Purpose)
	if err != nil {
		return domain.Identity{}, "", err
	}

	switch purpose {
	case domain.PurposeRegistration:
		if req.Variant == domain.VariantAdmin {
			return domain.Identity{}, "", invalid("purpose", "Admin accounts cannot self-register")
		}
	case domain.PurposeUpdatePhone:
		// The code goes to the new number, which must be free.
		if _, err := s.Identity.Lookup(ctx, req.Variant, identity); err == nil {
			return domain.Identity{}, "", ErrConflict
		} else if !errors.Is(err, ErrAccountNotFound) {
			return domain.Identity{}, "", err
		}
	default:
		if _, err := s.Identity.Lookup(ctx, req.Variant, identity); err != nil {
			return domain.Identity{}, "", err
		}
	}

	if err := s.guard(ctx, s.Guard.CheckLocked, failureKey(req.Variant, identity)); err != nil {
		return domain.Identity{}, "", err
	}
	if err := s.guard(ctx, s.Guard.AllowSend, sendKey(req.Variant, purpose, identity)); err != nil {
		return domain.Identity{}, "", err
	}

	return identity, purpose, nil
}

func (s *AuthService) deliver(ctx context.Context, v domain.Variant, identity domain.Identity, purpose domain.Purpose, code, message string) (SendResult, error) {
	log := slogx.FromContext(ctx)

	start := time.Now()
	err := s.Notifier.Send(ctx, identity, code, purpose)
	if err != nil {
		s.Metrics.OTPDelivery("error", time.Since(start))
		if s.Production {
			log.Error("otp delivery failed", slog.String("variant", string(v)), slog.Any("err", err))
			s.Metrics.OTPSent(string(v), string(purpose), "upstream_failure")
			return SendResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		log.Warn("otp delivery failed, continuing outside production",
			slog.String("variant", string(v)), slog.Any("err", err))
	} else {
		s.Metrics.OTPDelivery("ok", time.Since(start))
	}

	s.Metrics.OTPSent(string(v), string(purpose), "ok")
	log.Info("otp sent",
		slog.String("variant", string(v)),
		slog.String("purpose", string(purpose)),
		slog.String("phone", identity.String()),
	)

	res := SendResult{Message: message}
	if !s.Production {
		res.OTP = code
	}
	return res, nil
}

// Verify consumes a code and signs the caller in, creating the account on
// registration.
func (s *AuthService) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	res, err := s.verify(ctx, req)
	s.Metrics.OTPVerification(string(req.Variant), outcomeOf(err))
	return res, err
}

func (s *AuthService) verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	identity, err := parseIdentity(req.CountryCode, req.PhoneNumber)
	if err != nil {
		return VerifyResult{}, err
	}
	purpose, err := parsePurpose(req.Purpose)
	if err != nil {
		return VerifyResult{}, err
	}
	if err := parseCode(req.OTP); err != nil {
		return VerifyResult{}, err
	}
	if purpose == domain.PurposeRegistration && req.Variant == domain.VariantAdmin {
		return VerifyResult{}, invalid("purpose", "Admin accounts cannot self-register")
	}
	if purpose == domain.PurposeUpdatePhone {
		return VerifyResult{}, invalid("purpose", "Phone change codes are verified through the phone update endpoint")
	}

	if err := s.consume(ctx, req.Variant, identity, purpose, req.OTP); err != nil {
		return VerifyResult{}, err
	}

	acc, isNew, err := s.Identity.Resolve(ctx, req.Variant, identity, purpose)
	if err != nil {
		return VerifyResult{}, err
	}
	if !acc.IsActive {
		return VerifyResult{}, ErrAccountDeactivated
	}

	pair, err := s.Tokens.Issue(ctx, acc)
	if err != nil {
		return VerifyResult{}, err
	}

	slogx.FromContext(ctx).Info("otp verified",
		slog.String("variant", string(req.Variant)),
		slog.String("account_id", acc.ID),
		slog.Bool("new_account", isNew),
	)
	return VerifyResult{Account: acc, Tokens: pair, IsNewAccount: isNew}, nil
}

// consume checks the lockout, consumes the code and books failures against
// the identity.
func (s *AuthService) consume(ctx context.Context, v domain.Variant, identity domain.Identity, purpose domain.Purpose, code string) error {
	key := failureKey(v, identity)
	if err := s.guard(ctx, s.Guard.CheckLocked, key); err != nil {
		return err
	}

	err := s.OTPs.Consume(ctx, v, identity, purpose, code)
	switch {
	case err == nil:
		if err := s.Guard.Reset(ctx, key); err != nil {
			slogx.FromContext(ctx).Warn("failed to reset verification failures", slog.Any("err", err))
		}
		return nil
	case errors.Is(err, ErrInvalidOrExpiredOTP), errors.Is(err, ErrOTPAttemptsExceeded):
		if lerr := s.guard(ctx, s.Guard.RecordFailure, key); lerr != nil {
			return lerr
		}
		return err
	default:
		return err
	}
}

// guard runs a limiter check. Only refusals are returned; a broken limiter
// backend is logged and the request goes ahead.
func (s *AuthService) guard(ctx context.Context, check func(context.Context, string) error, key string) error {
	err := check(ctx, key)
	if err == nil || errors.Is(err, limiter.ErrRateLimited) {
		return err
	}
	slogx.FromContext(ctx).Error("rate limiter unavailable, allowing request", slog.Any("err", err))
	return nil
}

// Refresh rotates a refresh token into a new pair.
func (s *AuthService) Refresh(ctx context.Context, v domain.Variant, refreshToken string) (domain.TokenPair, error) {
	pair, _, err := s.Tokens.Rotate(ctx, v, refreshToken)
	return pair, err
}

// Logout revokes the session behind an authenticated request.
func (s *AuthService) Logout(ctx context.Context, v domain.Variant, accountID, accessToken string, claims jwtx.AccessClaims) error {
	if err := s.Tokens.Revoke(ctx, v, accountID, accessToken, claims); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("logged out", slog.String("variant", string(v)), slog.String("account_id", accountID))
	return nil
}

// Profile returns the account behind accountID.
func (s *AuthService) Profile(ctx context.Context, v domain.Variant, accountID string) (domain.Account, error) {
	acc, err := s.Store.Accounts(v).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}
	return acc, nil
}

// UpdatePhone moves the account to a new number after verifying the
// update-phone code sent to that number.
func (s *AuthService) UpdatePhone(ctx context.Context, v domain.Variant, accountID string, req UpdatePhoneRequest) (domain.Account, error) {
	identity, err := parseIdentity(req.CountryCode, req.PhoneNumber)
	if err != nil {
		return domain.Account{}, err
	}
	if err := parseCode(req.OTP); err != nil {
		return domain.Account{}, err
	}

	acc, err := s.Profile(ctx, v, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if acc.Identity == identity {
		return domain.Account{}, invalid("phoneNumber", "New phone number must differ from the current one")
	}

	if _, err := s.Identity.Lookup(ctx, v, identity); err == nil {
		return domain.Account{}, ErrConflict
	} else if !errors.Is(err, ErrAccountNotFound) {
		return domain.Account{}, err
	}

	if err := s.consume(ctx, v, identity, domain.PurposeUpdatePhone, req.OTP); err != nil {
		return domain.Account{}, err
	}

	if err := s.Store.Accounts(v).UpdateIdentity(ctx, accountID, identity, clock(s.Now)); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return domain.Account{}, ErrConflict
		case errors.Is(err, store.ErrNotFound):
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("update phone: %w", err)
	}

	slogx.FromContext(ctx).Info("phone number updated", slog.String("account_id", accountID))
	return s.Profile(ctx, v, accountID)
}

// SetStatus activates or deactivates an account. Deactivation also ends
// its refresh session.
func (s *AuthService) SetStatus(ctx context.Context, v domain.Variant, accountID string, active bool) (domain.Account, error) {
	now := clock(s.Now)
	accounts := s.Store.Accounts(v)

	acc, err := accounts.SetActive(ctx, accountID, active, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("set status: %w", err)
	}

	if !active {
		if err := accounts.ClearRefreshToken(ctx, accountID, now); err != nil {
			return domain.Account{}, fmt.Errorf("clear refresh token: %w", err)
		}
		acc.RefreshToken = ""
	}

	slogx.FromContext(ctx).Info("account status changed",
		slog.String("variant", string(v)),
		slog.String("account_id", accountID),
		slog.Bool("active", active),
	)
	return acc, nil
}

// UpdateImage validates and stores a new profile image, then drops the old
// one from media storage.
func (s *AuthService) UpdateImage(ctx context.Context, v domain.Variant, accountID string, up ImageUpload) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	if len(up.Data) > media.MaxImageSize {
		return domain.Account{}, media.ErrTooLarge
	}
	img, err := media.Inspect(up.Data)
	if err != nil {
		return domain.Account{}, err
	}

	acc, err := s.Profile(ctx, v, accountID)
	if err != nil {
		return domain.Account{}, err
	}

	now := clock(s.Now)
	key := media.NewKey(now, up.Filename, img.MimeType)
	url, err := s.Media.Put(ctx, key, bytes.NewReader(img.Data), img.MimeType)
	if err != nil {
		log.Error("failed to store profile image", slog.Any("err", err))
		return domain.Account{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	m := &domain.Media{
		Key:          key,
		URL:          url,
		OriginalName: up.Filename,
		MimeType:     img.MimeType,
		Size:         int64(len(img.Data)),
		Width:        img.Width,
		Height:       img.Height,
		UploadedAt:   now,
	}
	if err := s.Store.Accounts(v).SetMedia(ctx, accountID, m, now); err != nil {
		if derr := s.Media.Delete(ctx, key); derr != nil {
			log.Warn("failed to remove orphaned image", slog.String("key", key), slog.Any("err", derr))
		}
		return domain.Account{}, fmt.Errorf("save profile image: %w", err)
	}

	if acc.Media != nil && acc.Media.Key != "" && acc.Media.Key != key {
		if err := s.Media.Delete(ctx, acc.Media.Key); err != nil {
			log.Warn("failed to delete previous image", slog.String("key", acc.Media.Key), slog.Any("err", err))
		}
	}

	acc.Media = m
	acc.UpdatedAt = now
	return acc, nil
}

// purposeLabel keeps unvalidated input out of metric labels.
func purposeLabel(raw string) string {
	p, err := parsePurpose(raw)
	if err != nil {
		return "unknown"
	}
	return string(p)
}

// outcomeOf labels an error for metrics.
func outcomeOf(err error) string {
	var retry *limiter.RetryError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &retry):
		return string(retry.Reason)
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrNoActiveOTP):
		return "no_active_otp"
	case errors.Is(err, ErrInvalidOrExpiredOTP):
		return "invalid_or_expired"
	case errors.Is(err, ErrOTPAttemptsExceeded):
		return "attempts_exceeded"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
