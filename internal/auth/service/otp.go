package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
	"github.com/aussiebroadwan/ridebook/pkg/cryptox"
	"github.com/aussiebroadwan/ridebook/pkg/idx"
)

const (
	// DefaultOTPTTL is how long an issued code stays valid.
	DefaultOTPTTL = 10 * time.Minute

	// MaxOTPAttempts failed tries exhaust a code.
	MaxOTPAttempts = 3
)

// OTPService issues and consumes one-time codes. At most one code is active
// per (variant, identity, purpose).
type OTPService struct {
	Store store.Store
	TTL   time.Duration
	Now   func() time.Time

	// Generate defaults to cryptox.GenerateOTP.
	Generate func() (string, error)
}

func (s *OTPService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultOTPTTL
	}
	return s.TTL
}

func (s *OTPService) generate() (string, error) {
	if s.Generate != nil {
		return s.Generate()
	}
	return cryptox.GenerateOTP()
}

// Issue invalidates any active code for the tuple and stores a fresh one.
func (s *OTPService) Issue(ctx context.Context, v domain.Variant, identity domain.Identity, purpose domain.Purpose) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", err
	}

	now := clock(s.Now)
	rec := domain.OTPRecord{
		ID:        idx.NewAt(now).String(),
		Variant:   v,
		Identity:  identity,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}
	if err := s.Store.OTPs().Replace(ctx, rec); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Reissue swaps the code of the active record, resets its attempts and
// extends its expiry. ErrNoActiveOTP when nothing is active.
func (s *OTPService) Reissue(ctx context.Context, v domain.Variant, identity domain.Identity, purpose domain.Purpose) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", err
	}

	now := clock(s.Now)
	_, err = s.Store.OTPs().Reissue(ctx, v, identity, purpose, code, now, now.Add(s.ttl()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNoActiveOTP
		}
		return "", fmt.Errorf("reissue otp: %w", err)
	}
	return code, nil
}

// Consume checks code against the active record and marks it used.
//
// Every guess costs one attempt, counted in the same store write that
// compares the code, so concurrent guesses cannot exceed the cap. Once the
// cap is reached the record stays exhausted even for the right code.
func (s *OTPService) Consume(ctx context.Context, v domain.Variant, identity domain.Identity, purpose domain.Purpose, code string) error {
	now := clock(s.Now)
	otps := s.Store.OTPs()

	rec, err := otps.GetActive(ctx, v, identity, purpose, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrExpiredOTP
		}
		return fmt.Errorf("load otp: %w", err)
	}
	if rec.Attempts >= MaxOTPAttempts {
		return ErrOTPAttemptsExceeded
	}

	err = otps.Consume(ctx, rec.ID, code, MaxOTPAttempts, now)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrCodeMismatch):
		return ErrInvalidOrExpiredOTP
	case errors.Is(err, store.ErrNotFound):
		return s.ineligible(ctx, otps, rec, now)
	default:
		return fmt.Errorf("consume otp: %w", err)
	}
}

// ineligible explains why rec could not take an attempt after it was loaded:
// a concurrent guess either used up the cap or consumed it.
func (s *OTPService) ineligible(ctx context.Context, otps store.OTPs, rec domain.OTPRecord, now time.Time) error {
	cur, err := otps.GetActive(ctx, rec.Variant, rec.Identity, rec.Purpose, now)
	if err == nil && cur.ID == rec.ID && cur.Attempts >= MaxOTPAttempts {
		return ErrOTPAttemptsExceeded
	}
	return ErrInvalidOrExpiredOTP
}
