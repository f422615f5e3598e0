package service

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
)

var (
	ErrValidation          = errors.New("validation_error")
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrNoActiveOTP         = errors.New("no_active_otp")
	ErrInvalidOrExpiredOTP = errors.New("invalid_or_expired_otp")
	ErrOTPAttemptsExceeded = errors.New("otp_attempts_exceeded")
	ErrConflict            = errors.New("conflict")

	ErrNoToken            = errors.New("no_token")
	ErrMalformedToken     = errors.New("malformed_token")
	ErrTokenExpired       = errors.New("token_expired")
	ErrSignatureInvalid   = errors.New("signature_invalid")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrAccountDeactivated = errors.New("account_deactivated")

	ErrUpstream            = errors.New("upstream_failure")
	ErrSessionNotPersisted = errors.New("session_not_persisted")
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var (
	phonePattern       = regexp.MustCompile(`^[0-9]{6,15}$`)
	countryCodePattern = regexp.MustCompile(`^\+[0-9]{1,4}$`)
	otpPattern         = regexp.MustCompile(`^[0-9]{6}$`)
)

// parseIdentity normalises and validates a phone number pair.
func parseIdentity(countryCode, phoneNumber string) (domain.Identity, error) {
	id := domain.NewIdentity(countryCode, phoneNumber)
	if id.PhoneNumber == "" {
		return domain.Identity{}, invalid("phoneNumber", "Phone number is required")
	}
	if !phonePattern.MatchString(id.PhoneNumber) {
		return domain.Identity{}, invalid("phoneNumber", "Phone number must be 6 to 15 digits")
	}
	if !countryCodePattern.MatchString(id.CountryCode) {
		return domain.Identity{}, invalid("countryCode", "Invalid country code")
	}
	return id, nil
}

// parsePurpose applies the login default and rejects unknown purposes.
func parsePurpose(raw string) (domain.Purpose, error) {
	if raw == "" {
		return domain.PurposeLogin, nil
	}
	p := domain.Purpose(raw)
	if !p.Valid() {
		return "", invalid("purpose", "Invalid purpose")
	}
	return p, nil
}

func parseCode(code string) error {
	if code == "" {
		return invalid("otp", "OTP is required")
	}
	if !otpPattern.MatchString(code) {
		return invalid("otp", "OTP must be 6 digits")
	}
	return nil
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}
