package domain

import "time"

// Purpose tags why an OTP was requested.
type Purpose string

const (
	PurposeRegistration      Purpose = "registration"
	PurposeLogin             Purpose = "login"
	PurposePasswordReset     Purpose = "password_reset"
	PurposePhoneVerification Purpose = "phone_verification"
	PurposeUpdatePhone       Purpose = "update-phone"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeRegistration, PurposeLogin, PurposePasswordReset,
		PurposePhoneVerification, PurposeUpdatePhone:
		return true
	}
	return false
}

// OTPRecord is one issued code for (variant, identity, purpose).
type OTPRecord struct {
	ID        string
	Variant   Variant
	Identity  Identity
	Code      string
	Purpose   Purpose
	Attempts  int
	IsUsed    bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Active reports whether the record is unused and unexpired at now.
func (r OTPRecord) Active(now time.Time) bool {
	return !r.IsUsed && r.ExpiresAt.After(now)
}
