package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// OTPMin and OTPMax bound generated codes, so every code has six digits.
	OTPMin = 100000
	OTPMax = 999999
)

var otpSpan = big.NewInt(OTPMax - OTPMin + 1)

// GenerateOTP returns a uniformly random code in [OTPMin, OTPMax].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+OTPMin), nil
}
