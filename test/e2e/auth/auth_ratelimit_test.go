package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/ridebook/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestVerifyLockout verifies five wrong codes lock the number and that the
// per-IP strict profile then refuses further attempts.
func TestVerifyLockout(t *testing.T) {
	baseURL := setupAuthContainerWithDefaultRateLimits(t)
	client := authsdk.NewSDKClient(baseURL, authsdk.VariantUsers)
	phone := nextPhone()

	code := sendCode(t, client, phone, "registration")
	wrong := "111111"
	if code == wrong {
		wrong = "222222"
	}
	req := authsdk.VerifyOTPRequest{PhoneNumber: phone, Purpose: "registration", OTP: wrong}

	for i := range 3 {
		_, err := client.VerifyOTP(t.Context(), req)
		requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidOrExpiredOTP)
		t.Logf("attempt %d refused", i+1)
	}

	_, err := client.VerifyOTP(t.Context(), req)
	requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeOTPAttemptsExceeded)

	_, err = client.VerifyOTP(t.Context(), req)
	apiErr := requireAPIError(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeAccountLocked)
	require.Equal(t, 900, apiErr.RetryAfter)

	// Sixth request inside the minute meets the strict per-IP profile.
	_, err = client.VerifyOTP(t.Context(), req)
	requireAPIError(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited)
}

// TestRateLimitRefreshEndpoint verifies the moderate profile on
// /otp/refresh-token.
func TestRateLimitRefreshEndpoint(t *testing.T) {
	baseURL := setupAuthContainerWithDefaultRateLimits(t)
	client := authsdk.NewSDKClient(baseURL, authsdk.VariantUsers)

	for range 20 {
		_, err := client.RefreshToken(t.Context(), "not-a-token")
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeMalformedToken)
	}

	_, err := client.RefreshToken(t.Context(), "not-a-token")
	apiErr := requireAPIError(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited)
	require.Positive(t, apiErr.RetryAfter)
}
