package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/limiter"
	"github.com/aussiebroadwan/ridebook/internal/auth/media"
	"github.com/aussiebroadwan/ridebook/internal/auth/service"
	"github.com/aussiebroadwan/ridebook/pkg/authsdk"
	"github.com/aussiebroadwan/ridebook/pkg/httpx"
	"github.com/aussiebroadwan/ridebook/pkg/slogx"
)

// apiError maps a service, limiter or media error onto the response
// envelope. Unknown errors become internal_error and are logged.
func apiError(r *http.Request, v domain.Variant, err error) *authsdk.APIError {
	var (
		verr  *service.ValidationError
		retry *limiter.RetryError
	)

	switch {
	case errors.As(err, &verr):
		return authsdk.ErrValidation.WithMessage(verr.Message)
	case errors.As(err, &retry):
		return retryError(retry)

	case errors.Is(err, service.ErrAccountNotFound):
		return authsdk.ErrAccountNotFound.WithMessage(v.Label() + " not found. Please register first.")
	case errors.Is(err, service.ErrNoActiveOTP):
		return authsdk.ErrNoActiveOTP
	case errors.Is(err, service.ErrInvalidOrExpiredOTP):
		return authsdk.ErrInvalidOrExpiredOTP
	case errors.Is(err, service.ErrOTPAttemptsExceeded):
		return authsdk.ErrOTPAttemptsExceeded
	case errors.Is(err, service.ErrConflict):
		return authsdk.ErrConflict

	case errors.Is(err, service.ErrNoToken), errors.Is(err, httpx.ErrNoBearerToken):
		return authsdk.ErrNoToken
	case errors.Is(err, service.ErrMalformedToken):
		return authsdk.ErrMalformedToken
	case errors.Is(err, service.ErrTokenExpired):
		return authsdk.ErrTokenExpired
	case errors.Is(err, service.ErrSignatureInvalid):
		return authsdk.ErrSignatureInvalid
	case errors.Is(err, service.ErrTokenRevoked):
		return authsdk.ErrTokenRevoked
	case errors.Is(err, service.ErrAccountDeactivated):
		return authsdk.ErrAccountDeactivated

	case errors.Is(err, media.ErrTooLarge):
		return authsdk.ErrPayloadTooLarge
	case errors.Is(err, media.ErrUnsupportedType):
		return authsdk.ErrValidation.WithMessage("Only JPEG, PNG, GIF and WebP images are allowed")
	case errors.Is(err, media.ErrInvalidImage):
		return authsdk.ErrValidation.WithMessage("Invalid image file")

	case errors.Is(err, service.ErrUpstream):
		slogx.FromContext(r.Context()).Error("upstream provider failed", "err", err)
		return authsdk.ErrUpstreamFailure
	case errors.Is(err, service.ErrSessionNotPersisted):
		slogx.FromContext(r.Context()).Error("session not persisted", "err", err)
		return authsdk.ErrSessionNotPersisted
	}

	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	return authsdk.ErrInternal
}

func retryError(e *limiter.RetryError) *authsdk.APIError {
	switch e.Reason {
	case limiter.ReasonLocked:
		return authsdk.NewRetryError(authsdk.ErrorCodeAccountLocked,
			fmt.Sprintf("Too many attempts. Try after %d minutes", e.Minutes()), e.Seconds())
	case limiter.ReasonCooldown:
		return authsdk.NewRetryError(authsdk.ErrorCodeRateLimited,
			fmt.Sprintf("Please wait %d seconds before requesting another OTP", e.Seconds()), e.Seconds())
	default:
		return authsdk.NewRetryError(authsdk.ErrorCodeRateLimited,
			"Too many OTP requests. Please try again later", e.Seconds())
	}
}

func writeError(w http.ResponseWriter, r *http.Request, v domain.Variant, err error) {
	apiError(r, v, err).WriteError(w)
}

// writeRefreshError renders a failed rotation. A refresh token that fails
// verification is refused with 403 like a revoked one; the code still says
// why.
func writeRefreshError(w http.ResponseWriter, r *http.Request, v domain.Variant, err error) {
	e := apiError(r, v, err)
	switch e.Code {
	case authsdk.ErrorCodeMalformedToken, authsdk.ErrorCodeTokenExpired, authsdk.ErrorCodeSignatureInvalid:
		e = e.WithStatus(http.StatusForbidden)
	}
	e.WriteError(w)
}

// authErrorWriter renders bearer authentication failures for variant v.
func authErrorWriter(v domain.Variant) httpx.ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, r, v, err)
	}
}
