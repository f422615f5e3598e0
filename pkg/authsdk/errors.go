package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/ridebook/pkg/httpx"
)

// ============================================================================
// Error codes
// ============================================================================

const (
	ErrorCodeValidation              = "validation_error"
	ErrorCodeNotFound                = "not_found"
	ErrorCodeAccountNotFound         = "account_not_found"
	ErrorCodeNoActiveOTP             = "no_active_otp"
	ErrorCodeInvalidOrExpiredOTP     = "invalid_or_expired_otp"
	ErrorCodeOTPAttemptsExceeded     = "otp_attempts_exceeded"
	ErrorCodeConflict                = "conflict"
	ErrorCodeNoToken                 = "no_token"
	ErrorCodeMalformedToken          = "malformed_token"
	ErrorCodeTokenExpired            = "token_expired"
	ErrorCodeSignatureInvalid        = "signature_invalid"
	ErrorCodeTokenRevoked            = "token_revoked"
	ErrorCodeAccountDeactivated      = "account_deactivated"
	ErrorCodeInsufficientPermissions = "insufficient_permissions"
	ErrorCodeRateLimited             = "rate_limited"
	ErrorCodeAccountLocked           = "account_locked"
	ErrorCodePayloadTooLarge         = "payload_too_large"
	ErrorCodeUpstreamFailure         = "upstream_failure"
	ErrorCodeSessionNotPersisted     = "session_not_persisted"
	ErrorCodeInternal                = "internal_error"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the error envelope of the service:
//
//	{"success": false, "message": "...", "code": "...", "retryAfter": 30}
//
// Handlers write it with WriteError; the SDK client returns it for every
// non-2xx response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`

	// RetryAfter is set in seconds on 429 responses.
	RetryAfter int `json:"retryAfter,omitempty"`
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%d %s: %s (retry after %ds)", e.StatusCode, e.Code, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is matches another *APIError with the same code, so callers can write
// errors.Is(err, authsdk.ErrTokenRevoked).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes the envelope. Rate limited errors also get the
// Retry-After header.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	if e.StatusCode == http.StatusTooManyRequests {
		httpx.WriteRetryError(w, e.Code, e.Message, e.RetryAfter)
		return
	}
	httpx.WriteError(w, e.StatusCode, e.Code, e.Message)
}

// WithMessage copies e with a different message.
func (e *APIError) WithMessage(msg string) *APIError {
	c := *e
	c.Message = msg
	return &c
}

// WithStatus copies e with a different HTTP status.
func (e *APIError) WithStatus(status int) *APIError {
	c := *e
	c.StatusCode = status
	return &c
}

// NewAPIError creates an error with the given status, code and message.
func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// NewRetryError creates a 429 error carrying retryAfter seconds.
func NewRetryError(code, message string, retryAfter int) *APIError {
	return &APIError{
		StatusCode: http.StatusTooManyRequests,
		Code:       code,
		Message:    message,
		RetryAfter: max(retryAfter, 1),
	}
}

// ============================================================================
// Predefined errors
// ============================================================================

var (
	ErrValidation = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeValidation,
		Message:    "Invalid request",
	}

	ErrInvalidBody = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeValidation,
		Message:    "Request body must be valid JSON",
	}

	ErrNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeNotFound,
		Message:    "Not found",
	}

	ErrAccountNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeAccountNotFound,
		Message:    "Account not found. Please register first.",
	}

	ErrNoActiveOTP = &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeNoActiveOTP,
		Message:    "No active OTP found",
	}

	ErrInvalidOrExpiredOTP = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeInvalidOrExpiredOTP,
		Message:    "Invalid or expired OTP",
	}

	ErrOTPAttemptsExceeded = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeOTPAttemptsExceeded,
		Message:    "Maximum attempts exceeded. Please request new OTP",
	}

	ErrConflict = &APIError{
		StatusCode: http.StatusConflict,
		Code:       ErrorCodeConflict,
		Message:    "Phone number is already registered",
	}

	ErrNoToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeNoToken,
		Message:    "Authentication token required",
	}

	ErrNoRefreshToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeNoToken,
		Message:    "Refresh token required",
	}

	ErrMalformedToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeMalformedToken,
		Message:    "Malformed token",
	}

	ErrTokenExpired = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeTokenExpired,
		Message:    "Token expired",
	}

	ErrSignatureInvalid = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeSignatureInvalid,
		Message:    "Invalid token",
	}

	ErrTokenRevoked = &APIError{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeTokenRevoked,
		Message:    "Token has been revoked",
	}

	ErrAccountDeactivated = &APIError{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeAccountDeactivated,
		Message:    "Account is deactivated",
	}

	ErrInsufficientPermissions = &APIError{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeInsufficientPermissions,
		Message:    "Insufficient permissions",
	}

	ErrPayloadTooLarge = &APIError{
		StatusCode: http.StatusRequestEntityTooLarge,
		Code:       ErrorCodePayloadTooLarge,
		Message:    "File too large. Maximum size is 5MB",
	}

	ErrUpstreamFailure = &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeUpstreamFailure,
		Message:    "Failed to send OTP",
	}

	ErrSessionNotPersisted = &APIError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       ErrorCodeSessionNotPersisted,
		Message:    "Could not start session. Please try again",
	}

	ErrInternal = &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeInternal,
		Message:    "Internal server error",
	}
)

// ============================================================================
// Error parsing
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *APIError. Returns
// nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var env APIError
	if err := json.Unmarshal(body, &env); err == nil && env.Code != "" {
		env.StatusCode = resp.StatusCode
		if env.RetryAfter == 0 {
			env.RetryAfter = retryAfterHeader(resp)
		}
		return &env
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       ErrorCodeInternal,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		RetryAfter: retryAfterHeader(resp),
	}
}

func retryAfterHeader(resp *http.Response) int {
	n, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
