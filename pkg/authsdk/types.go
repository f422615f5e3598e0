package authsdk

import "time"

// Path segments of the account variants.
const (
	VariantUsers   = "users"
	VariantDrivers = "drivers"
	VariantAdmin   = "admin"
)

// ============================================================================
// OTP Types
// ============================================================================

// SendOTPRequest is the body of /otp/send and /otp/resend. CountryCode
// defaults to +91 and Purpose to "login" on the server.
type SendOTPRequest struct {
	CountryCode string `json:"countryCode,omitempty"`
	PhoneNumber string `json:"phoneNumber"`
	Purpose     string `json:"purpose,omitempty"`
}

// SendOTPResponse acknowledges a send. OTP is only present outside
// production deployments.
type SendOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}

// VerifyOTPRequest is the body of /otp/verify.
type VerifyOTPRequest struct {
	CountryCode string `json:"countryCode,omitempty"`
	PhoneNumber string `json:"phoneNumber"`
	Purpose     string `json:"purpose,omitempty"`
	OTP         string `json:"otp"`
}

// RefreshTokenRequest is the body of /otp/refresh-token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenData is a freshly issued token pair.
type TokenData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expiresIn"`

	// Account and IsNewAccount are only set by /otp/verify.
	Account      *Account `json:"account,omitempty"`
	IsNewAccount bool     `json:"isNewAccount,omitempty"`
}

// TokenResponse wraps TokenData in the success envelope.
type TokenResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    TokenData `json:"data"`
}

// ============================================================================
// Account Types
// ============================================================================

// Account is the public profile of a user, driver or admin. The stored
// refresh token is never part of it.
type Account struct {
	ID           string        `json:"id"`
	CountryCode  string        `json:"countryCode"`
	PhoneNumber  string        `json:"phoneNumber"`
	Name         string        `json:"name"`
	Role         string        `json:"role"`
	IsActive     bool          `json:"isActive"`
	IsVerified   bool          `json:"isVerified"`
	LastLogin    *time.Time    `json:"lastLogin,omitempty"`
	ProfileImage *ProfileImage `json:"profileImage,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// ProfileImage references the account's image in media storage.
type ProfileImage struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	OriginalName string    `json:"originalName,omitempty"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// AccountResponse wraps an Account in the success envelope.
type AccountResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	Data    Account `json:"data"`
}

// UpdatePhoneRequest is the body of PATCH /me/phone. The OTP must have been
// sent to the new number with purpose "update-phone".
type UpdatePhoneRequest struct {
	CountryCode string `json:"countryCode,omitempty"`
	PhoneNumber string `json:"phoneNumber"`
	OTP         string `json:"otp"`
}

// SetStatusRequest is the body of the admin account status endpoint.
type SetStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// MessageResponse is a bare success envelope.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ============================================================================
// Health Check Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Cache indicates the rate limit store status. Omitted when limits are
	// kept in process memory.
	Cache string `json:"cache,omitempty"`
}
