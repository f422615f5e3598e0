package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for one account variant of the ridebook auth
// service. It runs the unauthenticated OTP flows and creates Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// Variant is the path segment of the account population: "users",
	// "drivers" or "admin".
	Variant string
}

// NewSDKClient creates a client for variant.
func NewSDKClient(baseURL, variant string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Variant: variant,
	}
}

// NewSessionFromTokens creates a session from tokens obtained earlier. The
// session still refreshes the access token when it expires.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, TokenData{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}

// variantPath prefixes path with /v1/<variant>.
func (c *SDKClient) variantPath(path string) string {
	return "/v1/" + c.Variant + path
}
