package domain

import "time"

// TokenPair is what a successful verify or refresh hands back: a short-lived
// access token and the refresh token that is now stored on the account.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string        // always "Bearer"
	ExpiresIn    time.Duration // access token lifetime
}

// BlacklistedToken is an access token refused until it would have expired
// anyway. Only the fingerprint of the token is kept.
type BlacklistedToken struct {
	Fingerprint string
	AccountID   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
