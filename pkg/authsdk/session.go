package authsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errNoRefreshToken = errors.New("authsdk: session has no refresh token")

// expiryBuffer refreshes access tokens slightly before they expire.
const expiryBuffer = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	account      *Account
	isNew        bool
}

// newSession creates a new authenticated session from issued tokens.
func newSession(client *SDKClient, data TokenData) *Session {
	return &Session{
		client:       client,
		accessToken:  data.AccessToken,
		refreshToken: data.RefreshToken,
		expiresAt:    expiresAt(data.ExpiresIn),
		account:      data.Account,
		isNew:        data.IsNewAccount,
	}
}

func expiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn)*time.Second - expiryBuffer)
}

// getValidToken returns the access token, rotating the pair first when it
// is within expiryBuffer of expiring.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, fresh := s.accessToken, time.Now().Before(s.expiresAt)
	s.mu.RUnlock()
	if fresh {
		return token, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have rotated while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if err := s.rotateLocked(ctx); err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	return s.accessToken, nil
}

// Refresh rotates the session's tokens now, regardless of expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotateLocked(ctx)
}

// rotateLocked trades the refresh token for a new pair. s.mu must be held.
func (s *Session) rotateLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return errNoRefreshToken
	}

	resp, err := s.client.RefreshToken(ctx, s.refreshToken)
	if err != nil {
		return err
	}

	s.accessToken = resp.Data.AccessToken
	s.refreshToken = resp.Data.RefreshToken
	s.expiresAt = expiresAt(resp.Data.ExpiresIn)
	return nil
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Account is the profile returned at login, if any.
func (s *Session) Account() *Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

// IsNewAccount reports whether the login created the account.
func (s *Session) IsNewAccount() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isNew
}
