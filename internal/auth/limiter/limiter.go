// Package limiter throttles OTP sends per identity and locks identities out
// after repeated failed verifications. State lives in Redis when configured
// so limits hold across replicas, otherwise in process memory.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrRateLimited matches every *RetryError via errors.Is.
var ErrRateLimited = errors.New("limiter: rate limited")

// Reason says which limit refused the request.
type Reason string

const (
	ReasonCooldown Reason = "cooldown"
	ReasonWindow   Reason = "window"
	ReasonLocked   Reason = "locked"
)

// RetryError is returned when a limit refuses a request.
type RetryError struct {
	Reason     Reason
	RetryAfter time.Duration
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("limiter: %s, retry after %s", e.Reason, e.RetryAfter)
}

func (e *RetryError) Is(target error) bool { return target == ErrRateLimited }

// Seconds is RetryAfter rounded up to whole seconds, at least 1.
func (e *RetryError) Seconds() int {
	return max(int(math.Ceil(e.RetryAfter.Seconds())), 1)
}

// Minutes is RetryAfter rounded up to whole minutes, at least 1.
func (e *RetryError) Minutes() int {
	return max(int(math.Ceil(e.RetryAfter.Minutes())), 1)
}

// Policy configures both backends.
type Policy struct {
	// Cooldown is the minimum gap between two sends for one key.
	Cooldown time.Duration
	// WindowLimit sends are allowed per Window before the key is blocked
	// for BlockWindows windows.
	WindowLimit  int
	Window       time.Duration
	BlockWindows int

	// MaxFailures failed verifications within FailureWindow lock the key
	// for LockDuration.
	MaxFailures   int
	FailureWindow time.Duration
	LockDuration  time.Duration
}

// DefaultPolicy: 60s cooldown, 5 sends an hour then a 3 hour block, and a
// 15 minute lock after 5 failures in 15 minutes.
func DefaultPolicy() Policy {
	return Policy{
		Cooldown:      time.Minute,
		WindowLimit:   5,
		Window:        time.Hour,
		BlockWindows:  3,
		MaxFailures:   5,
		FailureWindow: 15 * time.Minute,
		LockDuration:  15 * time.Minute,
	}
}

func (p Policy) blockDuration() time.Duration {
	return time.Duration(p.BlockWindows) * p.Window
}

// Guard is implemented by the redis and memory backends.
type Guard interface {
	// AllowSend records a send for key or refuses it with a *RetryError.
	AllowSend(ctx context.Context, key string) error

	// CheckLocked returns a *RetryError while key is locked out.
	CheckLocked(ctx context.Context, key string) error

	// RecordFailure counts a failed verification. The failure that trips
	// the lock returns a *RetryError.
	RecordFailure(ctx context.Context, key string) error

	// Reset forgets failures and any lock for key.
	Reset(ctx context.Context, key string) error
}
