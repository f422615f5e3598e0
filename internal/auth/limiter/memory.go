package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Memory is an in-process Guard. The send window is a token bucket that
// refills WindowLimit tokens per Window.
type Memory struct {
	policy Policy
	now    func() time.Time

	mu          sync.Mutex
	sends       map[string]*sendState
	failures    map[string]*failState
	lastCleanup time.Time
}

type sendState struct {
	last         time.Time
	bucket       *rate.Limiter
	blockedUntil time.Time
}

type failState struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
}

// NewMemory returns a Guard backed by process memory. now may be nil.
func NewMemory(policy Policy, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		policy:      policy,
		now:         now,
		sends:       make(map[string]*sendState),
		failures:    make(map[string]*failState),
		lastCleanup: now(),
	}
}

func (m *Memory) AllowSend(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.maybeCleanup(now)

	st, ok := m.sends[key]
	if !ok {
		every := m.policy.Window / time.Duration(max(m.policy.WindowLimit, 1))
		st = &sendState{bucket: rate.NewLimiter(rate.Every(every), m.policy.WindowLimit)}
		m.sends[key] = st
	}

	if now.Before(st.blockedUntil) {
		return &RetryError{Reason: ReasonWindow, RetryAfter: st.blockedUntil.Sub(now)}
	}
	if !st.last.IsZero() && now.Sub(st.last) < m.policy.Cooldown {
		return &RetryError{Reason: ReasonCooldown, RetryAfter: m.policy.Cooldown - now.Sub(st.last)}
	}
	if !st.bucket.AllowN(now, 1) {
		st.blockedUntil = now.Add(m.policy.blockDuration())
		return &RetryError{Reason: ReasonWindow, RetryAfter: m.policy.blockDuration()}
	}

	st.last = now
	return nil
}

func (m *Memory) CheckLocked(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if st, ok := m.failures[key]; ok && now.Before(st.lockedUntil) {
		return &RetryError{Reason: ReasonLocked, RetryAfter: st.lockedUntil.Sub(now)}
	}
	return nil
}

func (m *Memory) RecordFailure(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	st, ok := m.failures[key]
	if !ok || now.Sub(st.windowStart) >= m.policy.FailureWindow {
		st = &failState{windowStart: now, lockedUntil: lockedUntil(st)}
		m.failures[key] = st
	}

	st.count++
	if st.count >= m.policy.MaxFailures {
		st.count = 0
		st.windowStart = now
		st.lockedUntil = now.Add(m.policy.LockDuration)
		return &RetryError{Reason: ReasonLocked, RetryAfter: m.policy.LockDuration}
	}
	return nil
}

func lockedUntil(st *failState) time.Time {
	if st == nil {
		return time.Time{}
	}
	return st.lockedUntil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, key)
	return nil
}

// maybeCleanup drops state that no longer limits anything. Runs at most
// every five minutes. Caller holds mu.
func (m *Memory) maybeCleanup(now time.Time) {
	if now.Sub(m.lastCleanup) < 5*time.Minute {
		return
	}
	m.lastCleanup = now

	for k, st := range m.sends {
		idle := now.Sub(st.last) >= m.policy.Cooldown && !now.Before(st.blockedUntil)
		if idle && st.bucket.TokensAt(now) >= float64(m.policy.WindowLimit) {
			delete(m.sends, k)
		}
	}
	for k, st := range m.failures {
		if now.Sub(st.windowStart) >= m.policy.FailureWindow && !now.Before(st.lockedUntil) {
			delete(m.failures, k)
		}
	}
}
