package limiter_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/limiter"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func requireRetry(t *testing.T, err error, reason limiter.Reason) *limiter.RetryError {
	t.Helper()
	require.ErrorIs(t, err, limiter.ErrRateLimited)
	var re *limiter.RetryError
	require.ErrorAs(t, err, &re)
	require.Equal(t, reason, re.Reason)
	require.Positive(t, re.RetryAfter)
	return re
}

func TestRetryErrorRounding(t *testing.T) {
	t.Parallel()

	re := &limiter.RetryError{RetryAfter: 61 * time.Second}
	require.Equal(t, 61, re.Seconds())
	require.Equal(t, 2, re.Minutes())

	re = &limiter.RetryError{RetryAfter: 10 * time.Millisecond}
	require.Equal(t, 1, re.Seconds())
	require.Equal(t, 1, re.Minutes())
}

func TestMemoryCooldown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	g := limiter.NewMemory(limiter.DefaultPolicy(), clock.Now)

	require.NoError(t, g.AllowSend(ctx, "user:login:+919876543210"))

	clock.Advance(20 * time.Second)
	re := requireRetry(t, g.AllowSend(ctx, "user:login:+919876543210"), limiter.ReasonCooldown)
	require.Equal(t, 40*time.Second, re.RetryAfter)

	// Another key is unaffected.
	require.NoError(t, g.AllowSend(ctx, "driver:login:+919876543210"))

	clock.Advance(40 * time.Second)
	require.NoError(t, g.AllowSend(ctx, "user:login:+919876543210"))
}

func TestMemoryWindowBlock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	policy := limiter.DefaultPolicy()
	g := limiter.NewMemory(policy, clock.Now)

	for range policy.WindowLimit {
		require.NoError(t, g.AllowSend(ctx, "k"))
		clock.Advance(policy.Cooldown)
	}

	re := requireRetry(t, g.AllowSend(ctx, "k"), limiter.ReasonWindow)
	require.Equal(t, 3*time.Hour, re.RetryAfter)

	clock.Advance(time.Hour)
	requireRetry(t, g.AllowSend(ctx, "k"), limiter.ReasonWindow)

	clock.Advance(2 * time.Hour)
	require.NoError(t, g.AllowSend(ctx, "k"))
}

func TestMemoryLockout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	policy := limiter.DefaultPolicy()
	g := limiter.NewMemory(policy, clock.Now)

	for range policy.MaxFailures - 1 {
		require.NoError(t, g.RecordFailure(ctx, "k"))
	}
	require.NoError(t, g.CheckLocked(ctx, "k"))

	requireRetry(t, g.RecordFailure(ctx, "k"), limiter.ReasonLocked)
	re := requireRetry(t, g.CheckLocked(ctx, "k"), limiter.ReasonLocked)
	require.Equal(t, 15, re.Minutes())

	clock.Advance(policy.LockDuration)
	require.NoError(t, g.CheckLocked(ctx, "k"))
}

func TestMemoryFailureWindowExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	policy := limiter.DefaultPolicy()
	g := limiter.NewMemory(policy, clock.Now)

	for range policy.MaxFailures - 1 {
		require.NoError(t, g.RecordFailure(ctx, "k"))
	}
	clock.Advance(policy.FailureWindow)

	// The old failures aged out, so this one starts a fresh count.
	require.NoError(t, g.RecordFailure(ctx, "k"))
	require.NoError(t, g.CheckLocked(ctx, "k"))
}

func TestMemoryReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	policy := limiter.DefaultPolicy()
	g := limiter.NewMemory(policy, nil)

	for range policy.MaxFailures - 1 {
		require.NoError(t, g.RecordFailure(ctx, "k"))
	}
	require.NoError(t, g.Reset(ctx, "k"))
	require.NoError(t, g.RecordFailure(ctx, "k"))
	require.NoError(t, g.CheckLocked(ctx, "k"))
}

func newRedisGuard(t *testing.T, policy limiter.Policy) *limiter.Redis {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	addr, err := ctr.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	g := limiter.NewRedis(rdb, policy, "test")
	require.NoError(t, g.Ping(ctx))
	return g
}

func TestRedisGuard(t *testing.T) {
	// Short windows so TTL expiry can be observed in real time.
	policy := limiter.Policy{
		Cooldown:      time.Second,
		WindowLimit:   2,
		Window:        time.Minute,
		BlockWindows:  3,
		MaxFailures:   3,
		FailureWindow: time.Minute,
		LockDuration:  2 * time.Second,
	}
	g := newRedisGuard(t, policy)
	ctx := context.Background()

	t.Run("cooldown", func(t *testing.T) {
		require.NoError(t, g.AllowSend(ctx, "cooldown"))
		requireRetry(t, g.AllowSend(ctx, "cooldown"), limiter.ReasonCooldown)

		require.Eventually(t, func() bool {
			return g.AllowSend(ctx, "cooldown") == nil
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("window block", func(t *testing.T) {
		for range policy.WindowLimit {
			require.Eventually(t, func() bool {
				return g.AllowSend(ctx, "window") == nil
			}, 5*time.Second, 100*time.Millisecond)
		}

		var err error
		require.Eventually(t, func() bool {
			err = g.AllowSend(ctx, "window")
			var re *limiter.RetryError
			return errors.As(err, &re) && re.Reason == limiter.ReasonWindow
		}, 5*time.Second, 100*time.Millisecond)

		re := requireRetry(t, g.AllowSend(ctx, "window"), limiter.ReasonWindow)
		require.Greater(t, re.RetryAfter, 2*time.Minute)
	})

	t.Run("lockout and reset", func(t *testing.T) {
		for range policy.MaxFailures - 1 {
			require.NoError(t, g.RecordFailure(ctx, "lock"))
		}
		requireRetry(t, g.RecordFailure(ctx, "lock"), limiter.ReasonLocked)
		requireRetry(t, g.CheckLocked(ctx, "lock"), limiter.ReasonLocked)

		require.NoError(t, g.Reset(ctx, "lock"))
		require.NoError(t, g.CheckLocked(ctx, "lock"))
	})
}
