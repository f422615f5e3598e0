package httpx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLimiterSetRefill(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	set := newLimiterSet(RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}, clock.now)

	for range 5 {
		ok, _ := set.take("k")
		require.True(t, ok)
	}

	ok, wait := set.take("k")
	require.False(t, ok)
	require.InDelta(t, 12*time.Second, wait, float64(time.Millisecond))

	clock.advance(13 * time.Second)
	ok, _ = set.take("k")
	require.True(t, ok)

	ok, _ = set.take("k")
	require.False(t, ok, "only one token refilled")
}

func TestLimiterSetEvictsIdleBuckets(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	set := newLimiterSet(RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, clock.now)

	set.take("a")
	set.take("b")
	require.Equal(t, 2, set.size())

	clock.advance(90 * time.Second)
	set.take("b")
	require.Equal(t, 2, set.size(), "not idle long enough")

	clock.advance(2 * time.Minute)
	set.take("c")
	require.Equal(t, 1, set.size())
}
