package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Guard shared by every replica. Keys:
//
//	<prefix>:send:<key>:last     cooldown marker, TTL = Cooldown
//	<prefix>:send:<key>:count    sends in the current window, TTL = Window
//	<prefix>:send:<key>:blocked  window block, TTL = BlockWindows * Window
//	<prefix>:fail:<key>          failures in the current window
//	<prefix>:lock:<key>          lockout marker, TTL = LockDuration
type Redis struct {
	rdb    redis.UniversalClient
	policy Policy
	prefix string
}

// NewRedis returns a Guard storing its counters under prefix.
func NewRedis(rdb redis.UniversalClient, policy Policy, prefix string) *Redis {
	if prefix == "" {
		prefix = "otp"
	}
	return &Redis{rdb: rdb, policy: policy, prefix: prefix}
}

func (r *Redis) key(parts ...string) string {
	k := r.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// ttl reads the remaining lifetime of key, falling back to def when the key
// has no expiry or vanished in between.
func (r *Redis) ttl(ctx context.Context, key string, def time.Duration) time.Duration {
	d, err := r.rdb.TTL(ctx, key).Result()
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (r *Redis) AllowSend(ctx context.Context, key string) error {
	blockKey := r.key("send", key, "blocked")
	lastKey := r.key("send", key, "last")
	countKey := r.key("send", key, "count")

	blocked, err := r.rdb.Exists(ctx, blockKey).Result()
	if err != nil {
		return err
	}
	if blocked > 0 {
		return &RetryError{Reason: ReasonWindow, RetryAfter: r.ttl(ctx, blockKey, r.policy.blockDuration())}
	}

	fresh, err := r.rdb.SetNX(ctx, lastKey, "1", r.policy.Cooldown).Result()
	if err != nil {
		return err
	}
	if !fresh {
		return &RetryError{Reason: ReasonCooldown, RetryAfter: r.ttl(ctx, lastKey, r.policy.Cooldown)}
	}

	var incr *redis.IntCmd
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, countKey)
		pipe.ExpireNX(ctx, countKey, r.policy.Window)
		return nil
	})
	if err != nil {
		return err
	}

	if incr.Val() > int64(r.policy.WindowLimit) {
		block := r.policy.blockDuration()
		if err := r.rdb.Set(ctx, blockKey, "1", block).Err(); err != nil {
			return err
		}
		return &RetryError{Reason: ReasonWindow, RetryAfter: block}
	}
	return nil
}

func (r *Redis) CheckLocked(ctx context.Context, key string) error {
	lockKey := r.key("lock", key)
	n, err := r.rdb.Exists(ctx, lockKey).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return &RetryError{Reason: ReasonLocked, RetryAfter: r.ttl(ctx, lockKey, r.policy.LockDuration)}
	}
	return nil
}

func (r *Redis) RecordFailure(ctx context.Context, key string) error {
	failKey := r.key("fail", key)

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, failKey)
		pipe.ExpireNX(ctx, failKey, r.policy.FailureWindow)
		return nil
	})
	if err != nil {
		return err
	}

	if incr.Val() < int64(r.policy.MaxFailures) {
		return nil
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key("lock", key), "1", r.policy.LockDuration)
		pipe.Del(ctx, failKey)
		return nil
	})
	if err != nil {
		return err
	}
	return &RetryError{Reason: ReasonLocked, RetryAfter: r.policy.LockDuration}
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	err := r.rdb.Del(ctx, r.key("fail", key), r.key("lock", key)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Ping reports whether Redis is reachable. Used by the readiness check.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
