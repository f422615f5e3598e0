package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/ridebook/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket refilled with RequestsPerWindow tokens
// every Window and holding at most Burst.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

func (c RateLimitConfig) limit() rate.Limit {
	if c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// Route profiles. Each reads RATELIMIT_{NAME}_REQUESTS, _WINDOW_SEC and
// _BURST at startup; the end-to-end suite raises them that way.
var (
	// StrictLimit guards the OTP endpoints against code guessing and SMS
	// pumping.
	StrictLimit = ParseRateLimitFromEnv("STRICT", RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5})

	// ModerateLimit covers token refresh, logout and profile writes.
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20})

	// LenientLimit covers profile reads and health checks.
	LenientLimit = ParseRateLimitFromEnv("LENIENT", RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100})

	// PublicLimit covers static media.
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000})
)

// ParseRateLimitFromEnv overlays RATELIMIT_{name}_* on def. Values that are
// not positive integers are ignored.
func ParseRateLimitFromEnv(name string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, ok := positiveEnv("RATELIMIT_" + name + "_REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnv("RATELIMIT_" + name + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv("RATELIMIT_" + name + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	return n, err == nil && n > 0
}

// KeyExtractor names the bucket a request draws from. An empty key exempts
// the request.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the client address, preferring the first
// X-Forwarded-For hop and then X-Real-IP.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// AccountIDKeyExtractor returns the authenticated account ID, or "" before
// authentication.
func AccountIDKeyExtractor(r *http.Request) string {
	id, _ := AccountIDFromContext(r.Context())
	return id
}

// CompositeKeyExtractor joins the non-empty results of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// maxPeekBytes bounds how much of a request body key extraction will read.
const maxPeekBytes = 64 << 10

// JSONFieldKeyExtractor keys on top-level string fields of a JSON body,
// with whitespace removed so "98765 43210" and "9876543210" share a bucket.
// The body is restored for the handler.
func JSONFieldKeyExtractor(fields ...string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
		r.Body = peekedBody{Reader: io.MultiReader(bytes.NewReader(raw), r.Body), Closer: r.Body}
		if err != nil {
			return ""
		}

		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			return ""
		}

		var parts []string
		for _, f := range fields {
			if s, ok := body[f].(string); ok {
				if s = strings.Join(strings.Fields(s), ""); s != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, "")
	}
}

// peekedBody replays the peeked prefix ahead of the unread remainder and
// closes the original body.
type peekedBody struct {
	io.Reader
	io.Closer
}

// limiterSet holds one bucket per key and drops buckets idle for longer
// than ttl.
type limiterSet struct {
	cfg RateLimitConfig
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(cfg RateLimitConfig, now func() time.Time) *limiterSet {
	// A bucket idle for a full window plus one has refilled, so dropping it
	// loses nothing.
	ttl := max(cfg.Window, time.Minute) + time.Minute
	return &limiterSet{cfg: cfg, ttl: ttl, now: now, buckets: make(map[string]*bucket), lastSweep: now()}
}

// take spends one token for key. When none is left it returns how long
// until the next one.
func (s *limiterSet) take(key string) (bool, time.Duration) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.ttl {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) >= s.ttl {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(s.cfg.limit(), s.cfg.Burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now

	if b.lim.AllowN(now, 1) {
		return true, 0
	}

	r := b.lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimitMiddleware refuses requests with 429 rate_limited once the
// bucket named by keyExtractor is empty.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	return rateLimitWith(newLimiterSet(config, time.Now), keyExtractor)
}

func rateLimitWith(set *limiterSet, keyExtractor KeyExtractor) Middleware {
	limitHeader := strconv.Itoa(set.cfg.RequestsPerWindow)
	windowHeader := set.cfg.Window.String()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)
			if key == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key for request, allowing", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := set.take(key)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := int(math.Ceil(wait.Seconds()))
			w.Header().Set("X-RateLimit-Limit", limitHeader)
			w.Header().Set("X-RateLimit-Window", windowHeader)

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", key,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)
			WriteRetryError(w, "rate_limited", "Too many requests. Please try again later.", retryAfter)
		})
	}
}

// RateLimitByIP keys on the client address.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByAccount keys on the authenticated account, falling back to the
// client address. Mount it after the authn middleware.
func RateLimitByAccount(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		AccountIDKeyExtractor,
		IPKeyExtractor,
	))
}

// RateLimitByIPAndPhone keys the OTP endpoints on client address plus the
// countryCode and phoneNumber of the JSON body.
func RateLimitByIPAndPhone(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		IPKeyExtractor,
		JSONFieldKeyExtractor("countryCode", "phoneNumber"),
	))
}

func itoa(n int) string { return strconv.Itoa(n) }
