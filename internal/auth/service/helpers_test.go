package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/limiter"
	"github.com/aussiebroadwan/ridebook/internal/auth/media"
	"github.com/aussiebroadwan/ridebook/internal/auth/metrics"
	"github.com/aussiebroadwan/ridebook/internal/auth/service"
	"github.com/aussiebroadwan/ridebook/internal/auth/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("access-secret-for-tests-0123456789abcdef")
	refreshSecret = []byte("refresh-secret-for-tests-0123456789abcdef")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Millisecond)}
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

// recordingNotifier remembers the last code per phone and can be told to fail.
type recordingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (n *recordingNotifier) Send(_ context.Context, identity domain.Identity, code string, _ domain.Purpose) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.codes == nil {
		n.codes = make(map[string]string)
	}
	n.codes[identity.E164()] = code
	return nil
}

func (n *recordingNotifier) Last(e164 string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[e164]
}

var errProviderDown = errors.New("provider down")

type harness struct {
	Store    *sqlite.Store
	Clock    *fakeClock
	Notifier *recordingNotifier
	Storage  *media.LocalStorage
	Metrics  *metrics.Metrics
	Tokens   *service.TokenService
	Auth     *service.AuthService
}

type harnessOption func(*service.TokenConfig, *service.AuthService)

func withBlacklist() harnessOption {
	return func(cfg *service.TokenConfig, _ *service.AuthService) { cfg.BlacklistEnabled = true }
}

func withProduction() harnessOption {
	return func(_ *service.TokenConfig, a *service.AuthService) { a.Production = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	return newHarnessAt(t, ":memory:", opts...)
}

// newHarnessAt backs the harness with dsn. A file database gives concurrent
// callers real separate connections.
func newHarnessAt(t *testing.T, dsn string, opts ...harnessOption) *harness {
	t.Helper()

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	storage, err := media.NewLocalStorage(t.TempDir(), "http://media.test/files")
	require.NoError(t, err)

	clk := newFakeClock()
	m := metrics.New()
	notifier := &recordingNotifier{}

	cfg := service.TokenConfig{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		Issuer:        "ridebook-test",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
	auth := &service.AuthService{
		Store:    st,
		OTPs:     &service.OTPService{Store: st, Now: clk.Now},
		Identity: &service.IdentityResolver{Store: st, Now: clk.Now},
		Guard:    limiter.NewMemory(limiter.DefaultPolicy(), clk.Now),
		Notifier: notifier,
		Media:    storage,
		Metrics:  m,
		Now:      clk.Now,
	}
	for _, opt := range opts {
		opt(&cfg, auth)
	}

	tokens, err := service.NewTokenService(st, m, cfg)
	require.NoError(t, err)
	auth.Tokens = tokens

	return &harness{
		Store:    st,
		Clock:    clk,
		Notifier: notifier,
		Storage:  storage,
		Metrics:  m,
		Tokens:   tokens,
		Auth:     auth,
	}
}

// register runs send + verify with the registration purpose.
func (h *harness) register(t *testing.T, v domain.Variant, phone string) service.VerifyResult {
	t.Helper()
	ctx := context.Background()

	sent, err := h.Auth.Send(ctx, service.SendRequest{Variant: v, PhoneNumber: phone, Purpose: "registration"})
	require.NoError(t, err)
	require.Len(t, sent.OTP, 6)

	res, err := h.Auth.Verify(ctx, service.VerifyRequest{
		Variant:     v,
		PhoneNumber: phone,
		Purpose:     "registration",
		OTP:         sent.OTP,
	})
	require.NoError(t, err)
	return res
}

// wrongCode returns a valid-looking code different from code.
func wrongCode(code string) string {
	if code == "111111" {
		return "222222"
	}
	return "111111"
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
