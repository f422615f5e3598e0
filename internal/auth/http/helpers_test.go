package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/ridebook/internal/auth/http"
	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/limiter"
	"github.com/aussiebroadwan/ridebook/internal/auth/media"
	"github.com/aussiebroadwan/ridebook/internal/auth/metrics"
	"github.com/aussiebroadwan/ridebook/internal/auth/notify"
	"github.com/aussiebroadwan/ridebook/internal/auth/service"
	"github.com/aussiebroadwan/ridebook/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/ridebook/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-for-tests-0123456789abcdef"
	testRefreshSecret = "refresh-secret-for-tests-0123456789abcdef"
	testIssuer        = "ridebook-test"
)

type testServer struct {
	Router  *authhttp.Router
	Auth    *service.AuthService
	Store   *sqlite.Store
	Storage *media.LocalStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	storage, err := media.NewLocalStorage(t.TempDir(), "http://media.test/files")
	require.NoError(t, err)

	m := metrics.New()
	tokens, err := service.NewTokenService(st, m, service.TokenConfig{
		AccessSecret:     []byte(testAccessSecret),
		RefreshSecret:    []byte(testRefreshSecret),
		Issuer:           testIssuer,
		BlacklistEnabled: true,
	})
	require.NoError(t, err)

	auth := &service.AuthService{
		Store:    st,
		OTPs:     &service.OTPService{Store: st},
		Identity: &service.IdentityResolver{Store: st},
		Tokens:   tokens,
		Guard:    limiter.NewMemory(limiter.DefaultPolicy(), time.Now),
		Notifier: notify.LogNotifier{},
		Media:    storage,
		Metrics:  m,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := authhttp.NewRouter("test", st, logger)
	router.AuthService = auth
	router.TokenService = tokens
	router.Metrics = m
	router.Files = storage.Handler()
	router.ApplyRoutes()

	return &testServer{Router: router, Auth: auth, Store: st, Storage: storage}
}

// do sends a JSON request through the router. body may be nil.
func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, path, token, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

// login runs send + verify over HTTP and returns the issued tokens.
func (s *testServer) login(t *testing.T, segment, phone, purpose string) authsdk.TokenData {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/v1/"+segment+"/otp/send", "",
		authsdk.SendOTPRequest{PhoneNumber: phone, Purpose: purpose})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := decode[authsdk.SendOTPResponse](t, rec)
	require.Len(t, sent.OTP, 6)

	rec = s.do(t, http.MethodPost, "/v1/"+segment+"/otp/verify", "",
		authsdk.VerifyOTPRequest{PhoneNumber: phone, Purpose: purpose, OTP: sent.OTP})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authsdk.TokenResponse](t, rec).Data
}

// provisionAdmin creates an admin account out of band and signs it in.
func (s *testServer) provisionAdmin(t *testing.T, phone string, role domain.Role) authsdk.TokenData {
	t.Helper()
	_, _, err := s.Auth.Identity.Provision(context.Background(), domain.VariantAdmin, domain.NewIdentity("", phone), role)
	require.NoError(t, err)
	return s.login(t, "admin", phone, "login")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// errorBody is the failure envelope as seen on the wire.
type errorBody struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retryAfter"`
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	require.False(t, body.Success)
	require.Equal(t, code, body.Code)
	return body
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}
