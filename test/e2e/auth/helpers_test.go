package auth_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/ridebook/pkg/authsdk"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, OTP flows, and assertions.
 */

const (
	testImageName = "ridebook-auth-test:latest"

	// adminPhone is provisioned through ADMIN_BOOTSTRAP_PHONES.
	adminPhone = "9000000000"
)

// phoneSeq hands out distinct numbers so tests sharing a container never
// collide on cooldowns or accounts.
var phoneSeq atomic.Int64

func nextPhone() string {
	return fmt.Sprintf("98%08d", phoneSeq.Add(1))
}

// TestMain builds the Docker image once before all tests and removes it
// after they complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// baseEnv is the service environment shared by every test container.
func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_DATABASE_FILE":     "/data/auth.db",
		"MEDIA_DIR":              "/data/media",
		"AUTH_ISSUER":            "ridebook-auth",
		"AUTH_MASTER_SECRET":     "e2e-master-secret-0123456789abcdef0123456789",
		"ADMIN_BOOTSTRAP_PHONES": adminPhone,
		"ENV":                    "test", // codes are echoed outside production
		"LOG_LEVEL":              "info",
		"LOG_FORMAT":             "json",
	}
}

// relaxedLimits raises the per-IP profiles so tests making many rapid
// requests only meet the per-phone OTP limits.
func relaxedLimits() map[string]string {
	return map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	}
}

type containerOptions struct {
	env     map[string]string
	network string
}

// setupAuthContainer starts the auth service with relaxed limits and
// returns its base URL.
func setupAuthContainer(t *testing.T) string {
	t.Helper()
	return startAuth(t, containerOptions{env: relaxedLimits()})
}

// setupAuthContainerWithDefaultRateLimits starts the auth service with the
// production rate limit profiles.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) string {
	t.Helper()
	return startAuth(t, containerOptions{})
}

func startAuth(t *testing.T, opts containerOptions) string {
	t.Helper()
	ctx := context.Background()

	env := baseEnv()
	maps.Copy(env, opts.env)

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}
	if opts.network != "" {
		req.Networks = []string{opts.network}
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

// startDependency runs image on nw under alias and waits for port to listen.
func startDependency(t *testing.T, nw, alias, image, port string) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          image,
			ExposedPorts:   []string{port},
			Networks:       []string{nw},
			NetworkAliases: map[string][]string{nw: {alias}},
			WaitingFor:     wait.ForListeningPort(nat.Port(port)).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate %s: %v", alias, err)
		}
	})
}

// newNetwork creates a docker network removed at the end of the test.
func newNetwork(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := nw.Remove(ctx); err != nil {
			t.Logf("failed to remove network: %v", err)
		}
	})
	return nw.Name
}

// sendCode requests a code and returns it. The service echoes codes outside
// production.
func sendCode(t *testing.T, client *authsdk.SDKClient, phone, purpose string) string {
	t.Helper()

	resp, err := client.SendOTP(t.Context(), authsdk.SendOTPRequest{PhoneNumber: phone, Purpose: purpose})
	require.NoError(t, err, "send %s OTP to %s", purpose, phone)
	require.True(t, resp.Success)
	require.Len(t, resp.OTP, 6, "code should be echoed in the test environment")
	return resp.OTP
}

// performLogin runs send + verify and returns a session.
func performLogin(t *testing.T, client *authsdk.SDKClient, phone, purpose string) *authsdk.Session {
	t.Helper()

	code := sendCode(t, client, phone, purpose)
	session, err := client.Login(t.Context(), authsdk.VerifyOTPRequest{
		PhoneNumber: phone,
		Purpose:     purpose,
		OTP:         code,
	})
	require.NoError(t, err, "login should succeed")
	require.NotNil(t, session)
	return session
}

// requireAPIError asserts err is an APIError with status and code.
func requireAPIError(t *testing.T, err error, status int, code string) *authsdk.APIError {
	t.Helper()
	require.Error(t, err)

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected an API error, got %v", err)
	require.Equal(t, status, apiErr.StatusCode, apiErr.Error())
	require.Equal(t, code, apiErr.Code, apiErr.Error())
	return apiErr
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
