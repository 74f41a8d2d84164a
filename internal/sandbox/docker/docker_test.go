package docker_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d1337/sandboxd/internal/sandbox"
	"github.com/d1337/sandboxd/internal/sandbox/docker"
)

// newTestExecutor skips the test unless a local Docker engine is reachable.
func newTestExecutor(t *testing.T) *docker.Executor {
	t.Helper()

	if os.Getenv("CI") != "" {
		t.Skip("skipping docker test in CI environment")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	exec, err := docker.New(docker.DefaultConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !exec.RuntimeAvailable(ctx) {
		t.Skip("docker engine not available")
	}

	return exec
}

func TestExecute(t *testing.T) {
	exec := newTestExecutor(t)

	t.Run("successful command", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), sandbox.ExecutionRequest{
			Command: "echo hello",
			Profile: sandbox.ProfileMinimal,
			Timeout: 10 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Contains(t, res.Stdout, "hello")
		assert.False(t, res.TimedOut)
		assert.Empty(t, res.Error)
		assert.Greater(t, res.Duration, time.Duration(0))
	})

	t.Run("non-zero exit is a normal outcome", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), sandbox.ExecutionRequest{
			Command: "ls /does-not-exist",
			Profile: sandbox.ProfileMinimal,
			Timeout: 10 * time.Second,
		})
		require.NoError(t, err)
		assert.NotEqual(t, 0, res.ExitCode)
		assert.NotEmpty(t, res.Stderr)
		assert.False(t, res.TimedOut)
		assert.Empty(t, res.Error)
	})

	t.Run("timeout kills the container", func(t *testing.T) {
		start := time.Now()
		res, err := exec.Execute(context.Background(), sandbox.ExecutionRequest{
			Command: "sleep 30",
			Profile: sandbox.ProfileMinimal,
			Timeout: 2 * time.Second,
		})
		require.NoError(t, err)
		assert.True(t, res.TimedOut)
		assert.Equal(t, -1, res.ExitCode)
		// timeout plus a bounded grace for kill and cleanup
		assert.Less(t, time.Since(start), 15*time.Second)
	})

	t.Run("partial output survives a timeout", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), sandbox.ExecutionRequest{
			Command: "echo early; sleep 30",
			Profile: sandbox.ProfileMinimal,
			Timeout: 2 * time.Second,
		})
		require.NoError(t, err)
		assert.True(t, res.TimedOut)
		assert.Contains(t, res.Stdout, "early")
	})

	t.Run("network denied under minimal profile", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), sandbox.ExecutionRequest{
			Command:       "wget -T 3 -q -O - http://example.com",
			Profile:       sandbox.ProfileMinimal,
			EnableNetwork: true,
			Timeout:       15 * time.Second,
		})
		require.NoError(t, err)
		assert.NotEqual(t, 0, res.ExitCode)
	})

	t.Run("workdir quota is enforced", func(t *testing.T) {
		res, err := exec.Execute(context.Background(), sandbox.ExecutionRequest{
			Command: "dd if=/dev/zero of=big bs=1M count=64",
			Profile: sandbox.ProfileMinimal,
			Timeout: 30 * time.Second,
		})
		require.NoError(t, err)
		assert.NotEqual(t, 0, res.ExitCode)
	})

	t.Run("unknown profile is a programmer error", func(t *testing.T) {
		_, err := exec.Execute(context.Background(), sandbox.ExecutionRequest{
			Command: "echo hi",
			Profile: sandbox.Profile("bogus"),
		})
		assert.Error(t, err)
	})
}

func TestExecutePermitPairing(t *testing.T) {
	exec := newTestExecutor(t)

	paths := []sandbox.ExecutionRequest{
		{Command: "true", Profile: sandbox.ProfileMinimal, Timeout: 10 * time.Second},
		{Command: "sleep 30", Profile: sandbox.ProfileMinimal, Timeout: 1 * time.Second},
		{Command: "echo hi", Profile: sandbox.Profile("bogus")},
	}

	for _, req := range paths {
		_, _ = exec.Execute(context.Background(), req)
		// Success, timeout, and launch/validation failure must all leave
		// the pool fully released.
		assert.Equal(t, 0, exec.Permits().InFlight())
	}
}
