// Package docker implements the sandbox.Executor interface on top of the
// Docker Engine API. Each execution gets a freshly created container with a
// locked-down isolation policy, supervised against a deadline, and removed
// on every exit path.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/xid"

	"github.com/d1337/sandboxd/internal/sandbox"
)

// namePrefix scopes container names so an out-of-band reaper can identify
// sandbox leftovers. The xid suffix keeps names globally unique.
const namePrefix = "d1337-sandbox-"

const cleanupTimeout = 10 * time.Second

// Executor runs commands in one-shot Docker containers.
type Executor struct {
	cli     *client.Client
	config  Config
	logger  *slog.Logger
	permits *Permits
}

var _ sandbox.Executor = (*Executor)(nil)

// New creates an Executor and initializes the engine client. The connection
// is not probed and no images are pulled here; see RuntimeAvailable and
// PrewarmImages.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	return &Executor{
		cli:     cli,
		config:  cfg,
		logger:  logger,
		permits: NewPermits(cfg.MaxConcurrent),
	}, nil
}

// Close releases the engine client.
func (e *Executor) Close() error {
	return e.cli.Close()
}

// Permits exposes the admission pool for instrumentation.
func (e *Executor) Permits() *Permits {
	return e.permits
}

// Execute runs one command under the isolation policy for its profile.
//
// The returned error is reserved for programmer mistakes (unknown profile)
// and caller cancellation while waiting for a permit. Launch failures,
// timeouts, and non-zero exits all come back as a populated ExecutionResult
// with a nil error.
func (e *Executor) Execute(ctx context.Context, req sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	spec, err := LookupProfile(req.Profile)
	if err != nil {
		return nil, err
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = spec.DefaultTimeout
	}

	// Admission: block until fewer than MaxConcurrent executions are in
	// flight. The permit is held for the whole container lifetime.
	if err := e.permits.Acquire(ctx); err != nil {
		return nil, err
	}
	defer e.permits.Release()

	start := time.Now()
	name := namePrefix + xid.New().String()
	policy := e.config.buildPolicy(spec, req)

	resp, err := e.cli.ContainerCreate(ctx, policy.container, policy.host, nil, nil, name)
	if err != nil {
		e.logger.Error("container create failed",
			slog.String("name", name), slog.String("error", err.Error()))
		return launchFailure(start, err), nil
	}

	// Always remove the container we created, whatever happens below.
	// Force-remove also terminates a still-running container, so the
	// timeout path cannot leak a process even if the explicit kill failed.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := e.cli.ContainerRemove(cleanupCtx, resp.ID, container.RemoveOptions{Force: true}); err != nil {
			e.logger.Error("failed to remove container",
				slog.String("name", name), slog.String("error", err.Error()))
		}
	}()

	if err := e.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		e.logger.Error("container start failed",
			slog.String("name", name), slog.String("error", err.Error()))
		return launchFailure(start, err), nil
	}

	// Supervise: race natural completion against the deadline. Exactly one
	// branch fires; the losing wait is canceled with waitCtx.
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statusCh, errCh := e.cli.ContainerWait(waitCtx, resp.ID, container.WaitConditionNotRunning)

	select {
	case status := <-statusCh:
		stdout, stderr := e.collectOutput(ctx, resp.ID)
		return &sandbox.ExecutionResult{
			Stdout:   stdout,
			Stderr:   stderr,
			ExitCode: int(status.StatusCode),
			Duration: time.Since(start),
		}, nil

	case waitErr := <-errCh:
		if errors.Is(waitErr, context.DeadlineExceeded) || waitCtx.Err() != nil {
			e.kill(name)
			// Salvage whatever output the command produced before the
			// kill; an empty capture is acceptable.
			stdout, stderr := e.collectOutput(context.Background(), resp.ID)
			return &sandbox.ExecutionResult{
				Stdout:   stdout,
				Stderr:   stderr,
				ExitCode: -1,
				Duration: time.Since(start),
				TimedOut: true,
			}, nil
		}
		// The engine-side wait itself failed mid-flight.
		e.logger.Error("container wait failed",
			slog.String("name", name), slog.String("error", waitErr.Error()))
		return &sandbox.ExecutionResult{
			ExitCode: -1,
			Duration: time.Since(start),
			Error:    waitErr.Error(),
		}, nil
	}
}

// kill forcibly terminates a container by name. Kill targets the container,
// not a bare pid, so it reaches everything inside the namespace. Failures
// are logged only: the caller still gets its timed-out result, and the
// deferred force-remove is a second chance at reclamation.
func (e *Executor) kill(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := e.cli.ContainerKill(ctx, name, "KILL"); err != nil {
		e.logger.Error("failed to kill container",
			slog.String("name", name), slog.String("error", err.Error()))
	}
}

// collectOutput fetches and demultiplexes the container's log streams. The
// capture is lossy by construction: invalid UTF-8 is replaced, and a failed
// fetch yields empty streams rather than an error.
func (e *Executor) collectOutput(ctx context.Context, id string) (stdout, stderr string) {
	logCtx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	rc, err := e.cli.ContainerLogs(logCtx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		e.logger.Warn("failed to fetch container logs",
			slog.String("id", id), slog.String("error", err.Error()))
		return "", ""
	}
	defer rc.Close()

	var outBuf, errBuf bytes.Buffer
	// stdcopy demultiplexes the engine's combined stream back into
	// stdout and stderr.
	_, _ = stdcopy.StdCopy(&outBuf, &errBuf, rc)

	return lossyString(outBuf.Bytes()), lossyString(errBuf.Bytes())
}

// lossyString decodes bytes as UTF-8, replacing invalid sequences. Command
// output is arbitrary bytes and must never fail to decode.
func lossyString(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

func launchFailure(start time.Time, err error) *sandbox.ExecutionResult {
	return &sandbox.ExecutionResult{
		ExitCode: -1,
		Duration: time.Since(start),
		Error:    err.Error(),
	}
}
