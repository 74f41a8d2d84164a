package docker

import (
	"context"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/image"
)

// RuntimeAvailable reports whether the container engine answers a liveness
// ping. Strictly advisory: callers use it to warn early instead of issuing
// doomed executions, never to gate correctness.
func (e *Executor) RuntimeAvailable(ctx context.Context) bool {
	_, err := e.cli.Ping(ctx)
	return err == nil
}

// PrewarmImages best-effort pulls every profile image so first executions
// skip the lazy-pull latency. Pull failures are logged and otherwise
// ignored — the engine pulls lazily on first use as the fallback.
func (e *Executor) PrewarmImages(ctx context.Context) {
	for profile, spec := range profiles {
		e.logger.Info("pulling sandbox image",
			slog.String("profile", string(profile)), slog.String("image", spec.Image))

		reader, err := e.cli.ImagePull(ctx, spec.Image, image.PullOptions{})
		if err != nil {
			e.logger.Warn("image pull failed, will pull lazily on first use",
				slog.String("image", spec.Image), slog.String("error", err.Error()))
			continue
		}
		// Drain to block until the pull completes.
		_, _ = io.Copy(io.Discard, reader)
		reader.Close()

		e.logger.Info("sandbox image ready", slog.String("image", spec.Image))
	}
}
