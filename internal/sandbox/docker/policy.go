package docker

import (
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/d1337/sandboxd/internal/sandbox"
)

// ProfileSpec maps a profile to its image, network trust, and default
// deadline.
type ProfileSpec struct {
	Image          string
	NetworkTrusted bool
	DefaultTimeout time.Duration
}

// profiles is the closed profile table. Adding a profile means adding a row
// here; nothing else dispatches on profile names.
var profiles = map[sandbox.Profile]ProfileSpec{
	sandbox.ProfileMinimal: {
		Image:          "alpine:latest",
		NetworkTrusted: false,
		DefaultTimeout: 60 * time.Second,
	},
	sandbox.ProfileExtended: {
		Image:          "blackarchlinux/blackarch:latest",
		NetworkTrusted: true,
		DefaultTimeout: 120 * time.Second,
	},
}

// Profiles returns the spec for every known profile.
func Profiles() map[sandbox.Profile]ProfileSpec {
	out := make(map[sandbox.Profile]ProfileSpec, len(profiles))
	for p, spec := range profiles {
		out[p] = spec
	}
	return out
}

// LookupProfile resolves a profile to its spec.
func LookupProfile(p sandbox.Profile) (ProfileSpec, error) {
	spec, ok := profiles[p]
	if !ok {
		return ProfileSpec{}, fmt.Errorf("unknown profile %q", p)
	}
	return spec, nil
}

// isolationPolicy is the concrete restriction set applied to one execution.
type isolationPolicy struct {
	container *container.Config
	host      *container.HostConfig
}

// buildPolicy derives the isolation policy for a request. Every container
// gets a dropped capability set, a read-only root, non-executable tmpfs
// scratch space, resource ceilings, and a fixed non-root identity. The
// network namespace is omitted unless the profile is network-trusted and the
// caller asked for it.
func (c Config) buildPolicy(spec ProfileSpec, req sandbox.ExecutionRequest) isolationPolicy {
	workdir := req.WorkingDir
	if workdir == "" {
		workdir = c.WorkingDir
	}

	pids := c.PidsLimit
	host := &container.HostConfig{
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		ReadonlyRootfs: true,
		Tmpfs: map[string]string{
			"/tmp":  fmt.Sprintf("rw,noexec,nosuid,size=%s", c.TmpSize),
			workdir: fmt.Sprintf("rw,noexec,nosuid,size=%s", c.WorkdirSize),
		},
		Resources: container.Resources{
			Memory:    c.MemoryLimit,
			NanoCPUs:  int64(c.CPULimit * 1e9),
			PidsLimit: &pids,
		},
		AutoRemove: false,
	}
	if !spec.NetworkTrusted || !req.EnableNetwork {
		host.NetworkMode = "none"
	}

	cfg := &container.Config{
		Image:      spec.Image,
		Cmd:        []string{"/bin/sh", "-c", req.Command},
		User:       c.User,
		WorkingDir: workdir,
		Tty:        false,
	}

	return isolationPolicy{container: cfg, host: host}
}
