// Package sandbox defines the contract for running untrusted shell commands
// in an isolated, resource-bounded environment.
package sandbox

import (
	"context"
	"time"
)

// Profile names an execution environment: a toolset image plus a network
// policy. The set is closed — see docker.ProfileSpec for the table.
type Profile string

const (
	// ProfileMinimal is a small toolset with no network access.
	ProfileMinimal Profile = "minimal"
	// ProfileExtended is a larger toolset with network access allowed.
	ProfileExtended Profile = "extended"
)

// ExecutionRequest describes one command to run. It is consumed once and
// never mutated by the executor.
type ExecutionRequest struct {
	// Command is the shell command text, run via `/bin/sh -c`.
	Command string `json:"command"`
	// Profile selects the execution environment.
	Profile Profile `json:"profile"`
	// EnableNetwork requests network access. It is honored only when the
	// profile is network-trusted; otherwise the container gets no network
	// namespace at all.
	EnableNetwork bool `json:"enableNetwork"`
	// Timeout bounds wall-clock execution time. Zero means the profile's
	// default.
	Timeout time.Duration `json:"timeout"`
	// WorkingDir is the in-container working directory. Empty means the
	// executor's default scratch directory.
	WorkingDir string `json:"workingDir"`
}

// ExecutionResult is the outcome of one execution. Exactly one result is
// produced per accepted request — timeouts and launch failures are results,
// not errors.
type ExecutionResult struct {
	// Stdout and Stderr are lossily decoded: invalid bytes are replaced,
	// never rejected.
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	// ExitCode is the command's exit status, or -1 for timeout, launch
	// failure, or any abnormal end.
	ExitCode int `json:"exitCode"`
	// Duration is wall-clock time from launch attempt to result.
	Duration time.Duration `json:"duration"`
	// TimedOut reports that the deadline expired and the container was
	// forcibly terminated.
	TimedOut bool `json:"timedOut"`
	// Error is non-empty only when the execution could not be started
	// (runtime unreachable, bad policy). Never set for timeouts or
	// non-zero exits.
	Error string `json:"error,omitempty"`
}

// Executor runs commands in an isolated environment.
//
// Execute returns an error only for programmer mistakes such as an unknown
// profile. Operational failures — timeout, non-zero exit, unreachable
// runtime — are reported inside the ExecutionResult.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
