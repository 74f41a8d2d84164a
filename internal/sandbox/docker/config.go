package docker

// Config holds the sandbox ceilings applied to every execution.
type Config struct {
	// MaxConcurrent bounds the number of in-flight executions.
	MaxConcurrent int
	// MemoryLimit is the per-container memory ceiling in bytes.
	MemoryLimit int64
	// CPULimit is the number of CPU cores a container may use.
	CPULimit float64
	// PidsLimit is the per-container process-count ceiling.
	PidsLimit int64
	// TmpSize and WorkdirSize are the tmpfs quotas for /tmp and the
	// working directory, as docker size strings.
	TmpSize     string
	WorkdirSize string
	// User is the fixed unprivileged uid:gid every command runs as.
	User string
	// WorkingDir is the default in-container working directory, mounted
	// as a quota-bounded tmpfs.
	WorkingDir string
}

// DefaultConfig returns the production ceilings.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 5,
		MemoryLimit:   256 * 1024 * 1024,
		CPULimit:      0.5,
		PidsLimit:     100,
		TmpSize:       "64m",
		WorkdirSize:   "32m",
		User:          "1000:1000",
		WorkingDir:    "/workspace",
	}
}
