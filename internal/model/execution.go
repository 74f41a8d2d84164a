// Package model defines the data structures shared across the service.
package model

import "time"

// ExecutionRecord is one row of the execution history log. Records are an
// audit trail: writes are best-effort and never fail the execution itself.
type ExecutionRecord struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Profile    string    `json:"profile"`
	ExitCode   int       `json:"exitCode"`
	TimedOut   bool      `json:"timedOut"`
	DurationMS int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
