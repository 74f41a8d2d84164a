// Package service contains the business logic between the HTTP handlers and
// the sandbox, history, and paste backends.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/d1337/sandboxd/internal/apperror"
	"github.com/d1337/sandboxd/internal/model"
	"github.com/d1337/sandboxd/internal/repository"
	"github.com/d1337/sandboxd/internal/sandbox"
)

const (
	// MaxCommandLength caps command text well below anything a shell line
	// legitimately needs.
	MaxCommandLength = 4096
	// InlineOutputLimit is the largest output returned inline once a paste
	// link exists; the paste always holds the full capture.
	InlineOutputLimit = 3500

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// PasteCreator is the slice of the paste store the service needs.
type PasteCreator interface {
	CreatePaste(ctx context.Context, content, command string, exitCode int, executionTimeMS int64) (string, error)
}

// ExecutionOutcome bundles the sandbox result with its paste link.
type ExecutionOutcome struct {
	Result *sandbox.ExecutionResult
	// PasteURL is empty when the paste store is absent or failed; the
	// execution itself is unaffected.
	PasteURL string
	// OutputTruncated reports that the inline streams were cut at
	// InlineOutputLimit and the full output lives behind PasteURL.
	OutputTruncated bool
}

// ExecutionService validates requests, runs them in the sandbox, and records
// the outcome. The history write and paste creation are both best-effort:
// their failures are logged and never surface to the caller.
type ExecutionService struct {
	exec   sandbox.Executor
	repo   repository.ExecutionRepository
	pastes PasteCreator // nil when no paste store is configured
	logger *slog.Logger
}

// NewExecutionService wires the service. pastes may be nil.
func NewExecutionService(exec sandbox.Executor, repo repository.ExecutionRepository, pastes PasteCreator, logger *slog.Logger) *ExecutionService {
	return &ExecutionService{
		exec:   exec,
		repo:   repo,
		pastes: pastes,
		logger: logger,
	}
}

// Execute runs one validated command and returns its outcome. Operational
// failures (timeout, launch failure, non-zero exit) come back inside the
// outcome; an error return means the request itself was invalid.
func (s *ExecutionService) Execute(ctx context.Context, req sandbox.ExecutionRequest) (*ExecutionOutcome, error) {
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return nil, fmt.Errorf("validating request: %w", apperror.ValidationFailed("command", "command is required"))
	}
	if len(req.Command) > MaxCommandLength {
		return nil, fmt.Errorf("validating request: %w",
			apperror.ValidationFailed("command", fmt.Sprintf("command exceeds %d characters", MaxCommandLength)))
	}

	if req.Profile == "" {
		req.Profile = sandbox.ProfileMinimal
	}
	switch req.Profile {
	case sandbox.ProfileMinimal, sandbox.ProfileExtended:
	default:
		return nil, fmt.Errorf("validating request: %w",
			apperror.ValidationFailed("profile", fmt.Sprintf("unknown profile %q", req.Profile)))
	}

	res, err := s.exec.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("executing command: %w", err)
	}

	s.record(ctx, req, res)

	outcome := &ExecutionOutcome{Result: res}

	output := res.Stdout
	if output == "" {
		output = res.Stderr
	}
	if s.pastes != nil && output != "" {
		url, err := s.pastes.CreatePaste(ctx, output, req.Command, res.ExitCode, res.Duration.Milliseconds())
		if err != nil {
			s.logger.Warn("paste creation failed, returning result without link",
				slog.String("error", err.Error()))
		} else {
			outcome.PasteURL = url
		}
	}

	// Cut oversized inline streams only once the full output is parked
	// behind a paste link.
	if outcome.PasteURL != "" && (len(res.Stdout) > InlineOutputLimit || len(res.Stderr) > InlineOutputLimit) {
		trimmed := *res
		trimmed.Stdout = truncate(res.Stdout, InlineOutputLimit)
		trimmed.Stderr = truncate(res.Stderr, InlineOutputLimit)
		outcome.Result = &trimmed
		outcome.OutputTruncated = true
	}

	return outcome, nil
}

// record writes the history row. Failures are logged only: the audit trail
// must never cost the caller their result.
func (s *ExecutionService) record(ctx context.Context, req sandbox.ExecutionRequest, res *sandbox.ExecutionResult) {
	rec := &model.ExecutionRecord{
		Command:    req.Command,
		Profile:    string(req.Profile),
		ExitCode:   res.ExitCode,
		TimedOut:   res.TimedOut,
		DurationMS: res.Duration.Milliseconds(),
		Error:      res.Error,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Warn("failed to record execution history", slog.String("error", err.Error()))
	}
}

// History lists recent execution records, newest first.
func (s *ExecutionService) History(ctx context.Context, limit, offset int) ([]model.ExecutionRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.repo.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing execution history: %w", err)
	}
	return records, nil
}

// HistoryRecord fetches one execution record by ID.
func (s *ExecutionService) HistoryRecord(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching execution %s: %w", id, err)
	}
	return rec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
