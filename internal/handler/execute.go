package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/d1337/sandboxd/internal/apperror"
	"github.com/d1337/sandboxd/internal/model"
	"github.com/d1337/sandboxd/internal/sandbox"
	"github.com/d1337/sandboxd/internal/service"
)

// MaxTimeoutSeconds caps caller-supplied deadlines.
const MaxTimeoutSeconds = 600

// ExecutionRunner is the slice of the execution service the handler uses.
type ExecutionRunner interface {
	Execute(ctx context.Context, req sandbox.ExecutionRequest) (*service.ExecutionOutcome, error)
	History(ctx context.Context, limit, offset int) ([]model.ExecutionRecord, error)
	HistoryRecord(ctx context.Context, id string) (*model.ExecutionRecord, error)
}

// ExecuteHandler serves the command execution and history endpoints.
type ExecuteHandler struct {
	svc    ExecutionRunner
	logger *slog.Logger
}

func NewExecuteHandler(svc ExecutionRunner, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		svc:    svc,
		logger: logger,
	}
}

type executeRequest struct {
	Command        string `json:"command"`
	Profile        string `json:"profile"`
	EnableNetwork  bool   `json:"enableNetwork"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	WorkingDir     string `json:"workingDir"`
}

type executeResponse struct {
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExitCode        int    `json:"exitCode"`
	DurationMS      int64  `json:"durationMs"`
	TimedOut        bool   `json:"timedOut"`
	Error           string `json:"error,omitempty"`
	PasteURL        string `json:"pasteUrl,omitempty"`
	OutputTruncated bool   `json:"outputTruncated,omitempty"`
}

// HandleExecute processes POST /api/execute.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid request body"))
		return
	}

	if req.TimeoutSeconds < 0 || req.TimeoutSeconds > MaxTimeoutSeconds {
		writeError(w, apperror.ValidationFailed("timeoutSeconds",
			"timeoutSeconds must be between 0 and "+strconv.Itoa(MaxTimeoutSeconds)))
		return
	}

	h.logger.Info("executing sandbox command", slog.String("profile", req.Profile))

	outcome, err := h.svc.Execute(r.Context(), sandbox.ExecutionRequest{
		Command:       req.Command,
		Profile:       sandbox.Profile(req.Profile),
		EnableNetwork: req.EnableNetwork,
		Timeout:       time.Duration(req.TimeoutSeconds) * time.Second,
		WorkingDir:    req.WorkingDir,
	})
	if err != nil {
		h.logger.Warn("execution rejected", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	res := outcome.Result
	writeJSON(w, http.StatusOK, executeResponse{
		Stdout:          res.Stdout,
		Stderr:          res.Stderr,
		ExitCode:        res.ExitCode,
		DurationMS:      res.Duration.Milliseconds(),
		TimedOut:        res.TimedOut,
		Error:           res.Error,
		PasteURL:        outcome.PasteURL,
		OutputTruncated: outcome.OutputTruncated,
	})
}

// HandleHistory processes GET /api/executions.
func (h *ExecuteHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.svc.History(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list execution history", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if records == nil {
		records = []model.ExecutionRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// HandleHistoryRecord processes GET /api/executions/{id}.
func (h *ExecuteHandler) HandleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.svc.HistoryRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
