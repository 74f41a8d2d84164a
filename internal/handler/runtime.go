package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// RuntimeProber reports whether the container runtime answers a liveness
// probe.
type RuntimeProber interface {
	RuntimeAvailable(ctx context.Context) bool
}

// RuntimeHandler exposes the runtime liveness probe so callers can avoid
// issuing doomed executions.
type RuntimeHandler struct {
	prober RuntimeProber
	logger *slog.Logger
}

func NewRuntimeHandler(prober RuntimeProber, logger *slog.Logger) *RuntimeHandler {
	return &RuntimeHandler{
		prober: prober,
		logger: logger,
	}
}

type runtimeResponse struct {
	Available bool `json:"available"`
}

// HandleRuntime processes GET /api/runtime.
func (h *RuntimeHandler) HandleRuntime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, runtimeResponse{
		Available: h.prober.RuntimeAvailable(r.Context()),
	})
}

// HandleHealth processes GET /health.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}
