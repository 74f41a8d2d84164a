package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d1337/sandboxd/internal/apperror"
	"github.com/d1337/sandboxd/internal/handler"
	"github.com/d1337/sandboxd/internal/model"
	"github.com/d1337/sandboxd/internal/sandbox"
	"github.com/d1337/sandboxd/internal/service"
)

// mockRunner implements handler.ExecutionRunner without a sandbox behind it.
type mockRunner struct {
	capturedReq    sandbox.ExecutionRequest
	returnOutcome  *service.ExecutionOutcome
	returnErr      error
	historyRecords []model.ExecutionRecord
}

func (m *mockRunner) Execute(ctx context.Context, req sandbox.ExecutionRequest) (*service.ExecutionOutcome, error) {
	m.capturedReq = req
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return m.returnOutcome, nil
}

func (m *mockRunner) History(ctx context.Context, limit, offset int) ([]model.ExecutionRecord, error) {
	return m.historyRecords, nil
}

func (m *mockRunner) HistoryRecord(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	for _, rec := range m.historyRecords {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, apperror.NotFound("execution", id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHandleExecute(t *testing.T) {
	t.Run("successful execution", func(t *testing.T) {
		mock := &mockRunner{
			returnOutcome: &service.ExecutionOutcome{
				Result: &sandbox.ExecutionResult{
					Stdout:   "hello\n",
					ExitCode: 0,
					Duration: 150 * time.Millisecond,
				},
				PasteURL: "http://paste.test/p/abc",
			},
		}
		h := handler.NewExecuteHandler(mock, testLogger())

		body := `{"command":"echo hello","profile":"minimal","timeoutSeconds":10}`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "hello\n", res["stdout"])
		assert.Equal(t, float64(0), res["exitCode"])
		assert.Equal(t, float64(150), res["durationMs"])
		assert.Equal(t, "http://paste.test/p/abc", res["pasteUrl"])

		assert.Equal(t, "echo hello", mock.capturedReq.Command)
		assert.Equal(t, sandbox.ProfileMinimal, mock.capturedReq.Profile)
		assert.Equal(t, 10*time.Second, mock.capturedReq.Timeout)
	})

	t.Run("timed out execution still returns 200", func(t *testing.T) {
		mock := &mockRunner{
			returnOutcome: &service.ExecutionOutcome{
				Result: &sandbox.ExecutionResult{
					ExitCode: -1,
					TimedOut: true,
					Duration: 2 * time.Second,
				},
			},
		}
		h := handler.NewExecuteHandler(mock, testLogger())

		body := `{"command":"sleep 999","profile":"minimal"}`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, true, res["timedOut"])
		assert.Equal(t, float64(-1), res["exitCode"])
	})

	t.Run("invalid request body", func(t *testing.T) {
		h := handler.NewExecuteHandler(&mockRunner{}, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(`{"command":`))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("validation error from service", func(t *testing.T) {
		mock := &mockRunner{returnErr: apperror.ValidationFailed("command", "command is required")}
		h := handler.NewExecuteHandler(mock, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(`{"command":""}`))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("timeout out of range", func(t *testing.T) {
		h := handler.NewExecuteHandler(&mockRunner{}, testLogger())

		body := `{"command":"echo hi","timeoutSeconds":9999}`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleHistory(t *testing.T) {
	mock := &mockRunner{
		historyRecords: []model.ExecutionRecord{
			{ID: "a", Command: "echo 1", ExitCode: 0},
			{ID: "b", Command: "echo 2", ExitCode: 1},
		},
	}
	h := handler.NewExecuteHandler(mock, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/executions", nil)
	rr := httptest.NewRecorder()

	h.HandleHistory(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var records []model.ExecutionRecord
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&records))
	assert.Len(t, records, 2)
}

func TestHandleHistoryEmptyIsArray(t *testing.T) {
	h := handler.NewExecuteHandler(&mockRunner{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/executions", nil)
	rr := httptest.NewRecorder()

	h.HandleHistory(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestHandleHistoryRecord(t *testing.T) {
	mock := &mockRunner{
		historyRecords: []model.ExecutionRecord{{ID: "abc", Command: "uptime"}},
	}
	h := handler.NewExecuteHandler(mock, testLogger())

	r := chi.NewRouter()
	r.Get("/api/executions/{id}", h.HandleHistoryRecord)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/executions/abc", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/executions/nope", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
