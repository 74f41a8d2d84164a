package handler

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/d1337/sandboxd/internal/paste"
)

// PasteGetter is the slice of the paste store the handler uses.
type PasteGetter interface {
	Get(ctx context.Context, id string) (*paste.Paste, error)
}

// PasteHandler serves stored execution output as a terminal-styled HTML page
// or as raw text.
type PasteHandler struct {
	store  PasteGetter
	logger *slog.Logger
	tmpl   *template.Template
}

func NewPasteHandler(store PasteGetter, logger *slog.Logger) *PasteHandler {
	return &PasteHandler{
		store:  store,
		logger: logger,
		tmpl:   template.Must(template.New("terminal").Parse(terminalTemplate)),
	}
}

type terminalPage struct {
	Title           string
	Command         string
	Output          string
	Failed          bool
	ExitCode        int
	ExecutionTimeMS int64
}

// HandlePasteHTML processes GET /p/{id}.
func (h *PasteHandler) HandlePasteHTML(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Paste not found or expired", http.StatusNotFound)
		return
	}

	title := p.Command
	if len(title) > 50 {
		title = title[:50]
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, terminalPage{
		Title:           title,
		Command:         p.Command,
		Output:          p.Content,
		Failed:          p.ExitCode != 0,
		ExitCode:        p.ExitCode,
		ExecutionTimeMS: p.ExecutionTimeMS,
	}); err != nil {
		h.logger.Error("failed to render paste page",
			slog.String("id", id), slog.String("error", err.Error()))
	}
}

// HandlePasteRaw processes GET /p/{id}/raw.
func (h *PasteHandler) HandlePasteRaw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Paste not found or expired", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(p.Content))
}

// terminalTemplate renders a paste as a macOS-style terminal window.
// html/template escapes the command and output for us.
const terminalTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Sandbox Terminal</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #1a1a2e;
            min-height: 100vh;
            display: flex;
            justify-content: center;
            align-items: center;
            padding: 20px;
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
        }
        .terminal-window {
            background: #0d0d0d;
            border-radius: 10px;
            box-shadow: 0 20px 60px rgba(0, 0, 0, 0.5);
            width: 100%;
            max-width: 900px;
            overflow: hidden;
        }
        .terminal-header {
            background: linear-gradient(180deg, #3d3d3d 0%, #2d2d2d 100%);
            padding: 12px 16px;
            display: flex;
            align-items: center;
            gap: 8px;
        }
        .terminal-buttons { display: flex; gap: 8px; }
        .terminal-button { width: 12px; height: 12px; border-radius: 50%; }
        .btn-close { background: #ff5f56; }
        .btn-minimize { background: #ffbd2e; }
        .btn-maximize { background: #27ca40; }
        .terminal-title {
            flex: 1;
            text-align: center;
            color: #999;
            font-size: 13px;
            font-weight: 500;
        }
        .terminal-body {
            padding: 20px;
            min-height: 300px;
            max-height: 600px;
            overflow-y: auto;
        }
        .command-line {
            color: #27ca40;
            font-family: 'SF Mono', 'Monaco', 'Inconsolata', 'Fira Code', monospace;
            font-size: 14px;
            margin-bottom: 16px;
            display: flex;
            align-items: flex-start;
        }
        .prompt { color: #ff79c6; margin-right: 8px; white-space: nowrap; }
        .command { color: #f8f8f2; word-break: break-all; }
        .output {
            color: #f8f8f2;
            font-family: 'SF Mono', 'Monaco', 'Inconsolata', 'Fira Code', monospace;
            font-size: 13px;
            white-space: pre-wrap;
            word-break: break-word;
        }
        .output.error { color: #ff5f56; }
        .terminal-footer {
            background: #1a1a1a;
            padding: 10px 16px;
            display: flex;
            justify-content: space-between;
            align-items: center;
            font-size: 12px;
            color: #777;
        }
        .exit-code.success { color: #27ca40; }
        .exit-code.error { color: #ff5f56; }
        .meta-info span { margin-left: 12px; }
    </style>
</head>
<body>
    <div class="terminal-window">
        <div class="terminal-header">
            <div class="terminal-buttons">
                <div class="terminal-button btn-close"></div>
                <div class="terminal-button btn-minimize"></div>
                <div class="terminal-button btn-maximize"></div>
            </div>
            <div class="terminal-title">Sandbox Terminal - {{.Title}}</div>
            <div style="width: 52px;"></div>
        </div>
        <div class="terminal-body">
            <div class="command-line">
                <span class="prompt">sandbox:~$</span>
                <span class="command">{{.Command}}</span>
            </div>
            <div class="output{{if .Failed}} error{{end}}">{{.Output}}</div>
        </div>
        <div class="terminal-footer">
            <div class="exit-code {{if .Failed}}error{{else}}success{{end}}">Exit: {{.ExitCode}}</div>
            <div class="meta-info">
                <span>Execution: {{.ExecutionTimeMS}}ms</span>
                <span>Sandbox</span>
            </div>
        </div>
    </div>
</body>
</html>`
