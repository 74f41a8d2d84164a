// Command server runs the sandboxed command-execution service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/d1337/sandboxd/internal/sandbox/docker"
	"github.com/d1337/sandboxd/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/sandboxd.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	sandboxCfg := docker.DefaultConfig()
	if maxStr := os.Getenv("SANDBOX_MAX_CONCURRENT"); maxStr != "" {
		n, err := strconv.Atoi(maxStr)
		if err != nil || n < 1 {
			logger.Error("invalid SANDBOX_MAX_CONCURRENT value", slog.String("value", maxStr))
			os.Exit(1)
		}
		sandboxCfg.MaxConcurrent = n
	}

	exec, err := docker.New(sandboxCfg, logger)
	if err != nil {
		logger.Error("failed to create sandbox executor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer exec.Close()

	// Probe once at boot so operators see a warning immediately instead of
	// discovering launch failures per request. Prewarming is fire-and-forget.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	available := exec.RuntimeAvailable(probeCtx)
	probeCancel()
	if available {
		go exec.PrewarmImages(context.Background())
	} else {
		logger.Warn("container runtime not available — executions will fail until it is")
	}

	baseURL := os.Getenv("PASTE_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", port)
	}

	cfg := server.Config{
		Port:      port,
		DBPath:    dbPath,
		RedisAddr: os.Getenv("REDIS_ADDR"),
		BaseURL:   baseURL,
	}

	srv, err := server.New(cfg, logger, exec)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
