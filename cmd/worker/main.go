package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"orderflow/internal/activities"
	"orderflow/internal/host"
	"orderflow/internal/httpx"
	"orderflow/internal/pkg/telemetry"
	"orderflow/internal/sagalog/sqlite"
	"orderflow/internal/store"
	"orderflow/internal/workflow"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "order-worker"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	st, closeStore, err := openStore(ctx)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	logPath := getEnv("SAGA_LOG_PATH", "orderflow.db")
	sagaLog, err := sqlite.Open(logPath)
	if err != nil {
		slog.Error("failed to open saga log", "path", logPath, "error", err)
		os.Exit(1)
	}
	defer sagaLog.Close()

	h := host.New(host.Config{
		MaxAttempts: getEnvInt("HOST_MAX_ATTEMPTS", 3),
		RetryDelay:  getEnvDuration("HOST_RETRY_DELAY", time.Second),
	})
	activities.New(st).RegisterAll(h)

	runner := httpx.NewRunner(h, sagaLog, workflow.Config{
		StepTimeout: getEnvDuration("STEP_TIMEOUT", 30*time.Second),
		StepDelay:   getEnvDuration("STEP_DELAY", time.Second),
	})
	handler := httpx.NewHandler(runner, st, sagaLog)
	router := httpx.NewRouter(handler)

	addr := ":" + getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("order worker running", "addr", addr, "saga_log", logPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
}

// openStore selects the order/inventory store from the STORE env var.
// "redis" talks to REDIS_ADDR; anything else uses the in-process store.
func openStore(ctx context.Context) (store.Store, func(), error) {
	if getEnv("STORE", "memory") != "redis" {
		return store.NewMemoryStore(), func() {}, nil
	}

	rs := store.NewRedisStore(getEnv("REDIS_ADDR", "localhost:6379"))
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		rs.Close()
		return nil, nil, err
	}
	return rs, func() { rs.Close() }, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("invalid integer env var, using fallback", "key", key, "value", value, "fallback", fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration env var, using fallback", "key", key, "value", value, "fallback", fallback)
	}
	return fallback
}
