// Command rosterd serves the employee roster API over HTTP. Storage and
// blob backends are selected through ROSTERCORE_* environment variables.
package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rostercore/internal/adapters/roster"
	"rostercore/internal/blob"
	"rostercore/internal/core"
)

const shutdownGrace = 10 * time.Second

// zapLogger adapts a zap sugared logger to the service logger interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// zapAuditRecorder writes service audit entries to the structured log.
type zapAuditRecorder struct {
	sugar *zap.SugaredLogger
}

func (r zapAuditRecorder) Record(_ context.Context, entry core.AuditEntry) {
	r.sugar.Infow("audit",
		"operation", entry.Operation,
		"entity_id", entry.EntityID,
		"status", string(entry.Status),
		"violations", entry.Violations,
		"duration", entry.Duration,
		"error", entry.Error,
	)
}

// exportAuditLogger forwards export worker audit entries to the log.
type exportAuditLogger struct {
	sugar *zap.SugaredLogger
}

func (l exportAuditLogger) Record(_ context.Context, entry roster.AuditEntry) {
	l.sugar.Infow("export audit",
		"job_id", entry.JobID,
		"action", entry.Action,
		"actor", entry.Actor,
		"status", string(entry.Status),
		"note", entry.Note,
	)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rosterd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config := zap.NewProductionConfig()
	if os.Getenv("ROSTERCORE_LOG_LEVEL") == "debug" {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	blobs, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := core.NewPrometheusMetricsRecorder(registry)

	service := core.NewService(store,
		core.WithLogger(zapLogger{sugar: sugar}),
		core.WithMetricsRecorder(metrics),
		core.WithAuditRecorder(zapAuditRecorder{sugar: sugar}),
	)

	worker := roster.NewExportWorker(service, blobs, exportAuditLogger{sugar: sugar})
	worker.Start()

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", roster.NewHandler(service, roster.WithExportScheduler(worker)))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := os.Getenv("ROSTERCORE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("listening", "addr", addr, "blob_driver", string(blobs.Driver()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	sugar.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stop export worker: %w", err)
	}
	return nil
}
