package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quireapp/quire/internal"
	"github.com/quireapp/quire/internal/cover"
	"github.com/quireapp/quire/internal/handler"
	"github.com/quireapp/quire/internal/jobs"
	"github.com/quireapp/quire/internal/metrics"
	"github.com/quireapp/quire/internal/middleware"
	"github.com/quireapp/quire/internal/repository"
	"github.com/quireapp/quire/internal/service"
	"github.com/quireapp/quire/internal/storage"
	"github.com/quireapp/quire/internal/worker"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize storage
	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Cover pipeline configuration shared by the service and the worker
	coverCfg := cover.Config{
		StorageBaseURL:    cfg.CoverStorageBaseURL,
		PlaceholderPath:   cfg.CoverPlaceholderPath,
		HighResMinEdge:    cfg.CoverHighResMinEdge,
		DisplayMinWidth:   cfg.CoverDisplayMinW,
		DisplayMinHeight:  cfg.CoverDisplayMinH,
		GraySaturationMax: cfg.CoverGraySaturation,
		GrayCoverageMin:   cfg.CoverGrayCoverage,
		SampleStride:      cfg.CoverSampleStride,
	}

	// Initialize services
	imgProc := service.NewImagingProcessor()
	bookService := service.NewBookService(repo, store, imgProc, coverCfg, logger)

	// Initialize background worker
	var jobWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout

		jobWorker, err = worker.New(db, repo, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}

		jobWorker.Register(jobs.NewAnalyzeCoverHandler(repo, store, imgProc, coverCfg, logger))

		jobWorker.Start(ctx)
		defer jobWorker.Stop()
	} else {
		logger.Info("Background worker disabled")
	}

	// Initialize handlers
	bookHandler := handler.NewBookHandler(bookService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Locally stored covers, only when using local storage
	if cfg.StorageProvider == "local" {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics endpoint, basic-auth protected when credentials are set
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Book routes
	bookHandler.RegisterRoutes(mux)

	// Outer middleware stack
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	chain := middleware.Stack(loggingMw.Handler, metrics.Middleware)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: chain(mux),
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the configured storage backend.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case "s3":
		return storage.NewS3Storage(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			BucketName:      cfg.S3BucketName,
			PublicURL:       cfg.S3PublicURL,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
