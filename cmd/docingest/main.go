package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/caseflow-systems/docingest/internal/analysis"
	"github.com/caseflow-systems/docingest/internal/config"
	"github.com/caseflow-systems/docingest/internal/dispatch"
	"github.com/caseflow-systems/docingest/internal/dlq"
	"github.com/caseflow-systems/docingest/internal/handlers"
	"github.com/caseflow-systems/docingest/internal/logging"
	"github.com/caseflow-systems/docingest/internal/pipefy"
	"github.com/caseflow-systems/docingest/internal/registry"
	"github.com/caseflow-systems/docingest/internal/repository"
	"github.com/caseflow-systems/docingest/internal/server"
	"github.com/caseflow-systems/docingest/internal/service"
	"github.com/caseflow-systems/docingest/internal/storage"
)

var version = "dev"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("docingest"))
	logging.SetDefault(logger)

	slog.Info("Starting document ingestion service",
		slog.String("version", version),
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	connString := cfg.Database.ConnString()

	// Run database migrations
	m, err := migrate.New("file://migrations", connString)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Initialize repository
	repo, err := repository.NewPostgresRepository(context.Background(), connString)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer repo.Close()

	// Initialize dead letter queue
	var dlqWriter dlq.Writer
	var dlqReader handlers.DLQReader
	if cfg.DLQ.Enabled {
		switch cfg.DLQ.Backend {
		case "jetstream":
			jsDLQ, err := dlq.NewJetStreamQueue(context.Background(), cfg.DLQ.NatsURL)
			if err != nil {
				log.Fatalf("Failed to initialize JetStream DLQ: %v", err)
			}
			defer jsDLQ.Close()
			dlqWriter = jsDLQ
			dlqReader = jsDLQ
			log.Printf("Dead Letter Queue enabled (backend: jetstream, nats: %s)", cfg.DLQ.NatsURL)
		case "file":
			// File backend (single instance only, for development)
			fileDLQ, err := dlq.NewQueue(cfg.DLQ.Path)
			if err != nil {
				log.Fatalf("Failed to initialize file DLQ: %v", err)
			}
			dlqWriter = fileDLQ
			dlqReader = fileDLQ
			log.Printf("Dead Letter Queue enabled (backend: file, path: %s)", cfg.DLQ.Path)
		default:
			log.Fatalf("Unknown DLQ backend: %s (supported: jetstream, file)", cfg.DLQ.Backend)
		}
	} else {
		log.Println("Dead Letter Queue disabled")
	}

	// Initialize upstream clients
	pipefyClient := pipefy.New(pipefy.Config{
		URL:            cfg.Pipefy.URL,
		Token:          cfg.Pipefy.Token,
		Timeout:        cfg.Pipefy.Timeout,
		ReportField:    cfg.Pipefy.ReportField,
		ReportKeywords: cfg.Pipefy.ReportKeywords,
	}, logger)
	downloader := pipefy.NewDownloader(cfg.Pipefy.DownloadTimeout)

	storageClient := storage.New(storage.Config{
		URL:        cfg.Storage.URL,
		Bucket:     cfg.Storage.Bucket,
		ServiceKey: cfg.Storage.ServiceKey,
		Timeout:    cfg.Storage.Timeout,
	}, logger)

	analysisClient := analysis.NewClient(analysis.Config{
		URL:           cfg.Analysis.URL,
		ProbeTimeout:  cfg.Analysis.ProbeTimeout,
		InvokeTimeout: cfg.Analysis.InvokeTimeout,
	})
	invoker := analysis.NewInvoker(analysisClient, pipefyClient, cfg.Analysis.RetryWait, logger)

	// Initialize company registry lookups
	var companies handlers.CompanyLookup
	if cfg.Registry.Enabled {
		reg, err := registry.New(registry.Config{
			APIURL:   cfg.Registry.APIURL,
			Timeout:  cfg.Registry.Timeout,
			RedisURL: cfg.Registry.RedisURL,
			CacheTTL: cfg.Registry.CacheTTL,
		}, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize company registry: %v", err)
			log.Println("Continuing without registry lookups")
		} else {
			defer reg.Close()
			companies = reg
			log.Printf("Company registry lookups enabled (api: %s)", cfg.Registry.APIURL)
		}
	} else {
		log.Println("Company registry lookups disabled")
	}

	// Initialize background dispatcher
	dispatcher := dispatch.New(cfg.Dispatch.QueueSize, cfg.Dispatch.Workers, logger)
	log.Printf("Dispatcher started (queue: %d, workers: %d)", cfg.Dispatch.QueueSize, cfg.Dispatch.Workers)

	// Initialize ingestion service
	svc := service.NewIngestService(
		pipefyClient,
		downloader,
		storageClient,
		repo,
		invoker,
		pipefyClient,
		dispatcher,
		dlqWriter,
		service.Config{
			ChecklistConfigName: cfg.Checklist.ConfigName,
			ChecklistDefaultURL: cfg.Checklist.DefaultURL,
		},
		logger,
	)

	// Initialize handlers and router
	webhookHandler := handlers.NewWebhookHandler(svc, cfg.Server.MaxBodyBytes, cfg.Report.Table, logger)
	opsHandler := handlers.NewOpsHandler(version, companies, dlqReader, dispatcher)
	router := server.NewRouter(webhookHandler, opsHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Document ingestion service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Let queued transfers and analyses finish.
	dispatcher.Stop()
	log.Println("Shutdown complete")
}
