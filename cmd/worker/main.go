package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docsearch/internal/bootstrap"
	"docsearch/internal/config"
	"docsearch/internal/core/domain"
	"docsearch/internal/observability/logging"
	"docsearch/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		log.Printf("worker metrics on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentEvents(ctx, func(handlerCtx context.Context, event domain.DocumentEvent) error {
		start := time.Now()
		workerMetrics.ObserveEvent("worker", string(event.Status), start.Sub(event.OccurredAt))

		switch event.Status {
		case domain.StatusCompleted:
			logger.Info("document indexed",
				"document_id", event.DocumentID,
				"owner_id", event.OwnerID,
				"filename", event.Filename,
			)
		case domain.StatusFailed:
			logger.Warn("document ingestion failed",
				"document_id", event.DocumentID,
				"owner_id", event.OwnerID,
				"filename", event.Filename,
				"error", event.Error,
			)
		default:
			logger.Info("document event",
				"document_id", event.DocumentID,
				"status", string(event.Status),
			)
		}

		workerMetrics.FinishEvent("worker", time.Since(start), nil)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
