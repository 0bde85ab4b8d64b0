package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docsearch/internal/config"
	"docsearch/internal/core/ports"
	"docsearch/internal/core/usecase"
	"docsearch/internal/infrastructure/chunking"
	"docsearch/internal/infrastructure/embedding/httpapi"
	"docsearch/internal/infrastructure/extractor"
	"docsearch/internal/infrastructure/extractor/docx"
	"docsearch/internal/infrastructure/extractor/pdf"
	"docsearch/internal/infrastructure/extractor/plaintext"
	"docsearch/internal/infrastructure/extractor/xlsx"
	"docsearch/internal/infrastructure/queue/nats"
	"docsearch/internal/infrastructure/repository/postgres"
	"docsearch/internal/infrastructure/resilience"
	"docsearch/internal/infrastructure/storage/localfs"
)

// App wires the full dependency graph once; the binaries pick the
// pieces they serve.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    *nats.Queue
	Storage  *localfs.Storage
	Embedder ports.Embedder

	Ingestor  ports.DocumentIngestor
	Searcher  ports.DocumentSearcher
	Documents *usecase.DocumentService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db, cfg.EmbeddingDim)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath, cfg.SigningSecret)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := httpapi.New(cfg.EmbedderURL, cfg.EmbedderModel, cfg.EmbeddingDim, httpapi.Options{
		RequestsPerSecond: cfg.EmbedderRPS,
		Burst:             cfg.EmbedderBurst,
		Executor:          executor,
	})

	extractors := extractor.NewRegistry(
		plaintext.New(),
		pdf.New(),
		docx.New(),
		xlsx.New(),
	)
	chunker := chunking.NewSplitter(cfg.ChunkSize)
	urlTTL := time.Duration(cfg.FileURLTTLSeconds) * time.Second

	ingestor := usecase.NewIngestService(repo, storage, extractors, chunker, embedder, queue, logger, usecase.IngestOptions{
		Parallelism:   cfg.IngestParallelism,
		EmbedDocument: cfg.EmbedDocuments,
	})
	searcher := usecase.NewSearchService(repo, embedder, storage, usecase.NewPreviewRenderer(cfg.PreviewLength), logger, usecase.SearchOptions{
		SimilarityFloor: cfg.SimilarityFloor,
		DefaultLimit:    cfg.SearchLimit,
		FileURLTTL:      urlTTL,
	})
	documents := usecase.NewDocumentService(repo, storage, logger, urlTTL)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Queue:     queue,
		Storage:   storage,
		Embedder:  embedder,
		Ingestor:  ingestor,
		Searcher:  searcher,
		Documents: documents,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
