package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/adaptive-rag/internal/config"
	"github.com/kirillkom/adaptive-rag/internal/core/ports"
	"github.com/kirillkom/adaptive-rag/internal/core/usecase"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/corpus"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/rerank"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/adaptive-rag/internal/infrastructure/websearch"
	"github.com/kirillkom/adaptive-rag/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    ports.MessageQueue
	Articles ports.ArticleRepository

	IngestUC   ports.CorpusIngestor
	ProcessUC  ports.ArticleProcessor
	QueryUC    ports.QueryService
	FeedbackUC *usecase.FeedbackUseCase
	Params     *usecase.ParameterStore
	Tracker    *usecase.PerformanceTracker

	HTTPMetrics   *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	articleRepo := postgres.NewArticleRepository(db)
	if err := articleRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure article schema: %w", err)
	}
	feedbackRepo := postgres.NewFeedbackRepository(db)
	if err := feedbackRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure feedback schema: %w", err)
	}
	configRepo := postgres.NewAdaptiveConfigRepository(db)
	if err := configRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure adaptive config schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	judge := ollama.NewJudge(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	parser := corpus.NewParser()

	var reranker ports.Reranker
	if cfg.RerankerURL != "" {
		reranker = rerank.New(cfg.RerankerURL)
	}
	searcher := websearch.New(cfg.SearxNGURL)

	seed, err := config.LoadAdaptiveSeed(cfg.AdaptiveSeedPath)
	if err != nil {
		return nil, fmt.Errorf("load adaptive seed: %w", err)
	}
	params, err := usecase.NewParameterStore(ctx, configRepo, seed, logger)
	if err != nil {
		return nil, fmt.Errorf("init parameter store: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	workerMetrics := metrics.NewWorkerMetrics("worker")
	httpMetrics.ConfigVersion(params.Snapshot().Version)

	learner := usecase.NewOnlineLearner(params, usecase.LearnerOptions{}, logger)
	feedbackUC := usecase.NewFeedbackUseCase(feedbackRepo, params, learner, httpMetrics, cfg.AdaptiveLearnWindow, logger)
	tracker := usecase.NewPerformanceTracker(params)

	ingestUC := usecase.NewCorpusIngestUseCase(storage, parser, articleRepo, queue, logger)
	processUC := usecase.NewProcessArticleUseCase(articleRepo, chunker, embedder, vectorDB, workerMetrics, logger)
	queryUC := usecase.NewQueryUseCase(
		embedder,
		vectorDB,
		reranker,
		judge,
		searcher,
		generator,
		params,
		httpMetrics,
		cfg.RAGFusionRRFK,
		cfg.RAGWebResults,
		logger,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:    queue,
		Articles: articleRepo,

		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		QueryUC:    queryUC,
		FeedbackUC: feedbackUC,
		Params:     params,
		Tracker:    tracker,

		HTTPMetrics:   httpMetrics,
		WorkerMetrics: workerMetrics,

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
