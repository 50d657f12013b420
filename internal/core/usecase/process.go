package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
	"github.com/kirillkom/adaptive-rag/internal/core/ports"
)

// ProcessMetrics receives counters from the indexing worker path.
type ProcessMetrics interface {
	ArticleProcessed(status string)
}

// ProcessArticleUseCase indexes one pending article: chunk, embed, write to
// the vector store, and record the resulting status on the article row.
type ProcessArticleUseCase struct {
	articles ports.ArticleRepository
	chunker  ports.Chunker
	embedder ports.Embedder
	vectors  ports.VectorStore
	metrics  ProcessMetrics
	logger   *slog.Logger
}

func NewProcessArticleUseCase(
	articles ports.ArticleRepository,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	metrics ProcessMetrics,
	logger *slog.Logger,
) *ProcessArticleUseCase {
	return &ProcessArticleUseCase{
		articles: articles,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		metrics:  metrics,
		logger:   logger,
	}
}

func (u *ProcessArticleUseCase) ProcessByID(ctx context.Context, articleID string) error {
	article, err := u.articles.GetByID(ctx, articleID)
	if err != nil {
		return fmt.Errorf("load article %s: %w", articleID, err)
	}
	// Re-delivered events for finished articles are acknowledged silently.
	if article.Status == domain.StatusReady {
		return nil
	}

	if err := u.articles.UpdateStatus(ctx, articleID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark article %s processing: %w", articleID, err)
	}

	if err := u.index(ctx, article); err != nil {
		u.logger.Error("article_index_failed", "article_id", articleID, "error", err)
		if u.metrics != nil {
			u.metrics.ArticleProcessed(string(domain.StatusFailed))
		}
		if statusErr := u.articles.UpdateStatus(ctx, articleID, domain.StatusFailed, err.Error()); statusErr != nil {
			return fmt.Errorf("mark article %s failed: %w", articleID, statusErr)
		}
		return err
	}

	if err := u.articles.UpdateStatus(ctx, articleID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("mark article %s ready: %w", articleID, err)
	}
	if u.metrics != nil {
		u.metrics.ArticleProcessed(string(domain.StatusReady))
	}
	u.logger.Info("article_indexed", "article_id", articleID)
	return nil
}

func (u *ProcessArticleUseCase) index(ctx context.Context, article *domain.Article) error {
	text := indexableText(article)
	if text == "" {
		return domain.WrapError(domain.ErrInvalidInput, "index article",
			fmt.Errorf("article %s has no text", article.ID))
	}

	chunks := u.chunker.Split(text)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "index article",
			fmt.Errorf("article %s produced no chunks", article.ID))
	}

	vectors, err := u.embedder.Embed(ctx, chunks)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := u.vectors.IndexArticle(ctx, article, chunks, vectors); err != nil {
		return domain.WrapError(domain.ErrTemporary, "index vectors", err)
	}
	return nil
}

func indexableText(article *domain.Article) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{article.Title, article.Summary, article.Content} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
