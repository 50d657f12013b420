package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
	"github.com/kirillkom/adaptive-rag/internal/core/ports"
)

// maxCorpusFileSize bounds an uploaded corpus file (64 MiB).
const maxCorpusFileSize = 64 << 20

// CorpusIngestUseCase accepts an uploaded corpus file, archives the raw
// bytes, parses it into articles, stores them in pending state and publishes
// one indexing event per article for the worker to pick up.
type CorpusIngestUseCase struct {
	storage  ports.ObjectStorage
	parser   ports.CorpusParser
	articles ports.ArticleRepository
	queue    ports.MessageQueue
	logger   *slog.Logger
}

func NewCorpusIngestUseCase(
	storage ports.ObjectStorage,
	parser ports.CorpusParser,
	articles ports.ArticleRepository,
	queue ports.MessageQueue,
	logger *slog.Logger,
) *CorpusIngestUseCase {
	return &CorpusIngestUseCase{
		storage:  storage,
		parser:   parser,
		articles: articles,
		queue:    queue,
		logger:   logger,
	}
}

func (u *CorpusIngestUseCase) Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.CorpusUploadReport, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxCorpusFileSize+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "read corpus upload", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read corpus upload", fmt.Errorf("empty file %q", filename))
	}
	if len(data) > maxCorpusFileSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read corpus upload",
			fmt.Errorf("file %q exceeds %d bytes", filename, maxCorpusFileSize))
	}

	key := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	if err := u.storage.Save(ctx, key, bytes.NewReader(data)); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "archive corpus file", err)
	}

	articles, err := u.parser.Parse(filename, bytes.NewReader(data))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse corpus file", err)
	}
	if len(articles) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse corpus file",
			fmt.Errorf("no articles found in %q", filename))
	}

	report := &domain.CorpusUploadReport{StorageKey: key, Total: len(articles)}
	now := time.Now().UTC()
	for i := range articles {
		article := &articles[i]
		article.ID = uuid.NewString()
		article.Status = domain.StatusPending
		article.CreatedAt = now
		article.UpdatedAt = now

		if err := u.articles.Create(ctx, article); err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, "store article", err)
		}
		report.ArticleIDs = append(report.ArticleIDs, article.ID)

		if err := u.queue.PublishArticleIngested(ctx, article.ID); err != nil {
			// The article row exists; the worker can be re-driven manually.
			u.logger.Error("article_publish_failed", "article_id", article.ID, "error", err)
		}
	}

	u.logger.Info("corpus_uploaded",
		"filename", filename,
		"mime_type", mimeType,
		"storage_key", key,
		"articles", report.Total)
	return report, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}
