package ports

import (
	"context"
	"io"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

// QueryService is the inbound contract for adaptive RAG question answering.
type QueryService interface {
	Answer(ctx context.Context, question string, limit int, filter domain.SearchFilter) (*domain.QueryResult, error)
}

// CorpusIngestor is the inbound contract for corpus upload orchestration.
type CorpusIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.CorpusUploadReport, error)
}

// ArticleProcessor is the inbound contract for asynchronous article indexing.
type ArticleProcessor interface {
	ProcessByID(ctx context.Context, articleID string) error
}

// ArticleReader is the inbound read model for article metadata/state.
type ArticleReader interface {
	GetByID(ctx context.Context, id string) (*domain.Article, error)
}
