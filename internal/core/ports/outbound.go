package ports

import (
	"context"
	"io"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

// ArticleRepository persists and reads corpus article state.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	UpdateStatus(ctx context.Context, id string, status domain.ArticleStatus, errMessage string) error
}

// FeedbackLog is the append-only feedback event store. Events are appended
// in arrival order and never mutated or deleted.
type FeedbackLog interface {
	Append(ctx context.Context, event domain.FeedbackEvent) error
	ReadAll(ctx context.Context) ([]domain.FeedbackEvent, error)
	ReadRecent(ctx context.Context, limit int) ([]domain.FeedbackEvent, error)
	Count(ctx context.Context) (int, error)
}

// AdaptiveConfigStore durably persists adaptive config versions. Save must be
// atomic: readers never observe a partially written version.
type AdaptiveConfigStore interface {
	Load(ctx context.Context) (*domain.AdaptiveConfig, error)
	Save(ctx context.Context, cfg *domain.AdaptiveConfig) error
}

// ObjectStorage stores raw uploaded corpus files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes article indexing events.
type MessageQueue interface {
	PublishArticleIngested(ctx context.Context, articleID string) error
	SubscribeArticleIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// CorpusParser turns an uploaded corpus file into articles.
type CorpusParser interface {
	Parse(filename string, r io.Reader) ([]domain.Article, error)
}

// Chunker splits article text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes article chunks and serves the two independent ranked
// candidate lists the fusion engine merges.
type VectorStore interface {
	IndexArticle(ctx context.Context, article *domain.Article, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedArticle, error)
	SearchLexical(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.RetrievedArticle, error)
}

// Reranker scores query/passage pairs with an external cross-encoder.
// Scores are raw real values, not normalized.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Judge evaluates retrieval adequacy and answer quality on 0-10 scales.
type Judge interface {
	JudgeRetrieval(ctx context.Context, query string, contexts []string) (domain.RetrievalJudgement, error)
	JudgeAnswer(ctx context.Context, query, answer string) (domain.JudgeScore, error)
}

// WebSearcher fetches external search results when internal evidence is
// judged inadequate.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error)
}

// AnswerGenerator creates the final user-facing answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, articles []domain.RetrievedArticle, web []domain.WebResult) (string, error)
}
