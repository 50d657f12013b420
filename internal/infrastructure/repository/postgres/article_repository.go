package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ArticleRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT,
	url TEXT,
	summary TEXT,
	content TEXT,
	sentiment TEXT,
	published_at TIMESTAMPTZ,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status);
CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO articles (
	id, title, author, url, summary, content, sentiment, published_at, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		article.ID, article.Title, article.Author, article.URL, article.Summary, article.Content,
		article.Sentiment, nullableTime(article.PublishedAt), string(article.Status), article.Error,
		article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, author, url, summary, content, sentiment, published_at, status, error_message, created_at, updated_at
FROM articles
WHERE id = $1
`, id)

	var article domain.Article
	var publishedAt sql.NullTime
	var status string

	err := row.Scan(
		&article.ID, &article.Title, &article.Author, &article.URL, &article.Summary, &article.Content,
		&article.Sentiment, &publishedAt, &status, &article.Error, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrArticleNotFound, "get article", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}

	if publishedAt.Valid {
		article.PublishedAt = publishedAt.Time
	}
	article.Status = domain.ArticleStatus(status)
	return &article, nil
}

func (r *ArticleRepository) UpdateStatus(ctx context.Context, id string, status domain.ArticleStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE articles
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update article status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update article status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrArticleNotFound, "update article status", fmt.Errorf("id=%s", id))
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
