package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

// FeedbackRepository is the append-only feedback log. Rows carry a BIGSERIAL
// sequence so reads always return events in arrival order; there is no
// UPDATE or DELETE path.
type FeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082302)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS feedback_events (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	response_id TEXT NOT NULL,
	query TEXT NOT NULL,
	feedback_type TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	judge_relevance INTEGER NOT NULL,
	judge_factuality INTEGER NOT NULL,
	judge_completeness INTEGER NOT NULL,
	retrieval_method TEXT NOT NULL,
	web_search_triggered BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_events_created_at ON feedback_events(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) Append(ctx context.Context, event domain.FeedbackEvent) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO feedback_events (
	id, response_id, query, feedback_type, confidence,
	judge_relevance, judge_factuality, judge_completeness,
	retrieval_method, web_search_triggered, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		event.ID, event.ResponseID, event.Query, string(event.FeedbackType), event.Confidence,
		event.JudgeScore.Relevance, event.JudgeScore.Factuality, event.JudgeScore.Completeness,
		event.RetrievalMethod, event.WebSearchTriggered, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback event: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) ReadAll(ctx context.Context) ([]domain.FeedbackEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, response_id, query, feedback_type, confidence,
	judge_relevance, judge_factuality, judge_completeness,
	retrieval_method, web_search_triggered, created_at
FROM feedback_events
ORDER BY seq ASC
`)
	if err != nil {
		return nil, fmt.Errorf("read feedback events: %w", err)
	}
	defer rows.Close()
	return scanFeedbackEvents(rows)
}

func (r *FeedbackRepository) ReadRecent(ctx context.Context, limit int) ([]domain.FeedbackEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, response_id, query, feedback_type, confidence,
	judge_relevance, judge_factuality, judge_completeness,
	retrieval_method, web_search_triggered, created_at
FROM (
	SELECT * FROM feedback_events ORDER BY seq DESC LIMIT $1
) recent
ORDER BY seq ASC
`, limit)
	if err != nil {
		return nil, fmt.Errorf("read recent feedback events: %w", err)
	}
	defer rows.Close()
	return scanFeedbackEvents(rows)
}

func (r *FeedbackRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count feedback events: %w", err)
	}
	return count, nil
}

func scanFeedbackEvents(rows *sql.Rows) ([]domain.FeedbackEvent, error) {
	out := make([]domain.FeedbackEvent, 0)
	for rows.Next() {
		var event domain.FeedbackEvent
		var feedbackType string
		err := rows.Scan(
			&event.ID, &event.ResponseID, &event.Query, &feedbackType, &event.Confidence,
			&event.JudgeScore.Relevance, &event.JudgeScore.Factuality, &event.JudgeScore.Completeness,
			&event.RetrievalMethod, &event.WebSearchTriggered, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feedback event: %w", err)
		}
		event.FeedbackType = domain.FeedbackType(feedbackType)
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback events: %w", err)
	}
	return out, nil
}
