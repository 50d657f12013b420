package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

// AdaptiveConfigRepository stores each published config as one immutable
// versioned JSONB row. Load returns the highest version; Save inserts a new
// row, so a reader can never observe a half-written update.
type AdaptiveConfigRepository struct {
	db *sql.DB
}

func NewAdaptiveConfigRepository(db *sql.DB) *AdaptiveConfigRepository {
	return &AdaptiveConfigRepository{db: db}
}

func (r *AdaptiveConfigRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082303)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS adaptive_config_versions (
	version BIGINT PRIMARY KEY,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AdaptiveConfigRepository) Load(ctx context.Context) (*domain.AdaptiveConfig, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT payload
FROM adaptive_config_versions
ORDER BY version DESC
LIMIT 1
`)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrConfigNotFound, "load adaptive config", err)
		}
		return nil, fmt.Errorf("scan adaptive config: %w", err)
	}

	var cfg domain.AdaptiveConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal adaptive config: %w", err)
	}
	return &cfg, nil
}

func (r *AdaptiveConfigRepository) Save(ctx context.Context, cfg *domain.AdaptiveConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal adaptive config: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO adaptive_config_versions (version, payload, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (version) DO UPDATE SET payload = EXCLUDED.payload
`, cfg.Version, payload, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert adaptive config version: %w", err)
	}
	return nil
}
