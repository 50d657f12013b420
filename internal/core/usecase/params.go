package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
	"github.com/kirillkom/adaptive-rag/internal/core/ports"
)

// ParameterStore holds the live adaptive configuration. Readers take a
// lock-free immutable snapshot; the learner is the sole writer and publishes
// a new complete version via atomic pointer swap only after the version has
// been durably persisted.
type ParameterStore struct {
	store  ports.AdaptiveConfigStore
	logger *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[domain.AdaptiveConfig]
}

// NewParameterStore loads the persisted config, or seeds and persists the
// provided initial config (falling back to defaults) when none exists yet.
func NewParameterStore(
	ctx context.Context,
	store ports.AdaptiveConfigStore,
	seed *domain.AdaptiveConfig,
	logger *slog.Logger,
) (*ParameterStore, error) {
	p := &ParameterStore{store: store, logger: logger}

	cfg, err := store.Load(ctx)
	switch {
	case err == nil:
		cfg.Clamp()
	case domain.IsKind(err, domain.ErrConfigNotFound):
		if seed != nil {
			cfg = seed.Clone()
		} else {
			cfg = domain.DefaultAdaptiveConfig()
		}
		cfg.Clamp()
		cfg.UpdatedAt = time.Now().UTC()
		if saveErr := p.saveWithRetry(ctx, cfg); saveErr != nil {
			return nil, domain.WrapError(domain.ErrPersistence, "seed adaptive config", saveErr)
		}
		logger.Info("adaptive_config_seeded", "version", cfg.Version,
			"web_search_threshold", cfg.WebSearchThreshold)
	default:
		return nil, fmt.Errorf("load adaptive config: %w", err)
	}

	p.current.Store(cfg)
	return p, nil
}

// Snapshot returns the current published config. The returned value is
// shared between readers and must not be mutated; writers clone it first.
func (p *ParameterStore) Snapshot() *domain.AdaptiveConfig {
	return p.current.Load()
}

// Commit clamps, versions, persists and publishes a new config. The swap is
// all-or-nothing: on persistence failure (after one retry) the previous
// config stays authoritative and a persistence error is returned.
func (p *ParameterStore) Commit(ctx context.Context, next *domain.AdaptiveConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next.Clamp()
	next.Version = p.current.Load().Version + 1
	next.UpdatedAt = time.Now().UTC()

	if err := p.saveWithRetry(ctx, next); err != nil {
		return domain.WrapError(domain.ErrPersistence, "persist adaptive config", err)
	}

	p.current.Store(next)
	p.logger.Info("adaptive_config_published", "version", next.Version,
		"web_search_threshold", next.WebSearchThreshold,
		"judge_floor", next.JudgeFloor)
	return nil
}

func (p *ParameterStore) saveWithRetry(ctx context.Context, cfg *domain.AdaptiveConfig) error {
	err := p.store.Save(ctx, cfg)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	p.logger.Warn("adaptive_config_save_retry", "version", cfg.Version, "error", err)
	return p.store.Save(ctx, cfg)
}
