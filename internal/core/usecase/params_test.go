package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

func TestParameterStoreSeedsDefaultsWhenEmpty(t *testing.T) {
	store := &fakeConfigStore{}
	params := newTestParams(t, store)

	cfg := params.Snapshot()
	if cfg.WebSearchThreshold != 0.7 {
		t.Fatalf("seeded threshold = %g, want 0.7", cfg.WebSearchThreshold)
	}
	if store.saved == nil {
		t.Fatal("seed config was not persisted")
	}
}

func TestParameterStoreLoadsPersistedConfig(t *testing.T) {
	persisted := domain.DefaultAdaptiveConfig()
	persisted.Version = 7
	persisted.WebSearchThreshold = 0.55
	store := &fakeConfigStore{saved: persisted}

	params := newTestParams(t, store)
	cfg := params.Snapshot()
	if cfg.Version != 7 || cfg.WebSearchThreshold != 0.55 {
		t.Fatalf("loaded config = version %d threshold %g", cfg.Version, cfg.WebSearchThreshold)
	}
}

func TestParameterStoreCommitBumpsVersionAndPublishes(t *testing.T) {
	store := &fakeConfigStore{}
	params := newTestParams(t, store)

	next := params.Snapshot().Clone()
	next.WebSearchThreshold = 0.6
	if err := params.Commit(context.Background(), next); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	cfg := params.Snapshot()
	if cfg.Version != 2 {
		t.Fatalf("version = %d, want 2", cfg.Version)
	}
	if cfg.WebSearchThreshold != 0.6 {
		t.Fatalf("threshold = %g, want 0.6", cfg.WebSearchThreshold)
	}
	if store.saved.Version != 2 {
		t.Fatalf("persisted version = %d, want 2", store.saved.Version)
	}
}

func TestParameterStoreCommitClampsOutOfRangeValues(t *testing.T) {
	store := &fakeConfigStore{}
	params := newTestParams(t, store)

	next := params.Snapshot().Clone()
	next.WebSearchThreshold = 1.4
	next.JudgeFloor = 42
	if err := params.Commit(context.Background(), next); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	cfg := params.Snapshot()
	if cfg.WebSearchThreshold != domain.MaxWebSearchThreshold {
		t.Fatalf("threshold = %g, want clamped to %g", cfg.WebSearchThreshold, domain.MaxWebSearchThreshold)
	}
	if cfg.JudgeFloor != domain.MaxJudgeFloor {
		t.Fatalf("judge floor = %d, want clamped to %d", cfg.JudgeFloor, domain.MaxJudgeFloor)
	}
}

func TestParameterStoreCommitRetriesSaveOnce(t *testing.T) {
	store := &fakeConfigStore{}
	params := newTestParams(t, store)
	callsAfterSeed := store.saveCalls

	store.failSaves = 1
	next := params.Snapshot().Clone()
	next.WebSearchThreshold = 0.65
	if err := params.Commit(context.Background(), next); err != nil {
		t.Fatalf("Commit with one transient failure: %v", err)
	}
	if got := store.saveCalls - callsAfterSeed; got != 2 {
		t.Fatalf("save calls = %d, want 2 (initial + one retry)", got)
	}
	if params.Snapshot().WebSearchThreshold != 0.65 {
		t.Fatal("retried commit was not published")
	}
}

func TestParameterStoreCommitKeepsOldConfigOnPersistFailure(t *testing.T) {
	store := &fakeConfigStore{}
	params := newTestParams(t, store)

	store.failSaves = 2
	next := params.Snapshot().Clone()
	next.WebSearchThreshold = 0.5
	err := params.Commit(context.Background(), next)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("error kind = %v, want ErrPersistence", err)
	}

	cfg := params.Snapshot()
	if cfg.Version != 1 || cfg.WebSearchThreshold != 0.7 {
		t.Fatalf("old config not preserved: version %d threshold %g", cfg.Version, cfg.WebSearchThreshold)
	}
}
