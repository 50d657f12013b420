package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

func newTestFeedback(t *testing.T, log *fakeFeedbackLog, store *fakeConfigStore) (*FeedbackUseCase, *ParameterStore) {
	t.Helper()
	params := newTestParams(t, store)
	learner := NewOnlineLearner(params, LearnerOptions{}, testLogger())
	return NewFeedbackUseCase(log, params, learner, nil, 0, testLogger()), params
}

func submitEvent(positive, web bool, confidence float64) domain.FeedbackEvent {
	ft := domain.FeedbackNegative
	if positive {
		ft = domain.FeedbackPositive
	}
	return domain.FeedbackEvent{
		ResponseID:         "resp-1",
		Query:              "q",
		FeedbackType:       ft,
		Confidence:         confidence,
		JudgeScore:         domain.JudgeScore{Relevance: 7, Factuality: 7, Completeness: 7},
		RetrievalMethod:    retrievalMethodHybrid,
		WebSearchTriggered: web,
	}
}

func TestRecordRejectsInvalidFeedback(t *testing.T) {
	fb, _ := newTestFeedback(t, &fakeFeedbackLog{}, &fakeConfigStore{})

	bad := submitEvent(true, false, 0.5)
	bad.ResponseID = ""
	if _, err := fb.Record(context.Background(), bad); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	bad = submitEvent(true, false, 1.5)
	if _, err := fb.Record(context.Background(), bad); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for confidence 1.5, got %v", err)
	}
}

func TestRecordAssignsIDAndAppends(t *testing.T) {
	log := &fakeFeedbackLog{}
	fb, _ := newTestFeedback(t, log, &fakeConfigStore{})

	outcome, err := fb.Record(context.Background(), submitEvent(true, false, 0.5))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if outcome.FeedbackID == "" {
		t.Fatal("no feedback id assigned")
	}
	if outcome.LearningTriggered {
		t.Fatal("learning triggered below batch boundary")
	}
	if len(log.events) != 1 {
		t.Fatalf("log has %d events, want 1", len(log.events))
	}
	stored := log.events[0]
	if stored.ID != outcome.FeedbackID || stored.CreatedAt.IsZero() {
		t.Fatalf("stored event incomplete: %+v", stored)
	}
}

func TestRecordTriggersLearningOnBatchBoundary(t *testing.T) {
	log := &fakeFeedbackLog{}
	fb, params := newTestFeedback(t, log, &fakeConfigStore{})
	beforeVersion := params.Snapshot().Version

	// Default batch size and min samples are both 5: the fifth append must
	// run a learning pass, the first four must not.
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		outcome, err := fb.Record(ctx, submitEvent(i%2 == 0, i%2 == 0, 0.5))
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
		if outcome.LearningTriggered {
			t.Fatalf("learning triggered at count %d", i+1)
		}
	}

	outcome, err := fb.Record(ctx, submitEvent(true, true, 0.5))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !outcome.LearningTriggered {
		t.Fatal("learning not triggered at batch boundary")
	}
	if outcome.ConfigVersion != beforeVersion+1 {
		t.Fatalf("config version = %d, want %d", outcome.ConfigVersion, beforeVersion+1)
	}
	if params.Snapshot().Version != beforeVersion+1 {
		t.Fatal("learning pass did not publish a new config version")
	}
}

func TestRecordSurfacesLearningPersistFailure(t *testing.T) {
	log := &fakeFeedbackLog{}
	store := &fakeConfigStore{}
	fb, params := newTestFeedback(t, log, store)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := fb.Record(ctx, submitEvent(i%2 == 0, i%2 == 0, 0.5)); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	store.failSaves = 2
	outcome, err := fb.Record(ctx, submitEvent(true, true, 0.5))
	if err == nil {
		t.Fatal("expected error when learning cannot persist")
	}
	if !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("error kind = %v, want ErrPersistence", err)
	}
	// The event is already durably appended: the outcome still identifies it.
	if outcome == nil || outcome.FeedbackID == "" {
		t.Fatalf("outcome = %+v, want stored feedback id alongside the error", outcome)
	}
	if !outcome.LearningTriggered {
		t.Fatal("learning pass was not attempted")
	}
	if len(log.events) != 5 {
		t.Fatalf("event was lost: log has %d events", len(log.events))
	}
	if params.Snapshot().Version != 1 {
		t.Fatalf("failed learning pass published version %d", params.Snapshot().Version)
	}
}

func TestStatsAggregatesPathsAndBuckets(t *testing.T) {
	log := &fakeFeedbackLog{}
	fb, _ := newTestFeedback(t, log, &fakeConfigStore{})

	ctx := context.Background()
	seed := []struct {
		positive   bool
		web        bool
		confidence float64
	}{
		{true, true, 0.9},
		{false, true, 0.8},
		{true, false, 0.5},
		{false, false, 0.2},
	}
	for _, s := range seed {
		if err := log.Append(ctx, feedbackEvent("x", s.positive, s.web, s.confidence,
			domain.JudgeScore{Relevance: 7, Factuality: 7, Completeness: 7})); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	stats, err := fb.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 4 || stats.Positive != 2 || stats.Negative != 2 {
		t.Fatalf("totals = %+v", stats)
	}
	if stats.PositiveRate != 0.5 {
		t.Fatalf("positive rate = %g, want 0.5", stats.PositiveRate)
	}
	if stats.WebSearch.Total != 2 || stats.WebSearch.Positive != 1 || stats.WebSearch.PositiveRate != 0.5 {
		t.Fatalf("web path stats = %+v", stats.WebSearch)
	}
	if stats.Internal.Total != 2 || stats.Internal.Positive != 1 {
		t.Fatalf("internal path stats = %+v", stats.Internal)
	}

	byBucket := map[string]domain.ConfidenceBucketStats{}
	for _, b := range stats.ConfidenceBuckets {
		byBucket[b.Bucket] = b
	}
	if byBucket["low"].Total != 1 || byBucket["medium"].Total != 1 || byBucket["high"].Total != 2 {
		t.Fatalf("bucket totals = %+v", stats.ConfidenceBuckets)
	}
	if byBucket["high"].PositiveRate != 0.5 {
		t.Fatalf("high bucket positive rate = %g, want 0.5", byBucket["high"].PositiveRate)
	}
}

func TestStatsEmptyLog(t *testing.T) {
	fb, _ := newTestFeedback(t, &fakeFeedbackLog{}, &fakeConfigStore{})

	stats, err := fb.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 0 || stats.PositiveRate != 0 {
		t.Fatalf("empty stats = %+v", stats)
	}
	if len(stats.ConfidenceBuckets) != 3 {
		t.Fatalf("buckets = %+v, want 3 entries", stats.ConfidenceBuckets)
	}
}
