package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
	"github.com/kirillkom/adaptive-rag/internal/core/ports"
)

const (
	lowConfidenceBoundary  = 0.3
	highConfidenceBoundary = 0.7
)

// FeedbackOutcome is returned to the caller who submitted feedback: the
// stored event ID plus whatever the (possibly triggered) learning pass did.
type FeedbackOutcome struct {
	FeedbackID        string       `json:"feedback_id"`
	LearningTriggered bool         `json:"learning_triggered"`
	Adjustments       []Adjustment `json:"adjustments,omitempty"`
	ConfigVersion     int64        `json:"config_version"`
}

// FeedbackMetrics receives counters from the feedback path. Implemented by
// the observability layer; a nil-safe no-op is used in tests.
type FeedbackMetrics interface {
	FeedbackRecorded(feedbackType string)
	AdjustmentApplied(parameter string)
	ConfigVersion(version int64)
}

// FeedbackUseCase appends validated feedback events and drives the online
// learner when a batch boundary is reached. A single mutex serializes the
// append-count-learn sequence so concurrent submissions cannot race the
// trigger predicate.
type FeedbackUseCase struct {
	log     ports.FeedbackLog
	params  *ParameterStore
	learner *OnlineLearner
	metrics FeedbackMetrics
	logger  *slog.Logger

	// learnWindow bounds how much history one learning pass reads; 0 means
	// the full log.
	learnWindow int

	mu sync.Mutex
}

func NewFeedbackUseCase(
	log ports.FeedbackLog,
	params *ParameterStore,
	learner *OnlineLearner,
	metrics FeedbackMetrics,
	learnWindow int,
	logger *slog.Logger,
) *FeedbackUseCase {
	return &FeedbackUseCase{
		log:         log,
		params:      params,
		learner:     learner,
		metrics:     metrics,
		learnWindow: learnWindow,
		logger:      logger,
	}
}

// Record validates and appends one feedback event, then runs a learning pass
// if the new log size lands on a batch boundary at or past the minimum
// sample count. When the learning pass cannot persist its result the error
// is surfaced alongside the outcome: the event is already durably appended
// and the outcome carries its ID plus the computed adjustments, so the
// caller knows the submission landed even though the config did not move.
func (f *FeedbackUseCase) Record(ctx context.Context, event domain.FeedbackEvent) (*FeedbackOutcome, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now().UTC()

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.log.Append(ctx, event); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "append feedback", err)
	}
	if f.metrics != nil {
		f.metrics.FeedbackRecorded(string(event.FeedbackType))
	}

	count, err := f.log.Count(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "count feedback", err)
	}

	cfg := f.params.Snapshot()
	outcome := &FeedbackOutcome{
		FeedbackID:    event.ID,
		ConfigVersion: cfg.Version,
	}
	if !learningDue(count, cfg.BatchSize, cfg.MinSamples) {
		return outcome, nil
	}

	history, err := f.history(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "read feedback history", err)
	}

	outcome.LearningTriggered = true
	adjustments, version, learnErr := f.learner.Learn(ctx, history)
	outcome.Adjustments = adjustments
	outcome.ConfigVersion = version
	if learnErr != nil {
		f.logger.Error("learning_pass_failed", "error", learnErr, "feedback_count", count)
		return outcome, domain.WrapError(domain.ErrPersistence, "learning pass", learnErr)
	}

	if f.metrics != nil {
		for _, adj := range adjustments {
			f.metrics.AdjustmentApplied(adj.Parameter)
		}
		f.metrics.ConfigVersion(version)
	}
	f.logger.Info("learning_pass_completed",
		"feedback_count", count,
		"adjustments", len(adjustments),
		"config_version", version)
	return outcome, nil
}

func (f *FeedbackUseCase) history(ctx context.Context) ([]domain.FeedbackEvent, error) {
	if f.learnWindow > 0 {
		return f.log.ReadRecent(ctx, f.learnWindow)
	}
	return f.log.ReadAll(ctx)
}

// Stats aggregates the full feedback log into path and confidence-bucket
// breakdowns for the analytics endpoint.
func (f *FeedbackUseCase) Stats(ctx context.Context) (*domain.FeedbackStats, error) {
	events, err := f.log.ReadAll(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "read feedback log", err)
	}

	stats := &domain.FeedbackStats{Total: len(events)}
	buckets := map[string]*domain.ConfidenceBucketStats{
		"low":    {Bucket: "low"},
		"medium": {Bucket: "medium"},
		"high":   {Bucket: "high"},
	}

	for _, ev := range events {
		positive := ev.Positive()
		if positive {
			stats.Positive++
		} else {
			stats.Negative++
		}

		if ev.WebSearchTriggered {
			stats.WebSearch.Total++
			if positive {
				stats.WebSearch.Positive++
			}
		} else {
			stats.Internal.Total++
			if positive {
				stats.Internal.Positive++
			}
		}

		bucket := buckets[confidenceBucket(ev.Confidence)]
		bucket.Total++
		if positive {
			bucket.Positive++
		}
	}

	if stats.Total > 0 {
		stats.PositiveRate = float64(stats.Positive) / float64(stats.Total)
	}
	if stats.WebSearch.Total > 0 {
		stats.WebSearch.PositiveRate = float64(stats.WebSearch.Positive) / float64(stats.WebSearch.Total)
	}
	if stats.Internal.Total > 0 {
		stats.Internal.PositiveRate = float64(stats.Internal.Positive) / float64(stats.Internal.Total)
	}
	for _, name := range []string{"low", "medium", "high"} {
		b := buckets[name]
		if b.Total > 0 {
			b.PositiveRate = float64(b.Positive) / float64(b.Total)
		}
		stats.ConfidenceBuckets = append(stats.ConfidenceBuckets, *b)
	}
	return stats, nil
}

func confidenceBucket(confidence float64) string {
	switch {
	case confidence < lowConfidenceBoundary:
		return "low"
	case confidence < highConfidenceBoundary:
		return "medium"
	default:
		return "high"
	}
}
