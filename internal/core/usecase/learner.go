package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

// judgeWeightMinShift is the smallest judge-weight movement worth applying;
// smaller EMA drifts are left alone so the weights do not wander on noise.
const judgeWeightMinShift = 0.05

// Adjustment records one applied parameter delta with the measured statistic
// that caused it.
type Adjustment struct {
	Parameter string `json:"parameter"`
	Old       string `json:"old_value"`
	New       string `json:"new_value"`
	Reason    string `json:"reason"`
}

type LearnerOptions struct {
	// SignificanceMargin is the minimum measured positive-rate gap before a
	// parameter moves.
	SignificanceMargin float64
	// TargetHighConfidenceRate is the positive rate high-confidence answers
	// are expected to reach.
	TargetHighConfidenceRate float64
	// HistoryLimit caps the retained performance snapshots.
	HistoryLimit int
}

func (o LearnerOptions) normalize() LearnerOptions {
	out := o
	if out.SignificanceMargin <= 0 {
		out.SignificanceMargin = 0.15
	}
	if out.TargetHighConfidenceRate <= 0 || out.TargetHighConfidenceRate > 1 {
		out.TargetHighConfidenceRate = 0.6
	}
	if out.HistoryLimit <= 0 {
		out.HistoryLimit = 50
	}
	return out
}

// OnlineLearner turns a batch of feedback history into bounded adaptive
// config updates. The three proposal mechanisms are independent pure
// functions over the same history snapshot; their deltas are applied to one
// working copy and committed once.
type OnlineLearner struct {
	params *ParameterStore
	opts   LearnerOptions
	logger *slog.Logger
}

func NewOnlineLearner(params *ParameterStore, opts LearnerOptions, logger *slog.Logger) *OnlineLearner {
	return &OnlineLearner{
		params: params,
		opts:   opts.normalize(),
		logger: logger,
	}
}

// Learn runs the three mechanisms over the event history, commits the
// resulting config (version bump + performance snapshot, even when no
// mechanism fired), and returns the applied adjustments with the new
// version. On persistence failure the computed adjustments are still
// returned alongside the error so the caller can retry; the previous config
// remains authoritative.
func (l *OnlineLearner) Learn(ctx context.Context, history []domain.FeedbackEvent) ([]Adjustment, int64, error) {
	events := l.validEvents(history)

	// Every mechanism reads the same published snapshot; deltas land on one
	// working copy so an earlier proposal never feeds a later one.
	snapshot := l.params.Snapshot()
	working := snapshot.Clone()
	adjustments := make([]Adjustment, 0, 3)

	if adj := proposeThresholdAdjustment(events, working, l.opts.SignificanceMargin); adj != nil {
		adjustments = append(adjustments, *adj)
	}
	if adj := proposeConfidenceRecalibration(events, working, snapshot.WebSearchThreshold, l.opts.SignificanceMargin, l.opts.TargetHighConfidenceRate); adj != nil {
		adjustments = append(adjustments, *adj)
	}
	if adj := proposeJudgeWeightShift(events, working); adj != nil {
		adjustments = append(adjustments, *adj)
	}

	working.History = append(working.History, performanceSnapshot(events, time.Now().UTC()))
	if len(working.History) > l.opts.HistoryLimit {
		working.History = working.History[len(working.History)-l.opts.HistoryLimit:]
	}

	if err := l.params.Commit(ctx, working); err != nil {
		return adjustments, l.params.Snapshot().Version, err
	}

	for _, adj := range adjustments {
		l.logger.Info("adaptive_adjustment",
			"parameter", adj.Parameter,
			"old", adj.Old,
			"new", adj.New,
			"reason", adj.Reason,
			"version", working.Version,
		)
	}
	return adjustments, working.Version, nil
}

// validEvents drops malformed history rows with a warning; a bad event never
// fails the batch.
func (l *OnlineLearner) validEvents(history []domain.FeedbackEvent) []domain.FeedbackEvent {
	out := make([]domain.FeedbackEvent, 0, len(history))
	for _, ev := range history {
		if err := ev.Validate(); err != nil {
			l.logger.Warn("feedback_event_skipped", "event_id", ev.ID, "error", err)
			continue
		}
		out = append(out, ev)
	}
	return out
}

// proposeThresholdAdjustment compares the positive rates of the web-search
// and internal-retrieval paths and moves the escalation threshold toward the
// better-performing path when the gap clears the significance margin.
func proposeThresholdAdjustment(events []domain.FeedbackEvent, cfg *domain.AdaptiveConfig, margin float64) *Adjustment {
	var webPositive, webTotal, internalPositive, internalTotal int
	for _, ev := range events {
		if ev.WebSearchTriggered {
			webTotal++
			if ev.Positive() {
				webPositive++
			}
		} else {
			internalTotal++
			if ev.Positive() {
				internalPositive++
			}
		}
	}
	if webTotal == 0 || internalTotal == 0 {
		return nil
	}

	webRate := float64(webPositive) / float64(webTotal)
	internalRate := float64(internalPositive) / float64(internalTotal)
	gap := webRate - internalRate
	if math.Abs(gap) <= margin {
		return nil
	}

	old := cfg.WebSearchThreshold
	// A positive gap means web search outperforms: lower the threshold so it
	// triggers more often. A negative gap raises it.
	next := old - cfg.LearningRate*gap
	if next < domain.MinWebSearchThreshold {
		next = domain.MinWebSearchThreshold
	}
	if next > domain.MaxWebSearchThreshold {
		next = domain.MaxWebSearchThreshold
	}
	if next == old {
		return nil
	}
	cfg.WebSearchThreshold = next

	return &Adjustment{
		Parameter: "web_search_threshold",
		Old:       fmt.Sprintf("%.4f", old),
		New:       fmt.Sprintf("%.4f", next),
		Reason: fmt.Sprintf("web positive rate %.2f vs internal %.2f (gap %.2f)",
			webRate, internalRate, gap),
	}
}

// proposeConfidenceRecalibration checks whether answers the system was
// confident about (confidence above the published snapshot's threshold)
// actually earned positive feedback. When the high-confidence positive rate
// misses the target by more than the margin, weight mass shifts by
// learning_rate toward the more reliable signal and the pair is
// renormalized. The threshold is passed in from the snapshot so a threshold
// proposal in the same pass cannot move this mechanism's bucket boundary.
func proposeConfidenceRecalibration(events []domain.FeedbackEvent, cfg *domain.AdaptiveConfig, threshold, margin, target float64) *Adjustment {
	var highTotal, highPositive int
	for _, ev := range events {
		if ev.Confidence > threshold {
			highTotal++
			if ev.Positive() {
				highPositive++
			}
		}
	}
	if highTotal == 0 {
		return nil
	}

	rate := float64(highPositive) / float64(highTotal)
	gap := target - rate
	if math.Abs(gap) <= margin {
		return nil
	}

	old := cfg.ConfidenceWeights
	shifted := old
	if gap > 0 {
		// High confidence is not earning positive feedback: lean on answer
		// quality instead of retrieval adequacy.
		shifted.RetrievalEval -= cfg.LearningRate
		shifted.AnswerQuality += cfg.LearningRate
	} else {
		shifted.RetrievalEval += cfg.LearningRate
		shifted.AnswerQuality -= cfg.LearningRate
	}
	cfg.ConfidenceWeights = shifted.Normalize()

	return &Adjustment{
		Parameter: "confidence_weights",
		Old:       fmt.Sprintf("retrieval=%.4f answer=%.4f", old.RetrievalEval, old.AnswerQuality),
		New:       fmt.Sprintf("retrieval=%.4f answer=%.4f", cfg.ConfidenceWeights.RetrievalEval, cfg.ConfidenceWeights.AnswerQuality),
		Reason: fmt.Sprintf("high-confidence positive rate %.2f vs target %.2f over %d events",
			rate, target, highTotal),
	}
}

// proposeJudgeWeightShift measures how well each judge dimension separates
// positive from negative feedback (mean score difference), normalizes the
// non-negative separations into target weights, and blends them into the
// current weights with an EMA at the learning rate.
func proposeJudgeWeightShift(events []domain.FeedbackEvent, cfg *domain.AdaptiveConfig) *Adjustment {
	var posCount, negCount int
	var posSum, negSum [3]float64
	for _, ev := range events {
		dims := [3]float64{
			float64(ev.JudgeScore.Relevance),
			float64(ev.JudgeScore.Factuality),
			float64(ev.JudgeScore.Completeness),
		}
		if ev.Positive() {
			posCount++
			for i, v := range dims {
				posSum[i] += v
			}
		} else {
			negCount++
			for i, v := range dims {
				negSum[i] += v
			}
		}
	}
	if posCount == 0 || negCount == 0 {
		return nil
	}

	var separation [3]float64
	total := 0.0
	for i := range separation {
		sep := posSum[i]/float64(posCount) - negSum[i]/float64(negCount)
		if sep < 0 {
			sep = 0
		}
		separation[i] = sep
		total += sep
	}
	// All dimensions separate negatively or not at all: nothing to learn.
	if total <= 0 {
		return nil
	}

	lr := cfg.LearningRate
	old := cfg.JudgeWeights
	blended := domain.JudgeWeights{
		Relevance:    (1-lr)*old.Relevance + lr*(separation[0]/total),
		Factuality:   (1-lr)*old.Factuality + lr*(separation[1]/total),
		Completeness: (1-lr)*old.Completeness + lr*(separation[2]/total),
	}.Normalize()

	maxShift := math.Max(
		math.Abs(blended.Relevance-old.Relevance),
		math.Max(
			math.Abs(blended.Factuality-old.Factuality),
			math.Abs(blended.Completeness-old.Completeness),
		),
	)
	if maxShift < judgeWeightMinShift {
		return nil
	}
	cfg.JudgeWeights = blended

	return &Adjustment{
		Parameter: "judge_weights",
		Old: fmt.Sprintf("relevance=%.4f factuality=%.4f completeness=%.4f",
			old.Relevance, old.Factuality, old.Completeness),
		New: fmt.Sprintf("relevance=%.4f factuality=%.4f completeness=%.4f",
			blended.Relevance, blended.Factuality, blended.Completeness),
		Reason: fmt.Sprintf("separation relevance=%.2f factuality=%.2f completeness=%.2f",
			separation[0], separation[1], separation[2]),
	}
}

func performanceSnapshot(events []domain.FeedbackEvent, now time.Time) domain.PerformanceSnapshot {
	snap := domain.PerformanceSnapshot{Timestamp: now, TotalFeedback: len(events)}
	if len(events) == 0 {
		return snap
	}

	var positive, webTriggered int
	var confidenceSum float64
	for _, ev := range events {
		if ev.Positive() {
			positive++
		}
		if ev.WebSearchTriggered {
			webTriggered++
		}
		confidenceSum += ev.Confidence
	}
	total := float64(len(events))
	snap.PositiveRate = float64(positive) / total
	snap.AverageConfidence = confidenceSum / total
	snap.WebSearchUsage = float64(webTriggered) / total
	return snap
}
