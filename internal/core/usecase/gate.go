package usecase

import "github.com/kirillkom/adaptive-rag/internal/core/domain"

// shouldEscalate is the adequacy gate: escalate to external web search when
// confidence falls below the learned threshold or the retrieval judge score
// falls below the judge floor. Pure and deterministic; exactly two outcomes.
func shouldEscalate(confidence, retrievalJudgeScore float64, cfg *domain.AdaptiveConfig) bool {
	return confidence < cfg.WebSearchThreshold || retrievalJudgeScore < float64(cfg.JudgeFloor)
}

// learningDue reports whether a learning pass is due after an append left the
// log at count events: the count must be a positive multiple of batchSize and
// at least minSamples.
func learningDue(count, batchSize, minSamples int) bool {
	if count <= 0 || batchSize <= 0 {
		return false
	}
	return count >= minSamples && count%batchSize == 0
}
