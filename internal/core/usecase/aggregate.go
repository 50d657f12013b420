package usecase

import "github.com/kirillkom/adaptive-rag/internal/core/domain"

// aggregateJudgeScore combines the three 0-10 judge dimensions into one
// overall score using the learned weights. Inputs are bounded and the
// weights sum to 1, so the result stays in [0,10] without extra clamping.
func aggregateJudgeScore(score domain.JudgeScore, weights domain.JudgeWeights) float64 {
	return weights.Relevance*float64(score.Relevance) +
		weights.Factuality*float64(score.Factuality) +
		weights.Completeness*float64(score.Completeness)
}

// aggregateConfidence combines the retrieval-adequacy and answer-quality
// scores (both pre-normalized to [0,1]) into one confidence value. The
// result is clipped to [0,1] to absorb floating-point drift upstream.
func aggregateConfidence(retrievalScore, answerScore float64, weights domain.ConfidenceWeights) float64 {
	confidence := weights.RetrievalEval*retrievalScore + weights.AnswerQuality*answerScore
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
