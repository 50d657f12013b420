package usecase

import (
	"strings"
	"unicode"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

// heuristicRerankScores is the local fallback used when no cross-encoder
// reranker is configured or the reranker call fails: score each passage by
// query-token overlap, weighted toward rarer tokens within the candidate
// set. Returned scores are raw and go through the same normalization as
// cross-encoder output.
func heuristicRerankScores(query string, passages []string) []float64 {
	queryTokens := tokenize(query)
	scores := make([]float64, len(passages))
	if len(queryTokens) == 0 {
		return scores
	}

	// Document frequency of each query token across the candidate passages.
	passageTokens := make([]map[string]int, len(passages))
	df := make(map[string]int, len(queryTokens))
	for i, passage := range passages {
		counts := make(map[string]int)
		for tok := range tokenize(passage) {
			counts[tok]++
		}
		passageTokens[i] = counts
		for tok := range queryTokens {
			if counts[tok] > 0 {
				df[tok]++
			}
		}
	}

	total := float64(len(passages))
	for i := range passages {
		score := 0.0
		for tok := range queryTokens {
			hits := passageTokens[i][tok]
			if hits == 0 {
				continue
			}
			// A token present in every passage carries no signal.
			rarity := 1.0 - float64(df[tok]-1)/total
			score += float64(hits) * rarity
		}
		scores[i] = score
	}
	return scores
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func passageTexts(articles []domain.RetrievedArticle) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.Text
	}
	return out
}
