package usecase

import (
	"sort"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

const defaultRRFK = 60

// fuseRankedRRF merges two independently ranked candidate lists with
// Reciprocal Rank Fusion. A document at 0-based rank r contributes
// 1/(k+r) per list it appears in; documents absent from both lists do not
// appear in the output. The result is ordered descending by fused score,
// ties broken by ascending document id, and is invariant to which list is
// passed first.
func fuseRankedRRF(a, b []domain.RankedItem, rrfK int) []domain.FusedItem {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]float64, len(a)+len(b))
	addList := func(items []domain.RankedItem) {
		for _, item := range items {
			acc[item.DocumentID] += 1.0 / float64(rrfK+item.Rank)
		}
	}
	addList(a)
	addList(b)

	out := make([]domain.FusedItem, 0, len(acc))
	for id, score := range acc {
		out = append(out, domain.FusedItem{DocumentID: id, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}

// rankCandidates converts a retrieval result into its (document, rank) form,
// using list position as the 0-based rank. The first occurrence of a
// document wins; later duplicates from the same source are dropped.
func rankCandidates(list []domain.RetrievedArticle) []domain.RankedItem {
	out := make([]domain.RankedItem, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, candidate := range list {
		if _, ok := seen[candidate.ArticleID]; ok {
			continue
		}
		seen[candidate.ArticleID] = struct{}{}
		out = append(out, domain.RankedItem{DocumentID: candidate.ArticleID, Rank: len(out)})
	}
	return out
}

// fuseRetrieved runs RRF over the semantic and lexical result lists and joins
// the fused ranking back onto article metadata. When both lists carry the
// same article, the semantic hit's metadata is preferred.
func fuseRetrieved(semantic, lexical []domain.RetrievedArticle, rrfK int) []domain.RetrievedArticle {
	fused := fuseRankedRRF(rankCandidates(semantic), rankCandidates(lexical), rrfK)

	byID := make(map[string]domain.RetrievedArticle, len(semantic)+len(lexical))
	for _, candidate := range lexical {
		byID[candidate.ArticleID] = candidate
	}
	for _, candidate := range semantic {
		byID[candidate.ArticleID] = candidate
	}

	out := make([]domain.RetrievedArticle, 0, len(fused))
	for _, item := range fused {
		article := byID[item.DocumentID]
		article.Score = item.Score
		out = append(out, article)
	}
	return out
}
