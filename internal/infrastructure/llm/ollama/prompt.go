package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

const (
	maxJudgeContexts  = 3
	maxContextSnippet = 600
)

func buildAnswerPrompt(question string, articles []domain.RetrievedArticle, web []domain.WebResult) string {
	var contextBuilder strings.Builder
	for idx, article := range articles {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] title=%s author=%s score=%.3f\n%s\n\n",
			idx+1,
			article.Title,
			article.Author,
			article.Score,
			article.Text,
		))
	}
	for idx, result := range web {
		contextBuilder.WriteString(fmt.Sprintf(
			"[web %d] %s (%s)\n%s\n\n",
			idx+1,
			result.Title,
			result.URL,
			result.Snippet,
		))
	}

	return fmt.Sprintf(`Answer user question only from context below.
If context is insufficient, say it directly.
Cite sources by their bracketed number.

Question:
%s

Context:
%s
`, question, contextBuilder.String())
}

func buildRetrievalJudgePrompt(query string, contexts []string) string {
	var docs strings.Builder
	for i, ctx := range contexts {
		if i >= maxJudgeContexts {
			break
		}
		snippet := ctx
		if len(snippet) > maxContextSnippet {
			snippet = snippet[:maxContextSnippet]
		}
		docs.WriteString(fmt.Sprintf("%d. %s\n\n", i+1, snippet))
	}

	return fmt.Sprintf(`You are an expert judge evaluating whether retrieved documents can adequately answer a user's question.

User Question: %s

Retrieved Documents:
%s
Score adequacy from 0 to 10:
- 0-3: very poor, documents are irrelevant
- 4-6: mediocre, some relevance but may not fully answer
- 7-8: good, documents likely contain the answer
- 9-10: excellent, documents clearly contain comprehensive information

Return strict JSON object with keys:
adequacy (number from 0 to 10), reasoning (string).
No markdown, no extra keys.
`, query, docs.String())
}

func buildAnswerJudgePrompt(query, answer string) string {
	return fmt.Sprintf(`You are an expert judge evaluating the quality of an AI-generated answer.

User Question: %s

AI Answer: %s

Score the answer on three criteria, each from 0 to 10:
1. relevance: does the answer directly address the question?
2. factuality: is the answer factually accurate?
3. completeness: does the answer cover all aspects of the question?

Return strict JSON object with keys:
relevance (number), factuality (number), completeness (number).
No markdown, no extra keys.
`, query, answer)
}
