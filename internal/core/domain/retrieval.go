package domain

type SearchFilter struct {
	Sentiment string
	Author    string
}

// RankedItem is one candidate from a single retrieval source. Rank is the
// 0-based position within that source's result list.
type RankedItem struct {
	DocumentID string
	Rank       int
}

// FusedItem is one entry of a fused ranking, ordered descending by score.
type FusedItem struct {
	DocumentID string
	Score      float64
}

type RetrievedArticle struct {
	ArticleID string  `json:"article_id"`
	Title     string  `json:"title"`
	Author    string  `json:"author,omitempty"`
	URL       string  `json:"url,omitempty"`
	Sentiment string  `json:"sentiment,omitempty"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}

type WebResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// RetrievalJudgement is the judge service's verdict on whether the retrieved
// context can answer the question. Adequacy is on a 0-10 scale.
type RetrievalJudgement struct {
	Adequacy  float64 `json:"adequacy"`
	Reasoning string  `json:"reasoning"`
}

type SourceType string

const (
	SourceInternal SourceType = "internal"
	SourceWeb      SourceType = "web"
)

// Source is one cited source in a query response. Relevance is normalized
// to [0,1] across the response's internal sources.
type Source struct {
	Type      SourceType `json:"type"`
	Title     string     `json:"title"`
	Author    string     `json:"author,omitempty"`
	URL       string     `json:"url,omitempty"`
	Sentiment string     `json:"sentiment,omitempty"`
	Relevance float64    `json:"relevance_score"`
}

type QueryResult struct {
	ResponseID         string     `json:"response_id"`
	Answer             string     `json:"answer"`
	Sources            []Source   `json:"sources"`
	Confidence         float64    `json:"confidence"`
	JudgeScore         JudgeScore `json:"judge_score"`
	RetrievalMethod    string     `json:"retrieval_method"`
	WebSearchTriggered bool       `json:"web_search_triggered"`
	ConfigVersion      int64      `json:"config_version"`
}
