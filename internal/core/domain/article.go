package domain

import "time"

type ArticleStatus string

const (
	StatusPending    ArticleStatus = "pending"
	StatusProcessing ArticleStatus = "processing"
	StatusReady      ArticleStatus = "ready"
	StatusFailed     ArticleStatus = "failed"
)

// Article is one corpus document loaded from an uploaded CSV/XLSX file.
type Article struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Author      string        `json:"author,omitempty"`
	URL         string        `json:"url,omitempty"`
	Summary     string        `json:"summary,omitempty"`
	Content     string        `json:"content,omitempty"`
	Sentiment   string        `json:"sentiment,omitempty"`
	PublishedAt time.Time     `json:"published_at,omitempty"`
	Status      ArticleStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CorpusUploadReport summarizes one accepted corpus upload.
type CorpusUploadReport struct {
	StorageKey string   `json:"storage_key"`
	Total      int      `json:"total"`
	ArticleIDs []string `json:"article_ids"`
}
