package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/adaptive-rag/internal/core/domain"
)

// Parser reads uploaded news corpus files. CSV and XLSX exports share the
// same column set: title, summary, article_content, author, sentiment,
// timestamp and optionally url. Column order is taken from the header row,
// so exports with extra or reordered columns still parse.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

var timestampLayouts = []string{
	time.RFC3339,
	"02-01-06 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (p *Parser) Parse(filename string, r io.Reader) ([]domain.Article, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return p.parseCSV(r)
	case ".xlsx":
		return p.parseXLSX(r)
	default:
		return nil, fmt.Errorf("%w: unsupported corpus format %q", domain.ErrInvalidInput, filepath.Ext(filename))
	}
}

func (p *Parser) parseCSV(r io.Reader) ([]domain.Article, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := columnIndex(header)

	var articles []domain.Article
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if article, ok := rowToArticle(cols, record); ok {
			articles = append(articles, article)
		}
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: corpus file contains no articles", domain.ErrInvalidInput)
	}
	return articles, nil
}

func (p *Parser) parseXLSX(r io.Reader) ([]domain.Article, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: xlsx file has no sheets", domain.ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: corpus file contains no articles", domain.ErrInvalidInput)
	}

	cols := columnIndex(rows[0])
	var articles []domain.Article
	for _, record := range rows[1:] {
		if article, ok := rowToArticle(cols, record); ok {
			articles = append(articles, article)
		}
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: corpus file contains no articles", domain.ErrInvalidInput)
	}
	return articles, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func rowToArticle(cols map[string]int, record []string) (domain.Article, bool) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	article := domain.Article{
		Title:     cell("title"),
		Summary:   cell("summary"),
		Content:   cell("article_content"),
		Author:    cell("author"),
		Sentiment: strings.ToLower(cell("sentiment")),
		URL:       cell("url"),
	}
	if article.Content == "" {
		article.Content = cell("content")
	}
	// Rows without any text are export artifacts, skip them silently.
	if article.Title == "" && article.Content == "" && article.Summary == "" {
		return domain.Article{}, false
	}
	if ts := cell("timestamp"); ts != "" {
		article.PublishedAt = parseTimestamp(ts)
	}
	return article, true
}

func parseTimestamp(value string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
