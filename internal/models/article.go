// Package models defines the core data structures shared by storage, search and the feed.
package models

import "time"

// AnalysisStatus is the final state of an article's enrichment.
type AnalysisStatus string

const (
	AnalysisSuccess AnalysisStatus = "SUCCESS"
	AnalysisFailed  AnalysisStatus = "FAILED"
)

// Article is a single item fetched from an RSS source. SourceID becomes nil when the
// owning source is deleted; SourceName stays as it was at fetch time.
type Article struct {
	ID         int64     `json:"id" db:"id"`
	SourceID   *int64    `json:"sourceId,omitempty" db:"source_id"`
	SourceName string    `json:"sourceName" db:"source_name"`
	Title      string    `json:"title" db:"title"`
	Link       string    `json:"link" db:"link"`
	Author     string    `json:"author,omitempty" db:"author"`
	PubDate    time.Time `json:"pubDate" db:"pub_date"`
	WordCount  int64     `json:"wordCount" db:"word_count"`
	CoverImage string    `json:"coverImage,omitempty" db:"cover_image"`
}

// ArticleExtra holds the enrichment output for an article. Vector is nil until an
// embedding has been generated successfully.
type ArticleExtra struct {
	ArticleID      int64          `json:"articleId" db:"article_id"`
	Overview       string         `json:"overview,omitempty" db:"overview"`
	KeyInformation []string       `json:"keyInformation,omitempty" db:"key_information"`
	Tags           []string       `json:"tags,omitempty" db:"tags"`
	Vector         []float32      `json:"-" db:"vector"`
	Status         AnalysisStatus `json:"status" db:"status"`
	ErrorMessage   string         `json:"errorMessage,omitempty" db:"error_message"`
}

// FeedItem is the list view of an article returned by search, recommend and the feed.
// It is derived from Article columns only.
type FeedItem struct {
	ID         int64     `json:"id"`
	SourceID   *int64    `json:"sourceId,omitempty"`
	SourceName string    `json:"sourceName"`
	Title      string    `json:"title"`
	CoverImage string    `json:"coverImage,omitempty"`
	PubDate    time.Time `json:"pubDate"`
	WordCount  int64     `json:"wordCount"`
}

// FeedItemFromArticle builds the list view of a.
func FeedItemFromArticle(a *Article) *FeedItem {
	return &FeedItem{
		ID:         a.ID,
		SourceID:   a.SourceID,
		SourceName: a.SourceName,
		Title:      a.Title,
		CoverImage: a.CoverImage,
		PubDate:    a.PubDate,
		WordCount:  a.WordCount,
	}
}

// ArticleInput is the input for importing an article. Content is the raw HTML body used to
// derive the word count, the cover image and the embedding text.
type ArticleInput struct {
	SourceID   *int64    `json:"sourceId,omitempty"`
	SourceName string    `json:"sourceName"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	Author     string    `json:"author,omitempty"`
	PubDate    time.Time `json:"pubDate"`
	Content    string    `json:"content,omitempty"`

	// Overview, KeyInformation and Tags come from the enrichment step when it already ran upstream.
	Overview       string   `json:"overview,omitempty"`
	KeyInformation []string `json:"keyInformation,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// NormalizeTime converts t to UTC with microsecond precision, the resolution every
// store keeps publish dates at. Cursor comparisons depend on this.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
