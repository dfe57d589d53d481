// Package cli provides output helpers for the rssai command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/rssai/internal/indexer"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/search"
	"github.com/hyperjump/rssai/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named by s. Unknown names fall back to text.
func ParseOutputFormat(s string) OutputFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(OutputJSON)) {
		return OutputJSON
	}
	return OutputText
}

// SearchOutput is the JSON shape of a search run from the command line.
type SearchOutput struct {
	Query     string               `json:"query"`
	QueryTime int64                `json:"queryTimeMs"`
	Total     int                  `json:"total"`
	Results   []*search.ScoredItem `json:"results"`
}

// FeedOutput is the JSON shape of one feed page.
type FeedOutput struct {
	Items      []*models.FeedItem `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// WriteSearchResults writes ranked search results to w in the given format.
func WriteSearchResults(w io.Writer, query string, results []*search.ScoredItem, elapsed time.Duration, format OutputFormat) error {
	if results == nil {
		results = []*search.ScoredItem{}
	}
	out := &SearchOutput{
		Query:     query,
		QueryTime: elapsed.Milliseconds(),
		Total:     len(results),
		Results:   results,
	}
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", out.Total, query, out.QueryTime)
	for _, r := range results {
		writeScored(w, r)
	}
	return nil
}

func writeScored(w io.Writer, r *search.ScoredItem) {
	b := r.Breakdown.Rounded()
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "[%s] Rank: %d | Score: %.4f (Semantic: %.4f, Lexical: %.4f, Decay: %.4f)\n",
		matchLabel(r), r.Rank, b.FinalScore, b.Semantic, b.Lexical, b.Decay)
	writeItemLines(w, r.FeedItem)
	fmt.Fprintln(w)
}

func matchLabel(r *search.ScoredItem) string {
	switch {
	case r.Lexical && r.Vector:
		return "both"
	case r.Lexical:
		return "lexical"
	default:
		return "semantic"
	}
}

func writeItemLines(w io.Writer, item *models.FeedItem) {
	fmt.Fprintf(w, "ID: %d\n", item.ID)
	fmt.Fprintf(w, "Title: %s\n", utils.Truncate(item.Title, 120))
	fmt.Fprintf(w, "Source: %s | Published: %s | Words: %d\n",
		item.SourceName, item.PubDate.UTC().Format(time.RFC3339), item.WordCount)
}

// WriteFeed writes one feed page to w.
func WriteFeed(w io.Writer, items []*models.FeedItem, nextCursor string, format OutputFormat) error {
	if items == nil {
		items = []*models.FeedItem{}
	}
	if format == OutputJSON {
		return writeJSON(w, &FeedOutput{Items: items, NextCursor: nextCursor})
	}
	fmt.Fprintf(w, "\n%d articles\n\n", len(items))
	for _, item := range items {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		writeItemLines(w, item)
	}
	if nextCursor != "" {
		fmt.Fprintf(w, "\nNext cursor: %s\n", nextCursor)
	}
	return nil
}

// WriteImportResults writes per-article import outcomes and a summary line.
func WriteImportResults(w io.Writer, results []*indexer.Result, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []*indexer.Result{}
		}
		return writeJSON(w, results)
	}
	var imported, failed int
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Fprintf(w, "FAIL  %s: %s\n", r.Link, r.Error)
			continue
		}
		imported++
		fmt.Fprintf(w, "OK    %d %s (%d words, embedding %s)\n", r.ArticleID, r.Link, r.WordCount, r.Status)
	}
	fmt.Fprintf(w, "\nImported %d articles, %d failed\n", imported, failed)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
