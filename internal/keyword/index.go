// Package keyword extracts the most informative keyword from a search query and keeps
// a title index that supplies document frequencies for scoring it.
package keyword

import "github.com/hyperjump/rssai/internal/ranking"

// IDFSource supplies document-frequency statistics for a set of terms.
type IDFSource interface {
	CorpusStats(terms []string) (*ranking.CorpusStats, error)
}

// TermIndexer is the write side of a title index.
type TermIndexer interface {
	IndexTitle(articleID int64, title string) error
	Delete(articleID int64) error
}
