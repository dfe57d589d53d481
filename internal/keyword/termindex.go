package keyword

import (
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"

	"github.com/hyperjump/rssai/internal/ranking"
)

const titleField = "title"

type titleDoc struct {
	Title string `json:"title"`
}

// TermIndex is a Bleve index over article titles. It is only used for document
// frequencies; retrieval itself runs in the relational store.
type TermIndex struct {
	index bleve.Index
}

// NewTermIndex creates or opens a title index at path. An empty path keeps the index in memory.
// Titles are analyzed with the CJK analyzer (unicode tokenizer, lowercase, CJK bigrams) so
// Latin words and CJK bigrams share one field and match the extractor's tokens.
func NewTermIndex(path string) (*TermIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	titleMapping := bleve.NewTextFieldMapping()
	titleMapping.Analyzer = cjk.AnalyzerName
	titleMapping.Store = false
	titleMapping.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(titleField, titleMapping)
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory title index: %w", err)
		}
		return &TermIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open title index: %w", openErr)
		}
		return &TermIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create title index: %w", err)
	}
	return &TermIndex{index: index}, nil
}

// IndexTitle adds or replaces the title for articleID.
func (t *TermIndex) IndexTitle(articleID int64, title string) error {
	return t.index.Index(strconv.FormatInt(articleID, 10), titleDoc{Title: title})
}

// Delete removes articleID from the index.
func (t *TermIndex) Delete(articleID int64) error {
	return t.index.Delete(strconv.FormatInt(articleID, 10))
}

// DocCount returns the number of indexed titles.
func (t *TermIndex) DocCount() (uint64, error) {
	return t.index.DocCount()
}

// DocFrequency returns the number of titles containing the analyzed term.
func (t *TermIndex) DocFrequency(term string) (int, error) {
	q := bleve.NewTermQuery(term)
	q.SetField(titleField)
	req := bleve.NewSearchRequest(q)
	req.Size = 0
	res, err := t.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("term frequency for %q: %w", term, err)
	}
	return int(res.Total), nil
}

// CorpusStats returns the title count and per-term document frequencies.
func (t *TermIndex) CorpusStats(terms []string) (*ranking.CorpusStats, error) {
	count, err := t.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get doc count: %w", err)
	}
	stats := ranking.NewCorpusStats()
	stats.TotalDocs = int(count)
	for _, term := range terms {
		freq, err := t.DocFrequency(term)
		if err != nil {
			return nil, err
		}
		stats.DocFrequencies[term] = freq
	}
	return stats, nil
}

// Close closes the underlying index.
func (t *TermIndex) Close() error {
	return t.index.Close()
}
