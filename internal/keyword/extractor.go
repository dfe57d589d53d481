package keyword

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"

	"github.com/hyperjump/rssai/pkg/utils"
)

// Extractor picks the single most informative token of a query by tf * idf.
type Extractor struct {
	mapping *mapping.IndexMappingImpl
	idf     IDFSource
	logger  *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithIDFSource scores tokens with real document frequencies instead of the length prior.
func WithIDFSource(src IDFSource) ExtractorOption {
	return func(e *Extractor) { e.idf = src }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		mapping: bleve.NewIndexMapping(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tokens analyzes query into terms: CJK bigrams plus lowercased words when the query has
// CJK runes, otherwise standard tokens with English stop words removed.
func (e *Extractor) Tokens(query string) ([]string, error) {
	analyzer := standard.Name
	if utils.ContainsCJK(query) {
		analyzer = cjk.AnalyzerName
	}
	stream, err := e.mapping.AnalyzeText(analyzer, []byte(query))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		out = append(out, string(tok.Term))
	}
	return out, nil
}

type termScore struct {
	term  string
	tf    int
	first int
	score float64
}

// ExtractTopKeyword returns the highest scoring token of query. It reports false when
// nothing survives analysis, when the best token is the query itself, or on failure.
// Ties go to the longer token, then to the earlier one.
func (e *Extractor) ExtractTopKeyword(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}
	tokens, err := e.Tokens(query)
	if err != nil {
		e.logger.Debug("keyword analysis failed", zap.String("query", query), zap.Error(err))
		return "", false
	}
	if len(tokens) == 0 {
		return "", false
	}

	byTerm := make(map[string]*termScore, len(tokens))
	ordered := make([]*termScore, 0, len(tokens))
	for i, tok := range tokens {
		if ts, ok := byTerm[tok]; ok {
			ts.tf++
			continue
		}
		ts := &termScore{term: tok, tf: 1, first: i}
		byTerm[tok] = ts
		ordered = append(ordered, ts)
	}

	idf := e.idfFunc(ordered)
	total := float64(len(tokens))
	var best *termScore
	for _, ts := range ordered {
		ts.score = float64(ts.tf) / total * idf(ts.term)
		if best == nil || better(ts, best) {
			best = ts
		}
	}

	if strings.EqualFold(best.term, query) {
		return "", false
	}
	return best.term, true
}

func better(a, b *termScore) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	la, lb := utf8.RuneCountInString(a.term), utf8.RuneCountInString(b.term)
	if la != lb {
		return la > lb
	}
	return a.first < b.first
}

// idfFunc returns corpus IDF when an IDFSource is configured and has documents,
// otherwise the length prior.
func (e *Extractor) idfFunc(terms []*termScore) func(string) float64 {
	if e.idf != nil {
		names := make([]string, len(terms))
		for i, ts := range terms {
			names[i] = ts.term
		}
		stats, err := e.idf.CorpusStats(names)
		if err != nil {
			e.logger.Debug("corpus stats unavailable", zap.Error(err))
		} else if stats != nil && stats.TotalDocs > 0 {
			return stats.IDF
		}
	}
	return lengthPrior
}

// lengthPrior stands in for IDF without a corpus: longer tokens are rarer.
func lengthPrior(term string) float64 {
	return 1.0 + math.Log(1.0+float64(utf8.RuneCountInString(term)))
}
