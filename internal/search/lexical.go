package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/storage"
)

// KeywordExtractor picks the most informative token of a query.
type KeywordExtractor interface {
	ExtractTopKeyword(query string) (string, bool)
}

// lexicalRecall runs lexical recall for query and, when the extractor finds a distinct top
// keyword, again for the keyword. Query hits come first; the merge is deduplicated and
// truncated to the lexical limit.
func (e *Engine) lexicalRecall(ctx context.Context, log *zap.Logger, query string, scope storage.Scope) ([]int64, error) {
	limit := e.cfg.LexicalLimit
	ids, err := e.store.LexicalRecall(ctx, query, scope, limit)
	if err != nil {
		return nil, err
	}
	if e.extractor == nil {
		return ids, nil
	}
	kw, ok := e.extractor.ExtractTopKeyword(query)
	if !ok || strings.EqualFold(kw, query) {
		return ids, nil
	}
	log.Debug("broadening lexical recall", zap.String("keyword", kw))
	more, err := e.store.LexicalRecall(ctx, kw, scope, limit)
	if err != nil {
		// the query hits are still good
		log.Warn("keyword recall failed", zap.String("keyword", kw), zap.Error(err))
		return ids, nil
	}
	return mergeIDs(limit, ids, more), nil
}

// mergeIDs concatenates lists, dropping repeats, and truncates to limit when limit > 0.
func mergeIDs(limit int, lists ...[]int64) []int64 {
	seen := make(map[int64]struct{})
	out := make([]int64, 0)
	for _, list := range lists {
		for _, id := range list {
			if limit > 0 && len(out) >= limit {
				return out
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
