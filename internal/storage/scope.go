package storage

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// ScopeKind enumerates the recall filters.
type ScopeKind int

const (
	ScopeAllSources ScopeKind = iota
	ScopeSourceSet
	ScopeFavoritesOf
	ScopeSubscribedSourcesOf
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeAllSources:
		return "all"
	case ScopeSourceSet:
		return "sources"
	case ScopeFavoritesOf:
		return "favorites"
	case ScopeSubscribedSourcesOf:
		return "subscribed"
	default:
		return "unknown"
	}
}

// Scope restricts recall to a subset of articles.
type Scope struct {
	Kind      ScopeKind
	SourceIDs []int64
	UserID    int64
}

// AllSources matches every article.
func AllSources() Scope { return Scope{Kind: ScopeAllSources} }

// SourceSet matches articles from the given sources. An empty set matches nothing.
func SourceSet(ids ...int64) Scope { return Scope{Kind: ScopeSourceSet, SourceIDs: ids} }

// FavoritesOf matches articles the user has favorited.
func FavoritesOf(userID int64) Scope { return Scope{Kind: ScopeFavoritesOf, UserID: userID} }

// SubscribedSourcesOf matches articles from RSS sources the user subscribes to.
func SubscribedSourcesOf(userID int64) Scope {
	return Scope{Kind: ScopeSubscribedSourcesOf, UserID: userID}
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeSourceSet:
		return fmt.Sprintf("sources%v", s.SourceIDs)
	case ScopeFavoritesOf, ScopeSubscribedSourcesOf:
		return fmt.Sprintf("%s(user=%d)", s.Kind, s.UserID)
	default:
		return s.Kind.String()
	}
}

// predicate returns the WHERE fragment for s over the articles alias "a", or nil for no filter.
func (s Scope) predicate(d *dialect) sq.Sqlizer {
	switch s.Kind {
	case ScopeSourceSet:
		return d.inInt64("a.source_id", s.SourceIDs)
	case ScopeFavoritesOf:
		return sq.Expr("a.id IN (SELECT f.article_id FROM article_favorites f WHERE f.user_id = ?)", s.UserID)
	case ScopeSubscribedSourcesOf:
		return sq.Expr("a.source_id IN (SELECT s.source_id FROM subscriptions s WHERE s.user_id = ? AND s.type = ?)",
			s.UserID, "RSS")
	default:
		return nil
	}
}
