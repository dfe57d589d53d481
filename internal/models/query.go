package models

import (
	"strings"

	"github.com/hyperjump/rssai/pkg/utils"
)

// SearchScope restricts which articles a search may return.
type SearchScope string

const (
	ScopeAll        SearchScope = "ALL"
	ScopeSubscribed SearchScope = "SUBSCRIBED"
	ScopeFavorite   SearchScope = "FAVORITE"
)

// ParseSearchScope parses s case-insensitively. An empty string means ScopeAll.
func ParseSearchScope(s string) (SearchScope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(ScopeAll):
		return ScopeAll, nil
	case string(ScopeSubscribed):
		return ScopeSubscribed, nil
	case string(ScopeFavorite):
		return ScopeFavorite, nil
	}
	return "", InvalidInputf("unknown search scope %q", s)
}

// SearchRequest is a free-text article search.
type SearchRequest struct {
	Query    string      `json:"query"`
	Scope    SearchScope `json:"searchScope,omitempty"`
	SourceID int64       `json:"sourceId,omitempty"` // > 0 narrows to one source regardless of Scope
	UserID   *int64      `json:"-"`
}

// Validate trims the query and defaults the scope.
// Returns ErrInvalidInput for a blank query or an unknown scope.
func (r *SearchRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return InvalidInputf("query cannot be empty")
	}
	scope, err := ParseSearchScope(string(r.Scope))
	if err != nil {
		return err
	}
	r.Scope = scope
	return nil
}

// FeedRequest asks for one page of a user's feed.
type FeedRequest struct {
	UserID         int64  `json:"-"`
	SubscriptionID *int64 `json:"subscriptionId,omitempty"`
	Cursor         string `json:"cursor,omitempty"`
	Size           int    `json:"size,omitempty"`
}

// NormalizeSize applies the default page size to non-positive values and caps at max.
func (r *FeedRequest) NormalizeSize(def, max int) {
	r.Size = utils.ClampInt(r.Size, def, max)
}
