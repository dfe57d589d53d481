package models

import (
	"errors"
	"testing"
)

func TestSearchRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       *SearchRequest
		wantErr   bool
		wantQuery string
		wantScope SearchScope
	}{
		{"empty query", &SearchRequest{Query: ""}, true, "", ""},
		{"whitespace query", &SearchRequest{Query: "   \t"}, true, "", ""},
		{"trims query", &SearchRequest{Query: "  golang  "}, false, "golang", ScopeAll},
		{"lowercase scope", &SearchRequest{Query: "x", Scope: "favorite"}, false, "x", ScopeFavorite},
		{"subscribed scope", &SearchRequest{Query: "x", Scope: ScopeSubscribed}, false, "x", ScopeSubscribed},
		{"unknown scope", &SearchRequest{Query: "x", Scope: "EVERYTHING"}, true, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if tt.req.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", tt.req.Query, tt.wantQuery)
			}
			if tt.req.Scope != tt.wantScope {
				t.Errorf("Scope = %q, want %q", tt.req.Scope, tt.wantScope)
			}
		})
	}
}

func TestFeedRequest_NormalizeSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 20},
		{-5, 20},
		{7, 7},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		r := &FeedRequest{Size: tt.in}
		r.NormalizeSize(20, 100)
		if r.Size != tt.want {
			t.Errorf("NormalizeSize(%d) = %d, want %d", tt.in, r.Size, tt.want)
		}
	}
}
