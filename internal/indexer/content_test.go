package indexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeContent(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantText  string
		wantWords int64
		wantCover string
	}{
		{
			name:      "paragraphs and image",
			html:      `<p>Hello world.</p><p>Second<br>line</p><img src="data:image/png;base64,xx"><img src=" https://cdn.example.com/a.png ">`,
			wantText:  "Hello world. Second line",
			wantWords: 4,
			wantCover: "https://cdn.example.com/a.png",
		},
		{
			name:      "scripts ignored",
			html:      `<div>one two<script>var three = 3;</script><style>.four{}</style></div>`,
			wantText:  "one two",
			wantWords: 2,
		},
		{
			name:      "lazy image",
			html:      `<img data-src="/lazy.jpg"><p>中文内容</p>`,
			wantText:  "中文内容",
			wantWords: 4,
			wantCover: "/lazy.jpg",
		},
		{
			name: "empty",
			html: "   ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := AnalyzeContent(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, c.Text)
			assert.Equal(t, tt.wantWords, c.WordCount)
			assert.Equal(t, tt.wantCover, c.CoverImage)
		})
	}
}

func TestEmbeddingText(t *testing.T) {
	withOverview := embeddingText(&articleText{
		title: "Title", overview: "Overview", keyInformation: []string{"k1", "k2"}, body: "body",
	}, 0)
	assert.Equal(t, "Overview\nk1\nk2", withOverview)

	titleOnly := embeddingText(&articleText{title: "Title", body: "the body"}, 0)
	assert.Equal(t, "Title\nthe body", titleOnly)

	long := embeddingText(&articleText{title: "T", body: strings.Repeat("字", 100)}, 10)
	assert.Equal(t, "T\n"+strings.Repeat("字", 8)+"...", long)
}
