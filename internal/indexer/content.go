package indexer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperjump/rssai/pkg/utils"
)

// Content is what the importer derives from an article's HTML body.
type Content struct {
	Text       string
	WordCount  int64
	CoverImage string
}

// AnalyzeContent extracts plain text, its word count and the first image from HTML.
// Script, style and noscript elements are ignored.
func AnalyzeContent(html string) (*Content, error) {
	if strings.TrimSpace(html) == "" {
		return &Content{}, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	c := &Content{}
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src"} {
			if src, ok := img.Attr(attr); ok {
				src = strings.TrimSpace(src)
				if src != "" && !strings.HasPrefix(src, "data:") {
					c.CoverImage = src
					return false
				}
			}
		}
		return true
	})

	// block elements need a separator or adjacent paragraphs run together
	doc.Find("p, div, br, li, h1, h2, h3, h4, h5, h6, tr, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	c.Text = utils.CollapseSpace(doc.Text())
	c.WordCount = int64(utils.CountWords(c.Text))
	return c, nil
}

// embeddingText builds the text embedded for an article: the overview and key information
// when enrichment produced them, otherwise the title followed by the start of the body.
func embeddingText(in *articleText, maxRunes int) string {
	var parts []string
	if strings.TrimSpace(in.overview) != "" {
		parts = append(parts, in.overview)
		parts = append(parts, in.keyInformation...)
	} else {
		parts = append(parts, in.title)
		if in.body != "" {
			parts = append(parts, in.body)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if maxRunes > 0 {
		text = utils.Truncate(text, maxRunes)
	}
	return text
}

type articleText struct {
	title          string
	overview       string
	keyInformation []string
	body           string
}
