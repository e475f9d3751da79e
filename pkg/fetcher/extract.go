package fetcher

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/sitecrawl/internal/htmltext"
)

// Extracted is what Extract pulls out of one HTML capture.
type Extracted struct {
	Title string
	Text  string
	Links []string
}

// Extract parses html and returns the document title, the visible text of
// the first element matching selector (body when the selector matches
// nothing) with script, style, noscript and iframe elements removed, and
// every raw href in document order. Block elements end up on their own
// lines.
func Extract(html, selector string) (Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Extracted{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var out Extracted
	out.Title = strings.TrimSpace(doc.Find("title").First().Text())

	// Links come from the full document, before anything is removed.
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			out.Links = append(out.Links, href)
		}
	})

	doc.Find("script, style, noscript, iframe").Remove()

	sel := doc.Find("body")
	if selector != "" {
		if found := doc.Find(selector).First(); found.Length() > 0 {
			sel = found
		}
	}
	out.Text = htmltext.Text(sel.First())

	return out, nil
}
