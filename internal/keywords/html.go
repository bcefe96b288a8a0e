package keywords

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML returns the visible text of an HTML fragment with whitespace
// collapsed. Input that fails to parse is returned unchanged.
func CleanHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("script, style, noscript").Remove()

	// Block elements would otherwise glue adjacent words together.
	doc.Find("p, li, br, div, h1, h2, h3, h4, tr").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " ")
}
