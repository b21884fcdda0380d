package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// droppedSelectors are elements stripped before text extraction. Boilerplate
// chrome dilutes the extraction prompt and wastes tokens.
const droppedSelectors = "script, style, noscript, iframe, svg, nav, footer, form"

// blockSelectors are elements that imply a line break in the flattened text.
const blockSelectors = "p, div, li, tr, br, h1, h2, h3, h4, h5, h6, section, article"

// CleanHTML strips markup and boilerplate from a fetched page, returning
// plaintext with block boundaries preserved as newlines. Listing separators
// survive this way, so one listing rarely bleeds into the next.
func CleanHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", eris.Wrap(err, "fetch: parse html")
	}

	doc.Find(droppedSelectors).Remove()
	doc.Find(blockSelectors).Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	body := doc.Find("body")
	text := body.Text()
	if body.Length() == 0 {
		text = doc.Text()
	}

	return collapseWhitespace(text), nil
}

// collapseWhitespace trims each line and drops blank lines.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
