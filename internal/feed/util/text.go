package util

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PlainText strips markup from an upstream description, keeping a space
// between adjacent text nodes. Script and style contents are dropped.
func PlainText(markup string) string {
	if !strings.ContainsAny(markup, "<&") {
		return CleanText(markup)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return CleanText(markup)
	}
	doc.Find("script, style").Remove()

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return CleanText(b.String())
}
