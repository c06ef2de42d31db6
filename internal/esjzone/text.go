package esjzone

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PlainText flattens markup into newline-separated plain text, trimming
// each text segment. Used to derive a chapter's text body from its
// rendered markup.
func PlainText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	return blockText(doc.Selection)
}

// blockText collects the trimmed text nodes under sel, one per line.
func blockText(sel *goquery.Selection) string {
	var lines []string
	for _, node := range sel.Nodes {
		collectText(node, &lines)
	}
	return strings.Join(lines, "\n")
}

func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*lines = append(*lines, text)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}
