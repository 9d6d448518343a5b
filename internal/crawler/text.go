package crawler

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// excludedElements are removed with their whole subtree before text is
// collected.
const excludedElements = "script, style, nav, footer, header"

// ExtractText returns the visible text of an HTML page: every remaining
// text node, trimmed, in document order, joined by single spaces. It keeps
// no state between calls. Unparseable input yields "".
func ExtractText(content []byte) string {
	// With scripting disabled, <noscript> children parse as elements
	// instead of one raw markup string.
	root, err := html.ParseWithOptions(bytes.NewReader(content), html.ParseOptionEnableScripting(false))
	if err != nil {
		return ""
	}
	doc := goquery.NewDocumentFromNode(root)

	doc.Find(excludedElements).Remove()

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	return strings.Join(parts, " ")
}
