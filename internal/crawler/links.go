package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Origin returns the host[:port] of rawURL, lower-cased. It is the scope
// filter for link discovery.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// ExtractLinks returns every <a href> target in content, resolved against
// currentURL, whose scheme is http or https and whose host[:port] equals
// baseOrigin. Fragments are dropped, so "#top" resolves to currentURL.
// Unparseable input yields an empty set.
func ExtractLinks(content []byte, currentURL, baseOrigin string) map[string]struct{} {
	links := make(map[string]struct{})

	base, err := url.Parse(currentURL)
	if err != nil {
		return links
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return links
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if resolved, ok := resolveLink(base, href, baseOrigin); ok {
			links[resolved] = struct{}{}
		}
	})

	return links
}

// resolveLink resolves href against base and applies the origin and scheme
// filters.
func resolveLink(base *url.URL, href, baseOrigin string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}

	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(abs.Host, baseOrigin) {
		return "", false
	}

	return normalizeURL(abs), true
}

// normalizeURL is the single canonical form used for frontier and visited
// keys: fragment dropped and an empty path written as "/".
func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" && c.Opaque == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return c.String()
}
