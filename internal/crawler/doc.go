// Package crawler walks a single website origin and collects its visible
// text.
//
// A crawl starts from one URL and follows same-origin links breadth-first
// until either the frontier is exhausted or the page cap is reached. Every
// URL is fetched at most once. A page that cannot be fetched or parsed
// contributes nothing (no text, no links) and never aborts the crawl.
//
// The extractors are pure functions over page bytes:
//
//   - ExtractLinks returns the same-origin http(s) link targets of a page.
//   - ExtractText returns the page's visible text with script, style, nav,
//     footer and header content removed.
package crawler
