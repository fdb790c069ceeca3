// Package extres internalizes externally hosted resources: it discovers
// external URLs embedded in HTML/CSS, downloads them under a reserved
// namespace inside the site tree and builds the URL to local path mapping
// used later when references are rewritten.
package extres

import (
	"regexp"
)

// Namespace is the reserved top level directory downloaded resources are
// stored under. It is excluded from all scans to avoid feedback loops.
const Namespace = "_external"

// Scanning is intentionally textual - site generators produce all kinds of
// almost-HTML and a DOM parser would silently drop what we need to see.
// Anchor navigation links are not matched on purpose, only <link> elements.
var (
	reSrc      = regexp.MustCompile(`src=["']((?:https?:)?//[^"']+)["']`)
	reLinkHref = regexp.MustCompile(`<link\b[^>]*\bhref=["']((?:https?:)?//[^"']+)["']`)
	reCSSURL   = regexp.MustCompile(`url\(["']?((?:https?:)?//[^"')\s]+)["']?\)`)
	reCSSImp   = regexp.MustCompile(`@import\s+["']((?:https?:)?//[^"']+)["']`)
)

// FindURLs returns the set of distinct external resource URLs present in
// HTML or CSS text: http://, https:// and protocol-relative // forms.
func FindURLs(content string) map[string]bool {
	urls := make(map[string]bool)
	for _, re := range []*regexp.Regexp{reSrc, reLinkHref, reCSSURL, reCSSImp} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			urls[m[1]] = true
		}
	}
	return urls
}
