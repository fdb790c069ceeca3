// Package rewrite adjusts references inside HTML/CSS text so documents
// resolve correctly from any directory depth inside the bundle. All
// transforms are pure text to text, files on disk are never modified, and
// each transform is idempotent since a document may pass through several.
package rewrite

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"s2z/site"
)

// Context carries what a single file rewrite needs to know.
type Context struct {
	Tree *site.Tree
	Path string       // tree-relative path of the document being rewritten
	Warn func(string) // collects missing-index warnings, may be nil
}

// Root-relative references start with a single slash. Double slash is a
// protocol-relative external URL and must be left for the external rewrite.
var (
	reRootRel = regexp.MustCompile(`(href="|src="|url\("|url\()/([^/])`)
	reDirLink = regexp.MustCompile(`(href="|src=")((?:\.\./)*[^"]*/)"`)
	reScheme  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
)

// RootRelative converts root-relative references into tree-relative ones by
// prefixing them with one "../" per directory of the document's depth, and
// validates directory-style links: when the linked directory has an
// index.html on disk the link gets it appended, otherwise a warning is
// recorded.
func RootRelative(content string, rc Context) string {
	prefix := strings.Repeat("../", site.Depth(rc.Path))

	content = reRootRel.ReplaceAllString(content, "${1}"+prefix+"${2}")

	dir := ""
	if i := strings.LastIndex(rc.Path, "/"); i >= 0 {
		dir = rc.Path[:i]
	}

	return reDirLink.ReplaceAllStringFunc(content, func(m string) string {
		sub := reDirLink.FindStringSubmatch(m)
		attr, link := sub[1], sub[2]

		// external and pseudo links are none of our business
		if strings.HasPrefix(link, "//") || reScheme.MatchString(link) {
			return m
		}

		resolved, ok := site.Resolve(dir, link)
		if !ok {
			return m
		}
		if rc.Tree.HasIndex(resolved) {
			return attr + link + `index.html"`
		}
		if rc.Warn != nil {
			rc.Warn(fmt.Sprintf("%s -> Link '%s' has no index.html", rc.Path, link))
		}
		return m
	})
}

// External replaces every occurrence of every mapped URL with the local
// path of the downloaded copy, made relative to the document's depth.
// Longer URLs are replaced first so a URL that is a textual prefix of
// another never clips the longer one's occurrence. URLs absent from the
// mapping stay untouched and keep working online.
func External(content string, mapping map[string]string, depth int) string {
	if len(mapping) == 0 {
		return content
	}

	urls := make([]string, 0, len(mapping))
	for u := range mapping {
		urls = append(urls, u)
	}
	sort.Slice(urls, func(i, j int) bool {
		if len(urls[i]) != len(urls[j]) {
			return len(urls[i]) > len(urls[j])
		}
		return urls[i] < urls[j]
	})

	prefix := strings.Repeat("../", depth)
	for _, u := range urls {
		content = strings.ReplaceAll(content, u, prefix+mapping[u])
	}
	return content
}
