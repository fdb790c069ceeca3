// Package assets computes which files of a site tree are actually referenced
// by its documents, so unreferenced media can be dropped from the bundle.
package assets

import (
	"regexp"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"s2z/site"
)

// Scanner walks document files and accumulates the reference closure.
type Scanner struct {
	tree *site.Tree
	log  *zap.Logger
}

// NewScanner creates a new reference scanner.
func NewScanner(tree *site.Tree, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{tree: tree, log: log.Named("assets")}
}

var (
	// attribute values stop at quote, fragment or query - only the path part
	// names a file on disk
	reRefAttr  = regexp.MustCompile(`(?i)(?:href|src|poster|data-src)\s*=\s*["']([^"'#?]+)`)
	reSrcset   = regexp.MustCompile(`(?i)srcset\s*=\s*["']([^"']+)["']`)
	reStyleURL = regexp.MustCompile(`url\(\s*["']?([^"')\s]+?)["']?\s*\)`)
)

// Closure scans every HTML/CSS file in files and returns the set of
// tree-relative paths they reference. The scan is a single pass over the
// supplied list - references are not chased through files discovered during
// the scan itself.
func (s *Scanner) Closure(files []string) map[string]bool {
	closure := make(map[string]bool)
	for _, rel := range files {
		if !site.IsMarkup(rel) {
			continue
		}
		content, err := s.tree.ReadText(rel)
		if err != nil {
			s.log.Warn("Unable to read document during reference scan", zap.String("file", rel), zap.Error(err))
			continue
		}

		var refs []string
		if site.IsCSS(rel) {
			refs = cssRefs(content)
		} else {
			refs = htmlRefs(content)
		}

		dir := ""
		if i := strings.LastIndex(rel, "/"); i >= 0 {
			dir = rel[:i]
		}
		for _, ref := range refs {
			s.record(closure, dir, ref)
		}
	}
	s.log.Debug("Reference scan finished", zap.Int("referenced", len(closure)))
	return closure
}

// record resolves a single raw reference and adds it to the closure.
func (s *Scanner) record(closure map[string]bool, dir, ref string) {
	ref = trimRef(ref)
	if ref == "" || skipRef(ref) {
		return
	}
	resolved, ok := site.Resolve(dir, ref)
	if !ok {
		return
	}
	if resolved == "" {
		closure["index.html"] = true
		return
	}
	closure[resolved] = true
	// a directory link implies its index document
	if strings.HasSuffix(ref, "/") {
		closure[resolved+"/index.html"] = true
	}
}

func trimRef(ref string) string {
	if i := strings.IndexAny(ref, "#?"); i >= 0 {
		ref = ref[:i]
	}
	return strings.TrimSpace(ref)
}

// skipRef reports whether a raw reference cannot name a local file:
// external URLs, fragments and non-fetchable schemes.
func skipRef(ref string) bool {
	if strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "#") {
		return true
	}
	// data:, javascript:, mailto:, http(s): and friends
	return strings.Contains(ref, ":")
}

// htmlRefs extracts reference-like values from HTML text.
func htmlRefs(content string) []string {
	var refs []string
	for _, m := range reRefAttr.FindAllStringSubmatch(content, -1) {
		refs = append(refs, m[1])
	}
	for _, m := range reSrcset.FindAllStringSubmatch(content, -1) {
		for entry := range strings.SplitSeq(m[1], ",") {
			// first token is the reference, the rest are density descriptors
			if fields := strings.Fields(entry); len(fields) > 0 {
				refs = append(refs, fields[0])
			}
		}
	}
	for _, m := range reStyleURL.FindAllStringSubmatch(content, -1) {
		refs = append(refs, m[1])
	}
	return refs
}

// cssRefs tokenizes stylesheet text and extracts url() targets and @import
// arguments.
func cssRefs(content string) []string {
	var refs []string

	l := css.NewLexer(parse.NewInputString(content))
	inImport := false
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return refs

		case css.AtKeywordToken:
			inImport = strings.EqualFold(string(data), "@import")

		case css.StringToken:
			if inImport {
				refs = append(refs, unquote(string(data)))
				inImport = false
			}

		case css.URLToken:
			s := strings.TrimSuffix(strings.TrimPrefix(string(data), "url("), ")")
			refs = append(refs, unquote(strings.TrimSpace(s)))
			inImport = false

		case css.FunctionToken:
			if strings.EqualFold(string(data), "url(") {
				// value arrives as the following string token
				if tt2, data2 := l.Next(); tt2 == css.StringToken {
					refs = append(refs, unquote(string(data2)))
				}
				inImport = false
			}

		case css.WhitespaceToken, css.CommentToken:
			// keep the import flag across insignificant tokens

		case css.SemicolonToken:
			inImport = false
		}
	}
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// Filter intersects files with the reference closure. Documents are always
// kept. Nothing is deleted from disk, removed paths are only excluded from
// the bundle.
func Filter(files []string, closure map[string]bool) (kept, removed []string) {
	for _, rel := range files {
		if site.IsMarkup(rel) || closure[rel] {
			kept = append(kept, rel)
		} else {
			removed = append(removed, rel)
		}
	}
	return kept, removed
}
