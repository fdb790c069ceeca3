package extres

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// LocalPath derives the tree-relative destination path for an external URL:
// Namespace/host/decoded-path. The derivation is total - any URL shape
// degrades to something usable:
//
//   - protocol-relative URLs are treated as https
//   - '@' is replaced with '_' (hostile to some target filesystems)
//   - a query string is folded into the file name as a short stable hash so
//     URLs differing only in query do not collide
//   - directory-like paths get an implicit "index" leaf
func LocalPath(rawURL string) string {
	u, err := url.Parse(NormalizeScheme(rawURL))
	if err != nil {
		// not parseable - degrade to a flat name under the namespace
		return Namespace + "/" + sanitizePathPart(rawURL)
	}

	p := u.Path
	if dec, err := url.PathUnescape(p); err == nil {
		p = dec
	}
	p = strings.TrimPrefix(p, "/")
	p = strings.ReplaceAll(p, "@", "_")

	if u.RawQuery != "" {
		sum := md5.Sum([]byte(u.RawQuery))
		h := hex.EncodeToString(sum[:])[:8]
		if ext := path.Ext(p); ext != "" {
			p = strings.TrimSuffix(p, ext) + "_q_" + h + ext
		} else {
			// extensionless endpoints with queries are nearly always
			// stylesheet services (fonts.googleapis.com and the like)
			p = p + "_q_" + h + ".css"
		}
	}

	if p == "" || strings.HasSuffix(p, "/") {
		p += "index"
	}

	return Namespace + "/" + u.Host + "/" + p
}

// NormalizeScheme turns a protocol-relative URL into its https form, other
// URLs are returned unchanged.
func NormalizeScheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "//") {
		return "https:" + rawURL
	}
	return rawURL
}

// AliasForm returns the other spelling of the same resource URL
// (https:// <-> //), or "" when the URL has neither form.
func AliasForm(rawURL string) string {
	if strings.HasPrefix(rawURL, "https://") {
		return strings.TrimPrefix(rawURL, "https:")
	}
	if strings.HasPrefix(rawURL, "//") {
		return "https:" + rawURL
	}
	return ""
}

func sanitizePathPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', ':', '?', '#', '@':
			return '_'
		}
		return r
	}, s)
}
