// Package site models the source website directory as a set of files
// addressed by POSIX-style paths relative to the site root.
package site

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/net/html/charset"
)

// Tree is the website directory being converted.
type Tree struct {
	root string
}

// New validates the site root and returns a Tree. Returns an error when root
// does not exist or is not a directory - nothing can be done in that case.
func New(root string) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("site path is not accessible: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("site path is not a directory: %s", abs)
	}
	return &Tree{root: abs}, nil
}

func (t *Tree) Root() string {
	return t.root
}

// Abs converts a tree-relative slash path to an absolute filesystem path.
func (t *Tree) Abs(rel string) string {
	return filepath.Join(t.root, filepath.FromSlash(rel))
}

// Rel converts an absolute filesystem path back to a tree-relative slash
// path. Returns false when the path is outside of the tree.
func (t *Tree) Rel(abs string) (string, bool) {
	rel, err := filepath.Rel(t.root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// Files enumerates all regular files under the root. Paths are slash
// separated, relative to the root and naturally ordered so processing and
// output are deterministic.
func (t *Tree) Files() ([]string, error) {
	var files []string
	err := filepath.Walk(t.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if rel, ok := t.Rel(p); ok {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Sort(natural.StringSlice(files))
	return files, nil
}

// HasIndex reports whether directory-like relative path has index.html in it.
func (t *Tree) HasIndex(dir string) bool {
	fi, err := os.Stat(filepath.Join(t.Abs(strings.TrimSuffix(dir, "/")), "index.html"))
	return err == nil && fi.Mode().IsRegular()
}

// ReadText reads a file as text. Sources in the wild are not always valid
// UTF-8 so bytes are passed through charset detection first, the way browsers
// sniff documents. Decoding never fails - unmappable bytes end up as
// replacement runes.
func (t *Tree) ReadText(rel string) (string, error) {
	f, err := os.Open(t.Abs(rel))
	if err != nil {
		return "", err
	}
	defer f.Close()

	r, err := charset.NewReader(f, "")
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Depth returns how many directories below the site root the file is.
func Depth(rel string) int {
	return strings.Count(rel, "/")
}

// Resolve resolves a reference found in a file located in fromDir (tree
// relative, "" for root) to a tree-relative path. References escaping the
// tree root are rejected.
func Resolve(fromDir, ref string) (string, bool) {
	var p string
	if strings.HasPrefix(ref, "/") {
		p = path.Clean(strings.TrimPrefix(ref, "/"))
	} else {
		p = path.Clean(path.Join(fromDir, ref))
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	if p == "." {
		p = ""
	}
	return p, true
}

// IsHTML reports whether relative path looks like an HTML document.
func IsHTML(rel string) bool {
	ext := strings.ToLower(path.Ext(rel))
	return ext == ".html" || ext == ".htm"
}

// IsCSS reports whether relative path looks like a stylesheet.
func IsCSS(rel string) bool {
	return strings.EqualFold(path.Ext(rel), ".css")
}

// IsMarkup reports whether the file takes part in reference scanning.
func IsMarkup(rel string) bool {
	return IsHTML(rel) || IsCSS(rel)
}
