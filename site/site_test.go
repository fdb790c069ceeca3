package site

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func buildTree(t *testing.T, files map[string]string) *Tree {
	t.Helper()
	root := t.TempDir()
	for rel, data := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(data), 0600); err != nil {
			t.Fatal(err)
		}
	}
	tree, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func TestNew(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("missing root must be rejected")
	}

	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(file); err == nil {
		t.Error("regular file as root must be rejected")
	}
}

func TestFiles(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"index.html":    "r",
		"page10.html":   "a",
		"page2.html":    "b",
		"img/logo.png":  "c",
		"blog/a/b.html": "d",
	})

	files, err := tree.Files()
	if err != nil {
		t.Fatal(err)
	}
	// natural order: page2 before page10
	want := []string{"blog/a/b.html", "img/logo.png", "index.html", "page2.html", "page10.html"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("files %v, want %v", files, want)
	}
}

func TestHasIndex(t *testing.T) {
	tree := buildTree(t, map[string]string{
		"index.html":      "r",
		"blog/index.html": "b",
		"img/logo.png":    "c",
	})
	cases := []struct {
		dir  string
		want bool
	}{
		{"", true},
		{"blog", true},
		{"blog/", true},
		{"img", false},
		{"nope", false},
	}
	for _, c := range cases {
		if got := tree.HasIndex(c.dir); got != c.want {
			t.Errorf("HasIndex(%q) = %v, want %v", c.dir, got, c.want)
		}
	}
}

func TestDepth(t *testing.T) {
	cases := []struct {
		rel  string
		want int
	}{
		{"index.html", 0},
		{"blog/index.html", 1},
		{"blog/2024/post.html", 2},
	}
	for _, c := range cases {
		if got := Depth(c.rel); got != c.want {
			t.Errorf("Depth(%q) = %d, want %d", c.rel, got, c.want)
		}
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		fromDir, ref string
		want         string
		ok           bool
	}{
		{"", "about/page.html", "about/page.html", true},
		{"blog", "../img/x.png", "img/x.png", true},
		{"blog/a", "/css/main.css", "css/main.css", true},
		{"blog", "../../escape.html", "", false},
		{"", "../escape.html", "", false},
		{"blog", "../", "", true},
		{"", "/", "", true},
	}
	for _, c := range cases {
		got, ok := Resolve(c.fromDir, c.ref)
		if got != c.want || ok != c.ok {
			t.Errorf("Resolve(%q, %q) = (%q, %v), want (%q, %v)", c.fromDir, c.ref, got, ok, c.want, c.ok)
		}
	}
}

func TestReadText(t *testing.T) {
	// windows-1251 encoded Cyrillic with a charset declaration
	raw := []byte(`<html><head><meta charset="windows-1251"></head><body>`)
	raw = append(raw, 0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2) // "Привет"
	raw = append(raw, []byte(`</body></html>`)...)

	tree := buildTree(t, map[string]string{"cp1251.html": string(raw)})
	content, err := tree.ReadText("cp1251.html")
	if err != nil {
		t.Fatal(err)
	}
	if want := "Привет"; !strings.Contains(content, want) {
		t.Errorf("decoded content misses %q:\n%s", want, content)
	}
}

func TestIsMarkup(t *testing.T) {
	cases := []struct {
		rel               string
		html, css, markup bool
	}{
		{"index.html", true, false, true},
		{"page.HTM", true, false, true},
		{"css/main.css", false, true, true},
		{"img/logo.png", false, false, false},
	}
	for _, c := range cases {
		if got := IsHTML(c.rel); got != c.html {
			t.Errorf("IsHTML(%q) = %v", c.rel, got)
		}
		if got := IsCSS(c.rel); got != c.css {
			t.Errorf("IsCSS(%q) = %v", c.rel, got)
		}
		if got := IsMarkup(c.rel); got != c.markup {
			t.Errorf("IsMarkup(%q) = %v", c.rel, got)
		}
	}
}
