package extres

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"s2z/site"
)

func buildTree(t *testing.T, files map[string]string) *site.Tree {
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
	tree, err := site.New(root)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func TestResolve(t *testing.T) {
	t.Run("empty queue terminates immediately", func(t *testing.T) {
		tree := buildTree(t, map[string]string{
			"index.html": `<img src="img/local.png">`,
		})
		r := NewResolver(tree, NewFetcher(time.Second, nil), 2, nil)
		mapping, err := r.Resolve(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(mapping) != 0 {
			t.Errorf("mapping %v", mapping)
		}
	})

	t.Run("import chain bounded at depth 3", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// c1 imports c2 imports c3 ... up to c5
			var n int
			if _, err := fmt.Sscanf(r.URL.Path, "/c%d.css", &n); err != nil || n > 5 {
				http.NotFound(w, r)
				return
			}
			if n < 5 {
				fmt.Fprintf(w, "@import \"http://%s/c%d.css\";\n", r.Host, n+1)
			}
			io.WriteString(w, "body { margin: 0; }")
		}))
		defer srv.Close()

		tree := buildTree(t, map[string]string{
			"index.html": `<link href="` + srv.URL + `/c1.css" rel="stylesheet">`,
		})
		r := NewResolver(tree, NewFetcher(5*time.Second, nil), 2, nil)
		mapping, err := r.Resolve(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		for n := 1; n <= 4; n++ {
			if _, ok := mapping[fmt.Sprintf("%s/c%d.css", srv.URL, n)]; !ok {
				t.Errorf("c%d.css missing from mapping %v", n, mapping)
			}
		}
		if _, ok := mapping[srv.URL+"/c5.css"]; ok {
			t.Error("fifth hop must not be followed")
		}

		// downloads actually landed in the reserved namespace
		host := strings.TrimPrefix(srv.URL, "http://")
		if _, err := os.Stat(tree.Abs("_external/" + host + "/c1.css")); err != nil {
			t.Errorf("downloaded stylesheet missing: %v", err)
		}
	})

	t.Run("failed fetch absent from mapping", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/good.js" {
				io.WriteString(w, "ok")
				return
			}
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		tree := buildTree(t, map[string]string{
			"index.html": `<script src="` + srv.URL + `/good.js"></script>
				<script src="` + srv.URL + `/bad.js"></script>`,
		})
		r := NewResolver(tree, NewFetcher(5*time.Second, nil), 2, nil)
		mapping, err := r.Resolve(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := mapping[srv.URL+"/good.js"]; !ok {
			t.Errorf("good.js missing from mapping %v", mapping)
		}
		if _, ok := mapping[srv.URL+"/bad.js"]; ok {
			t.Error("failed fetch must be absent from mapping")
		}
	})

	t.Run("namespace files not rescanned as sources", func(t *testing.T) {
		tree := buildTree(t, map[string]string{
			"_external/old.example.com/left.css": `@import "https://gone.example.com/x.css";`,
			"index.html":                         `<p>nothing external</p>`,
		})
		r := NewResolver(tree, NewFetcher(time.Second, nil), 2, nil)
		mapping, err := r.Resolve(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(mapping) != 0 {
			t.Errorf("leftovers under the namespace must not seed the scan: %v", mapping)
		}
	})
}
