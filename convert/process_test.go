package convert

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"s2z/config"
	"s2z/site"
	"s2z/state"
)

func testEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	env.Cfg = cfg
	env.Log = zap.NewNop()
	return ctx, env
}

func writeSite(t *testing.T, files map[string]string) *site.Tree {
	t.Helper()
	root := filepath.Join(t.TempDir(), "mysite")
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

func readBundle(t *testing.T, name string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(name)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	out := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestProcess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lib.js":
			io.WriteString(w, "console.log('lib');")
		case "/style.css":
			io.WriteString(w, "@import \""+srvURL(r)+"/inner.css\";\nbody { margin: 0; }")
		case "/inner.css":
			io.WriteString(w, "h1 { color: red; }")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tree := writeSite(t, map[string]string{
		"index.html": `<html><head><title>My Site</title>
			<link href="` + srv.URL + `/style.css" rel="stylesheet">
			<script src="` + srv.URL + `/lib.js"></script>
			</head><body>
			<a href="/blog/">blog</a>
			<a href="/missing/">nowhere</a>
			<a href="/missing/">nowhere again</a>
			<img src="img/logo.png">
			</body></html>`,
		"blog/index.html": `<html><head><title>Blog</title></head><body><a href="/">home</a></body></html>`,
		"img/logo.png":    "png-bytes",
		"img/orphan.png":  "orphan-bytes",
	})

	ctx, env := testEnv(t)
	env.Cfg.External.Resolve = true
	env.Cfg.Site.CleanupUnreferenced = true
	env.Cfg.Bundle.Report = true

	dst := t.TempDir()
	if err := process(ctx, tree, dst, env.Log); err != nil {
		t.Fatal(err)
	}

	host := strings.TrimPrefix(srv.URL, "http://")
	out := filepath.Join(dst, "mysite.wzb")
	entries := readBundle(t, out)

	t.Run("external resources internalized", func(t *testing.T) {
		for _, p := range []string{
			"_external/" + host + "/lib.js",
			"_external/" + host + "/style.css",
			"_external/" + host + "/inner.css",
		} {
			if _, ok := entries[p]; !ok {
				t.Errorf("bundle misses %q", p)
			}
		}
	})

	t.Run("references rewritten", func(t *testing.T) {
		index := entries["index.html"]
		if !strings.Contains(index, `href="_external/`+host+`/style.css"`) {
			t.Errorf("stylesheet reference not rewritten:\n%s", index)
		}
		if strings.Contains(index, srv.URL) {
			t.Errorf("external URL left behind:\n%s", index)
		}
		if !strings.Contains(index, `href="blog/index.html"`) {
			t.Errorf("directory link not resolved to index:\n%s", index)
		}
		if !strings.Contains(index, `href="missing/"`) {
			t.Errorf("missing-index link must keep trailing slash:\n%s", index)
		}
		blog := entries["blog/index.html"]
		if !strings.Contains(blog, `href="../index.html"`) {
			t.Errorf("root link not rewritten for depth:\n%s", blog)
		}
	})

	t.Run("recursive stylesheet rewritten", func(t *testing.T) {
		css := entries["_external/"+host+"/style.css"]
		if strings.Contains(css, srv.URL) {
			t.Errorf("nested import not rewritten:\n%s", css)
		}
		if !strings.Contains(css, "_external/"+host+"/inner.css") {
			t.Errorf("nested import not pointing at local copy:\n%s", css)
		}
	})

	t.Run("orphan dropped, referenced asset kept", func(t *testing.T) {
		if _, ok := entries["img/orphan.png"]; ok {
			t.Error("orphan.png must not be bundled")
		}
		if got := entries["img/logo.png"]; got != "png-bytes" {
			t.Errorf("logo.png content %q", got)
		}
	})

	t.Run("metadata manifest present", func(t *testing.T) {
		meta := entries["_meta/metadata.xml"]
		if !strings.Contains(meta, `main="index.html"`) {
			t.Errorf("main path missing from metadata:\n%s", meta)
		}
		if !strings.Contains(meta, "mysite") {
			t.Errorf("bundle name missing from metadata:\n%s", meta)
		}
	})

	t.Run("report written", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dst, "mysite-report.html"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "img/orphan.png") {
			t.Error("report misses removed asset")
		}
		if !strings.Contains(string(data), "has no index.html") {
			t.Error("report misses missing-index warning")
		}
	})
}

// srvURL reconstructs the test server base URL from the incoming request so
// served stylesheets can reference absolute URLs on the same origin.
func srvURL(r *http.Request) string {
	u := url.URL{Scheme: "http", Host: r.Host}
	return u.String()
}

func TestProcessDryRun(t *testing.T) {
	tree := writeSite(t, map[string]string{
		"index.html": `<html><head><title>T</title></head><body></body></html>`,
	})

	ctx, env := testEnv(t)
	env.DryRun = true

	dst := t.TempDir()
	if err := process(ctx, tree, dst, env.Log); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dst, "mysite.wzb")); !os.IsNotExist(err) {
		t.Error("dry run must not write a bundle")
	}
}

func TestProcessOverwrite(t *testing.T) {
	tree := writeSite(t, map[string]string{
		"index.html": `<html></html>`,
	})

	ctx, env := testEnv(t)
	dst := t.TempDir()
	out := filepath.Join(dst, "mysite.wzb")
	if err := os.WriteFile(out, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := process(ctx, tree, dst, env.Log); err == nil {
		t.Fatal("expected existing output to be refused")
	}

	env.Overwrite = true
	if err := process(ctx, tree, dst, env.Log); err != nil {
		t.Fatal(err)
	}
	if data, err := os.ReadFile(out); err != nil || string(data) == "old" {
		t.Errorf("bundle not overwritten: %v", err)
	}
}

func TestValidLanguage(t *testing.T) {
	for lang, want := range map[string]bool{
		"eng": true, "deu": true, "ENG": true,
		"en": false, "engl": false, "e1g": false, "": false,
	} {
		if got := validLanguage(lang); got != want {
			t.Errorf("validLanguage(%q) = %v, want %v", lang, got, want)
		}
	}
}

func TestTitleOf(t *testing.T) {
	if got := titleOf(`<html><head><TITLE> Hello </TITLE></head></html>`, "a/b.html"); got != "Hello" {
		t.Errorf("title %q", got)
	}
	if got := titleOf(`<html></html>`, "a/b.html"); got != "b.html" {
		t.Errorf("fallback title %q", got)
	}
}
