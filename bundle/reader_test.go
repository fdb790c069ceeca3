package bundle

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestInspect(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.wzb")
		c := New(out, nil)
		c.AddMetadata("title", "Example")
		c.SetMainPath("index.html")
		if err := c.AddItem(Item{Path: "index.html", Title: "Home", Data: []byte("home")}); err != nil {
			t.Fatal(err)
		}
		if err := c.AddItem(Item{Path: "img/logo.png", Data: []byte("png")}); err != nil {
			t.Fatal(err)
		}
		if err := c.Close(); err != nil {
			t.Fatal(err)
		}

		info, err := Inspect(out)
		if err != nil {
			t.Fatal(err)
		}
		if info.MainPath != "index.html" {
			t.Errorf("main path %q", info.MainPath)
		}
		if info.Metadata["title"] != "Example" {
			t.Errorf("metadata %v", info.Metadata)
		}
		if len(info.Entries) != 2 {
			t.Fatalf("entries %v", info.Entries)
		}
		if info.Entries[0].Path != "img/logo.png" && info.Entries[1].Path != "img/logo.png" {
			t.Errorf("entries %v", info.Entries)
		}
		for _, e := range info.Entries {
			if e.Path == "index.html" && e.Title != "Home" {
				t.Errorf("entry title %q", e.Title)
			}
		}
	})

	t.Run("rejects traversal entries", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "evil.wzb")
		f, err := os.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		zw := zip.NewWriter(f)
		w, err := zw.CreateHeader(&zip.FileHeader{Name: "../evil.html", Method: zip.Deflate})
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte("evil"))
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}

		if _, err := Inspect(name); err == nil {
			t.Fatal("expected unsafe path to be rejected")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Inspect(filepath.Join(t.TempDir(), "nope.wzb")); err == nil {
			t.Fatal("expected error for missing bundle")
		}
	})
}
