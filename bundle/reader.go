package bundle

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
)

// Entry describes a single bundle item as stored in the archive.
type Entry struct {
	Path  string
	Title string
	Size  uint64
}

// Info is what can be learned about a bundle without extracting it.
type Info struct {
	MainPath string
	Metadata map[string]string
	Entries  []Entry
}

// Inspect opens a bundle and reads its manifest and entry list. Entries are
// returned in archive order, which for bundles written by Creator is natural
// path order.
func Inspect(name string) (*Info, error) {
	r, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("unable to open bundle: %w", err)
	}
	defer r.Close()

	info := &Info{Metadata: make(map[string]string)}
	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return nil, fmt.Errorf("bundle entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Name == metaName {
			if err := readManifest(f, info); err != nil {
				return nil, err
			}
			continue
		}
		info.Entries = append(info.Entries, Entry{Path: f.Name, Title: f.Comment, Size: f.UncompressedSize64})
	}
	return info, nil
}

func readManifest(f *zip.File, info *Info) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("unable to read bundle metadata: %w", err)
	}
	defer rc.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(rc); err != nil {
		return fmt.Errorf("unable to parse bundle metadata: %w", err)
	}
	root := doc.SelectElement("bundle-metadata")
	if root == nil {
		return fmt.Errorf("bundle metadata has no bundle-metadata element")
	}
	info.MainPath = root.SelectAttrValue("main", "")
	for _, e := range root.SelectElements("entry") {
		if key := e.SelectAttrValue("key", ""); key != "" {
			info.Metadata[key] = e.Text()
		}
	}
	return nil
}

// isSafePath returns false for entry paths that could escape an extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
