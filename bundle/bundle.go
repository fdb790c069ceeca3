// Package bundle writes the offline bundle container. A bundle is a zip
// archive holding one entry per site file plus a metadata manifest, built
// through a temporary file and renamed into place so a crashed run never
// leaves a half-written bundle behind.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// metaDir is a reserved bundle path prefix, site files never collide with it.
const (
	metaDir  = "_meta"
	metaName = metaDir + "/metadata.xml"
)

// Item is a single bundle entry. Content comes either from Data or, when
// Data is nil, is streamed from the file at Source.
type Item struct {
	Path     string
	Title    string
	MimeType string
	Data     []byte
	Source   string
}

// Creator accumulates items and metadata and writes them out on Close.
type Creator struct {
	out      string
	items    map[string]Item
	meta     []metaEntry
	mainPath string
	created  time.Time
	log      *zap.Logger
}

type metaEntry struct {
	key, value string
}

// New prepares a bundle creator for the given output path. Every bundle
// carries a generated identifier and its creation time.
func New(outputPath string, log *zap.Logger) *Creator {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Creator{
		out:     outputPath,
		items:   make(map[string]Item),
		created: time.Now(),
		log:     log.Named("bundle"),
	}
	c.AddMetadata("id", uuid.New().String())
	c.AddMetadata("date", c.created.Format(time.RFC3339))
	return c
}

// AddItem stages an entry. At most one entry may exist per path.
func (c *Creator) AddItem(item Item) error {
	if item.Path == "" {
		return fmt.Errorf("bundle item has empty path")
	}
	if item.Path == metaName {
		return fmt.Errorf("bundle path %s is reserved", metaName)
	}
	if _, exists := c.items[item.Path]; exists {
		return fmt.Errorf("duplicate bundle path: %s", item.Path)
	}
	c.items[item.Path] = item
	return nil
}

// AddMetadata stages a key/value pair for the manifest. Keys may repeat,
// order of addition is preserved.
func (c *Creator) AddMetadata(key, value string) {
	c.meta = append(c.meta, metaEntry{key: key, value: value})
}

// SetMainPath records the bundle-relative path of the entry document.
func (c *Creator) SetMainPath(p string) {
	c.mainPath = p
}

// Count returns the number of staged items.
func (c *Creator) Count() int {
	return len(c.items)
}

// Close writes the archive. Entries go out in natural path order so two runs
// over the same tree produce identical bundles.
func (c *Creator) Close() error {
	if err := os.MkdirAll(filepath.Dir(c.out), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(c.out), ".bundle-*")
	if err != nil {
		return fmt.Errorf("unable to create temporary bundle file: %w", err)
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	if err := c.writeMetadata(zw); err != nil {
		return fmt.Errorf("unable to write bundle metadata: %w", err)
	}

	paths := make([]string, 0, len(c.items))
	for p := range c.items {
		paths = append(paths, p)
	}
	sort.Sort(natural.StringSlice(paths))

	for _, p := range paths {
		if err := c.writeItem(zw, c.items[p]); err != nil {
			return fmt.Errorf("unable to write bundle entry %s: %w", p, err)
		}
	}

	// make sure buffers are flushed before renaming
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close bundle archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize bundle file: %w", err)
	}
	if err := os.Rename(tmpName, c.out); err != nil {
		return fmt.Errorf("unable to move bundle into place: %w", err)
	}

	c.log.Debug("Bundle written", zap.String("file", c.out), zap.Int("entries", len(c.items)))
	return nil
}

func (c *Creator) writeMetadata(zw *zip.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("bundle-metadata")
	if c.mainPath != "" {
		root.CreateAttr("main", c.mainPath)
	}
	for _, m := range c.meta {
		e := root.CreateElement("entry")
		e.CreateAttr("key", m.key)
		e.SetText(m.value)
	}

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return err
	}

	w, err := zw.CreateHeader(&zip.FileHeader{Name: metaName, Method: zip.Deflate, Modified: c.created})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (c *Creator) writeItem(zw *zip.Writer, item Item) error {
	hdr := &zip.FileHeader{Name: item.Path, Method: zip.Deflate, Modified: c.created}
	hdr.SetMode(0644)
	if item.Title != "" {
		hdr.Comment = item.Title
	}

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	if item.Data != nil {
		_, err = w.Write(item.Data)
		return err
	}

	src, err := os.Open(item.Source)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(w, src)
	return err
}
