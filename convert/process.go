package convert

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"s2z/assets"
	"s2z/bundle"
	"s2z/config"
	"s2z/extres"
	"s2z/mimetype"
	"s2z/rewrite"
	"s2z/site"
	"s2z/state"
	"s2z/utils/images"
)

type processStats struct {
	files     int
	documents int
	removed   int
	external  int
	optimized int
	saved     int64
}

// process runs the pipeline phases: internalize external dependencies,
// enumerate, prune, rewrite and pack.
func process(ctx context.Context, tree *site.Tree, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	cfg := env.Cfg
	diag := NewDiagnostics()
	stats := &processStats{}
	start := time.Now()

	mapping := make(map[string]string)
	if cfg.External.Resolve && !env.DryRun {
		fetcher := extres.NewFetcher(time.Duration(cfg.External.TimeoutSeconds)*time.Second, log)
		var err error
		mapping, err = extres.NewResolver(tree, fetcher, cfg.External.Workers, log).Resolve(ctx)
		if err != nil {
			return fmt.Errorf("unable to resolve external resources: %w", err)
		}
	}
	stats.external = len(mapping)

	// enumeration happens after downloads so fetched files are included
	files, err := tree.Files()
	if err != nil {
		return fmt.Errorf("unable to enumerate site files: %w", err)
	}

	var removed []string
	if cfg.Site.CleanupUnreferenced {
		closure := assets.NewScanner(tree, log).Closure(files)
		// internalized resources are referenced by construction, documents
		// still point at their URLs until rewrite time
		for _, local := range mapping {
			closure[local] = true
		}
		files, removed = assets.Filter(files, closure)
		stats.removed = len(removed)
		log.Info("Unreferenced assets dropped", zap.Int("count", len(removed)))
	}

	outputName := buildOutputPath(tree.Root(), dst, env)
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	}

	creator := bundle.New(outputName, log)
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(creator, tree, rel, mapping, cfg, diag, stats, log); err != nil {
			// a single bad file must not sink the whole bundle
			diag.Error(fmt.Sprintf("%s: %v", rel, err))
			log.Error("Unable to process file", zap.String("file", rel), zap.Error(err))
		}
	}
	stats.files = creator.Count()

	addMetadata(creator, tree, env, log)

	if env.DryRun {
		log.Info("Dry run, bundle not written",
			zap.String("output", outputName),
			zap.Int("entries", creator.Count()),
			zap.Int64("optimization_saves_bytes", stats.saved))
	} else {
		if err := creator.Close(); err != nil {
			return fmt.Errorf("unable to write bundle: %w", err)
		}
		if env.Rpt != nil {
			env.Rpt.Store("result"+filepath.Ext(outputName), outputName)
		}
	}

	for _, w := range diag.MissingIndexWarnings() {
		log.Warn("Missing index", zap.String("link", w))
	}
	for ext, names := range diag.UnknownExtensions() {
		log.Warn("Unknown file extension, treated as HTML", zap.String("ext", ext), zap.Strings("files", names))
	}

	if cfg.Bundle.Report && !env.DryRun {
		if err := writeReport(outputName, tree.Root(), removed, diag, stats, time.Since(start), log); err != nil {
			log.Warn("Unable to write conversion report", zap.Error(err))
		}
	}
	return nil
}

var reTitle = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// titleOf extracts a document title for the bundle entry, falling back to
// the file name.
func titleOf(content, rel string) string {
	if m := reTitle.FindStringSubmatch(content); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	return path.Base(rel)
}

// sniffType reads the file header and matches it against known signatures.
func sniffType(abs string) (mime, ext string, ok bool) {
	f, err := os.Open(abs)
	if err != nil {
		return "", "", false
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := f.Read(head)
	if n <= 0 {
		return "", "", false
	}
	return mimetype.Detect(head[:n])
}

func isImagePath(rel string) bool {
	switch strings.ToLower(path.Ext(rel)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp":
		return true
	}
	return false
}

// addFile stages a single site file into the bundle applying the rewrites
// and optional image optimization.
func addFile(creator *bundle.Creator, tree *site.Tree, rel string, mapping map[string]string, cfg *config.Config, diag *Diagnostics, stats *processStats, log *zap.Logger) error {
	mt, known := mimetype.Lookup(path.Ext(rel))
	if !known {
		diag.UnknownExtension(path.Ext(rel), rel)
		mt = mimetype.DefaultType
		if smime, sext, ok := sniffType(tree.Abs(rel)); ok {
			log.Debug("Sniffed content type for unknown extension",
				zap.String("file", rel), zap.String("mime", smime), zap.String("ext", sext))
		}
	}

	if site.IsMarkup(rel) {
		content, err := tree.ReadText(rel)
		if err != nil {
			return err
		}
		title := ""
		if site.IsHTML(rel) {
			title = titleOf(content, rel)
			content = rewrite.RootRelative(content, rewrite.Context{Tree: tree, Path: rel, Warn: diag.MissingIndex})
		}
		content = rewrite.External(content, mapping, site.Depth(rel))
		stats.documents++
		return creator.AddItem(bundle.Item{Path: rel, Title: title, MimeType: mt, Data: []byte(content)})
	}

	if cfg.Images.Optimize && isImagePath(rel) {
		if res, ok := images.Optimize(tree.Abs(rel), cfg.Images.MaxWidth, cfg.Images.JPEGQuality, log); ok {
			stats.optimized++
			stats.saved += int64(res.OriginalSize - res.NewSize)
			return creator.AddItem(bundle.Item{Path: rel, MimeType: mt, Data: res.Data})
		}
	}
	return creator.AddItem(bundle.Item{Path: rel, MimeType: mt, Source: tree.Abs(rel)})
}

// addMetadata stages bundle metadata from configuration, validating the
// language code shape.
func addMetadata(creator *bundle.Creator, tree *site.Tree, env *state.LocalEnv, log *zap.Logger) {
	md := env.Cfg.Metadata

	name := md.Name
	if name == "" {
		name = filepath.Base(tree.Root())
	}
	title := md.Title
	if title == "" {
		title = name
	}

	lang := md.Language
	if !validLanguage(lang) {
		log.Warn("Invalid language code, falling back to eng", zap.String("language", lang))
		lang = "eng"
	}

	creator.AddMetadata("name", name)
	creator.AddMetadata("title", title)
	creator.AddMetadata("language", lang)
	if md.Creator != "" {
		creator.AddMetadata("creator", md.Creator)
	}
	if md.Publisher != "" {
		creator.AddMetadata("publisher", md.Publisher)
	}
	if md.Description != "" {
		creator.AddMetadata("description", md.Description)
	}
	creator.SetMainPath(env.Cfg.Site.MainPath)

	if icon := env.Cfg.Site.IconPath; icon != "" {
		mt, _ := mimetype.Lookup(filepath.Ext(icon))
		if err := creator.AddItem(bundle.Item{Path: "_meta/icon" + filepath.Ext(icon), MimeType: mt, Source: icon}); err != nil {
			log.Warn("Unable to add bundle icon", zap.String("file", icon), zap.Error(err))
		} else {
			creator.AddMetadata("illustration", "_meta/icon"+filepath.Ext(icon))
		}
	}
}

// validLanguage checks the ISO 639-3 code shape, three ASCII letters.
func validLanguage(lang string) bool {
	if len(lang) != 3 {
		return false
	}
	for _, r := range lang {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
