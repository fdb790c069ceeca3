package extres

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"s2z/site"
)

// Stylesheets can import stylesheets which import stylesheets. Malformed or
// adversarial chains must not stall the pipeline, anything deeper is dropped.
const maxImportDepth = 3

// Resolver orchestrates external dependency internalization over the whole
// site tree: scan, concurrent download, bounded rescan of fetched
// stylesheets, alias registration.
type Resolver struct {
	tree    *site.Tree
	fetcher *Fetcher
	workers int
	log     *zap.Logger
}

func NewResolver(tree *site.Tree, fetcher *Fetcher, workers int, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Resolver{tree: tree, fetcher: fetcher, workers: workers, log: log.Named("extres")}
}

type cssItem struct {
	path  string
	depth int
}

// Resolve downloads every external resource referenced from HTML/CSS files
// in the tree and returns the URL to local path mapping, with both https://
// and protocol-relative spellings registered for every resolved resource.
// Individual fetch failures only leave the URL out of the mapping.
func (r *Resolver) Resolve(ctx context.Context) (map[string]string, error) {
	files, err := r.tree.Files()
	if err != nil {
		return nil, err
	}

	r.log.Info("Scanning for external dependencies")
	queued := make(map[string]bool)
	for _, rel := range files {
		if !site.IsMarkup(rel) || strings.HasPrefix(rel, Namespace+"/") {
			continue
		}
		content, err := r.tree.ReadText(rel)
		if err != nil {
			r.log.Warn("Failed to scan file", zap.String("file", rel), zap.Error(err))
			continue
		}
		for u := range FindURLs(content) {
			queued[u] = true
		}
	}

	mapping := make(map[string]string)
	if len(queued) == 0 {
		r.log.Info("No external dependencies found")
		return mapping, nil
	}
	r.log.Info("Found external URLs to resolve", zap.Int("count", len(queued)))

	// download phase: bounded concurrency, single accumulation point for the
	// mapping and the stylesheet rescan queue
	var (
		mu       sync.Mutex
		cssQueue []cssItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for u := range queued {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local := LocalPath(u)
			if !r.fetcher.Fetch(gctx, u, r.tree.Abs(local)) {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			mapping[u] = local
			if strings.HasSuffix(local, ".css") {
				cssQueue = append(cssQueue, cssItem{path: local, depth: 1})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// rescan phase: worklist over freshly downloaded stylesheets, visited set
	// guards against import cycles which the depth bound alone would not
	attempted := queued
	for len(cssQueue) > 0 {
		item := cssQueue[0]
		cssQueue = cssQueue[1:]
		if item.depth > maxImportDepth {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := r.tree.ReadText(item.path)
		if err != nil {
			if os.IsNotExist(err) {
				// raced with cleanup, nothing to rescan
				r.log.Debug("Stylesheet vanished before rescan", zap.String("file", item.path))
			} else {
				r.log.Warn("Failed to rescan stylesheet", zap.String("file", item.path), zap.Error(err))
			}
			continue
		}

		for u := range FindURLs(content) {
			if attempted[u] {
				continue
			}
			attempted[u] = true
			local := LocalPath(u)
			if !r.fetcher.Fetch(ctx, u, r.tree.Abs(local)) {
				continue
			}
			mapping[u] = local
			if strings.HasSuffix(local, ".css") {
				cssQueue = append(cssQueue, cssItem{path: local, depth: item.depth + 1})
			}
		}
	}

	// register alternate protocol spellings so documents referencing either
	// form resolve during rewriting
	aliases := make(map[string]string)
	for u, local := range mapping {
		if alt := AliasForm(u); alt != "" {
			if _, ok := mapping[alt]; !ok {
				aliases[alt] = local
			}
		}
	}
	for u, local := range aliases {
		mapping[u] = local
	}

	r.log.Info("Resolved external dependencies", zap.Int("count", len(mapping)))
	return mapping, nil
}
