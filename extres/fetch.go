package extres

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
)

// Some origins reject requests with default Go user agent.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

// Fetcher downloads single resources. Failures never propagate past it -
// a resource that cannot be fetched simply stays an online reference.
type Fetcher struct {
	client *http.Client
	log    *zap.Logger
}

func NewFetcher(timeout time.Duration, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		log:    log.Named("fetch"),
	}
}

// Fetch retrieves url into dest. When dest already exists and is not empty
// nothing is transferred and success is reported, so retries and concurrent
// invocations are safe. Returns false on any failure after logging it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) bool {
	if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
		return true
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		f.log.Warn("Unable to create destination directory", zap.String("dest", dest), zap.Error(err))
		return false
	}

	data, err := f.get(ctx, NormalizeScheme(rawURL))
	if err != nil {
		f.log.Warn("Failed to download resource", zap.String("url", rawURL), zap.Error(err))
		return false
	}

	// write through temp name so a partial body never looks like a finished
	// download to the skip-if-exists check
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*")
	if err != nil {
		f.log.Warn("Unable to create temporary file", zap.String("dest", dest), zap.Error(err))
		return false
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		f.log.Warn("Unable to write resource", zap.String("dest", dest), zap.Error(err))
		return false
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		f.log.Warn("Unable to finalize resource", zap.String("dest", dest), zap.Error(err))
		return false
	}

	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		f.log.Debug("Downloaded", zap.String("url", rawURL), zap.String("dest", dest), zap.String("type", kind.MIME.Value))
	} else {
		f.log.Debug("Downloaded", zap.String("url", rawURL), zap.String("dest", dest))
	}
	return true
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
