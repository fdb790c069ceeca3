package images

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Images below this size are not worth recompressing.
const optimizeThreshold = 50 * 1024

// Result describes a successful optimization.
type Result struct {
	Data         []byte
	OriginalSize int
	NewSize      int
}

// Optimize recompresses an image file, scaling it down to maxWidth when it
// is wider (aspect ratio preserved). JPEG output uses the given quality,
// PNG and anything else re-encodes as best-compression PNG. The result is
// returned only when it is actually smaller than the original. Optimization
// never fails the caller - any problem is logged and reported as ok=false.
func Optimize(path string, maxWidth, quality int, log *zap.Logger) (Result, bool) {
	if log == nil {
		log = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug("Unable to read image", zap.String("file", path), zap.Error(err))
		return Result{}, false
	}
	if len(data) < optimizeThreshold {
		return Result{}, false
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug("Unable to decode image", zap.String("file", path), zap.Error(err))
		return Result{}, false
	}

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	switch format {
	case "jpeg":
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	default:
		err = imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	}
	if err != nil {
		log.Debug("Unable to encode image", zap.String("file", path), zap.Error(err))
		return Result{}, false
	}

	if buf.Len() >= len(data) {
		return Result{}, false
	}

	log.Debug("Image optimized",
		zap.String("file", path),
		zap.String("format", format),
		zap.Int("before", len(data)),
		zap.Int("after", buf.Len()))

	return Result{Data: buf.Bytes(), OriginalSize: len(data), NewSize: buf.Len()}, true
}
